package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Verification failure (mismatched balances, failed scenarios, non-deterministic runs)
	ExitCommandError = 2 // Command error (invalid paths, bad config, RPC unreachable)
)

// Error codes reported in JSON responses.
const (
	ErrCodeConfig      = "E_CONFIG"      // bad or missing configuration
	ErrCodeSource      = "E_SOURCE"      // record source failure (RPC, fixture, cache)
	ErrCodeStore       = "E_STORE"       // record cache failure
	ErrCodeReconstruct = "E_RECONSTRUCT" // reconstruction aborted
	ErrCodeValidation  = "E_VALIDATION"  // scenario schema violation
	ErrCodeDeterminism = "E_DETERMINISM" // repeated runs diverged
	ErrCodeMismatch    = "E_MISMATCH"    // live and reconstructed state diverge
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response envelope for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeJSON encodes a CLIResponse with stable two-space indentation.
func writeJSON(w io.Writer, response CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputJSONOK writes a success envelope around data.
func outputJSONOK(w io.Writer, data any) error {
	return writeJSON(w, CLIResponse{Status: "ok", Data: data})
}

// outputJSONError writes an error envelope. Data may carry partial
// results alongside the error.
func outputJSONError(w io.Writer, code, message string, data any) error {
	return writeJSON(w, CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	})
}
