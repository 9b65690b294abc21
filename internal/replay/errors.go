package replay

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fatal reconstruction failures.
type ErrorCode string

const (
	// ErrCodeSourceFailed indicates the record source could not deliver
	// the batch.
	ErrCodeSourceFailed ErrorCode = "SOURCE_FAILED"

	// ErrCodePreconditionFailed indicates a historical event violated a
	// state machine precondition during replay. Historical data is
	// assumed previously validated by the contract, so this signals a
	// normalization, ordering, or resolution bug.
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"

	// ErrCodeInvariantViolation indicates sum(balances) != totalIssued
	// after a full replay: an engine defect or genuinely incomplete
	// input.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// Error is a fatal reconstruction failure. No partially replayed state
// accompanies it; callers retry by invoking Reconstruct again with
// fresh input.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Unit is the causal unit being applied when the failure surfaced,
	// empty for batch-level failures.
	Unit string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s: unit %s: %v", e.Code, e.Unit, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the reconstruction error code from err.
// Returns the empty code if err is not a replay error.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
