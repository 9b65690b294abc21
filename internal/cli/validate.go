package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// FileValidation holds the validation result for a single file.
type FileValidation struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds the overall validation result.
type ValidationResult struct {
	Files   []FileValidation `json:"files"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario files against the schema",
		Long: `Validate conformance scenario YAML files against the CUE schema.

Each path may be a scenario file or a directory; directories are
scanned recursively for .yaml files. Validation checks address and
amount formats, coordinate ranges and the closed set of error codes
before the stricter field-level decode.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid
  2 - Command error (path not found)

Examples:
  accountstate validate ./scenarios
  accountstate validate ./scenarios/mint.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	files, err := collectYAMLFiles(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect scenario files", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		fv := validateFile(file)
		result.Files = append(result.Files, fv)
		if fv.Valid {
			result.Valid++
		} else {
			result.Invalid++
		}
	}

	if opts.Format == "json" {
		if result.Invalid > 0 {
			if err := outputJSONError(cmd.OutOrStdout(), ErrCodeValidation,
				fmt.Sprintf("%d of %d file(s) invalid", result.Invalid, len(files)), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation failed")
		}
		return outputJSONOK(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fv.File)
		fmt.Fprintf(w, "  %s\n", fv.Error)
	}
	fmt.Fprintln(w)
	if result.Invalid > 0 {
		fmt.Fprintf(w, "%d of %d file(s) invalid\n", result.Invalid, len(files))
		return NewExitError(ExitFailure, "validation failed")
	}
	fmt.Fprintf(w, "%d file(s) valid\n", result.Valid)
	return nil
}

func validateFile(path string) FileValidation {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileValidation{File: path, Error: err.Error()}
	}
	if _, err := harness.ValidateScenarioFile(path, data); err != nil {
		return FileValidation{File: path, Error: err.Error()}
	}
	return FileValidation{File: path, Valid: true}
}

// collectYAMLFiles expands directories into their .yaml files.
func collectYAMLFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && strings.HasSuffix(p, ".yaml") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
