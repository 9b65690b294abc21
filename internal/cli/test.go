package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob over file base names)
}

// ScenarioResult holds the result of a single scenario run.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall conformance run result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios through the reconstruction engine.

Each scenario file feeds a record batch through a fresh engine with a
fixed run token and asserts on the final balances, issuance and
skip counters, or on the expected fatal error code.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario)

Examples:
  accountstate test ./scenarios
  accountstate test ./scenarios --filter "burn_*"
  accountstate test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	files, err := collectYAMLFiles([]string{scenariosDir})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect scenario files", err)
	}
	files, err = filterScenarioFiles(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad filter pattern", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputJSONOK(cmd.OutOrStdout(), TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		scenResult, err := runScenarioFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run scenario %s", file), err)
		}
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if result.Failed > 0 {
			if err := outputJSONError(cmd.OutOrStdout(), ErrCodeValidation,
				fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "scenarios failed")
		}
		return outputJSONOK(cmd.OutOrStdout(), result)
	}

	return outputTestText(cmd, result, opts.Verbose)
}

// runScenarioFile validates, loads and executes one scenario.
func runScenarioFile(path string) (ScenarioResult, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioResult{}, err
	}

	run, err := harness.Run(context.Background(), scenario)
	if err != nil {
		return ScenarioResult{}, err
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   run.Passed,
		Errors: run.Errors,
	}, nil
}

// filterScenarioFiles keeps files whose base name matches the glob.
func filterScenarioFiles(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}

	var kept []string
	for _, file := range files {
		match, err := filepath.Match(pattern, filepath.Base(file))
		if err != nil {
			return nil, err
		}
		if match {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

func outputTestText(cmd *cobra.Command, result TestResult, verbose bool) error {
	w := cmd.OutOrStdout()

	for _, scen := range result.Scenarios {
		if scen.Pass {
			fmt.Fprintf(w, "✓ %s\n", scen.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", scen.Name)
		for _, msg := range scen.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, "scenarios failed")
	}
	return nil
}
