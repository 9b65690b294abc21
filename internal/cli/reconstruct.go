package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/replay"
	"github.com/egpivo/ethereum-account-state/internal/source"
	"github.com/egpivo/ethereum-account-state/internal/store"
)

// ReconstructOptions holds flags for the reconstruct command.
type ReconstructOptions struct {
	*RootOptions
	RecordsPath string
	Database    string
}

// ReconstructResult is the presentation shape of a reconstruction
// report.
type ReconstructResult struct {
	RunToken         string            `json:"run_token"`
	Records          int               `json:"records"`
	Units            int               `json:"units"`
	Applied          int               `json:"applied"`
	SkippedRedundant int               `json:"skipped_redundant"`
	SkippedUnknown   int               `json:"skipped_unknown"`
	Dropped          []string          `json:"dropped,omitempty"`
	Balances         map[string]string `json:"balances"`
	TotalIssued      string            `json:"total_issued"`
}

// NewReconstructCommand creates the reconstruct command.
func NewReconstructCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconstructOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Replay records into final account balances",
		Long: `Replay a raw record batch through the ledger state machine and print
the resulting balances and issuance.

Records come from either a YAML fixture file (--records) or the SQLite
record cache (--db). The batch is normalized, grouped into causal
units, ordered canonically and applied; redundant burn signals within
a unit are collapsed to a single balance reduction.

Exit codes:
  0 - Reconstruction completed
  1 - Reconstruction aborted (precondition or invariant violation)
  2 - Command error (missing input, unreadable fixture or cache)

Examples:
  accountstate reconstruct --records ./fixtures/transfers.yaml
  accountstate reconstruct --db ./records.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconstruct(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RecordsPath, "records", "", "YAML fixture file with raw records")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite record cache path")
	cmd.MarkFlagsMutuallyExclusive("records", "db")

	return cmd
}

func runReconstruct(opts *ReconstructOptions, cmd *cobra.Command) error {
	src, cleanup, err := openRecordSource(opts.RecordsPath, opts.Database)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := replay.New(replay.Config{
		Source: src,
		Logger: commandLogger(opts.RootOptions, cmd),
	})

	result, err := engine.Reconstruct(context.Background())
	if err != nil {
		return reconstructExitError(err)
	}

	presented := presentReport(&result.Report)
	if opts.Format == "json" {
		return outputJSONOK(cmd.OutOrStdout(), presented)
	}
	return outputReconstructText(cmd, presented, opts.Verbose)
}

// openRecordSource resolves the record input. Exactly one of the two
// paths must be set. The cleanup closes the cache when one was opened.
func openRecordSource(recordsPath, dbPath string) (source.Source, func(), error) {
	noop := func() {}

	switch {
	case recordsPath != "":
		fixture, err := source.LoadFixture(recordsPath)
		if err != nil {
			return nil, noop, WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
		return fixture, noop, nil
	case dbPath != "":
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, noop, WrapExitError(ExitCommandError, "failed to open record cache", err)
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, noop, NewExitError(ExitCommandError, "no record input: set --records or --db")
	}
}

// reconstructExitError maps an engine failure to an exit code. Source
// failures are command errors; replay aborts are verification
// failures.
func reconstructExitError(err error) error {
	if replay.CodeOf(err) == replay.ErrCodeSourceFailed {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}
	return WrapExitError(ExitFailure, "reconstruction aborted", err)
}

// presentReport flattens a report for CLI output. Amounts are decimal
// strings; addresses keep their checksummed hex form.
func presentReport(report *replay.Report) ReconstructResult {
	dropped := make([]string, len(report.Dropped))
	for i, d := range report.Dropped {
		dropped[i] = d.Error()
	}

	balances := make(map[string]string, len(report.Balances))
	for _, entry := range report.Balances {
		balances[entry.Address.Hex()] = entry.Balance.String()
	}

	return ReconstructResult{
		RunToken:         report.RunToken,
		Records:          report.Records,
		Units:            report.Units,
		Applied:          report.Applied,
		SkippedRedundant: report.SkippedRedundant,
		SkippedUnknown:   report.SkippedUnknown,
		Dropped:          dropped,
		Balances:         balances,
		TotalIssued:      report.TotalIssued.String(),
	}
}

func outputReconstructText(cmd *cobra.Command, result ReconstructResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunToken)
	fmt.Fprintf(w, "Replayed %d record(s) in %d unit(s): %d applied, %d redundant, %d unknown\n",
		result.Records, result.Units, result.Applied, result.SkippedRedundant, result.SkippedUnknown)

	for _, msg := range result.Dropped {
		fmt.Fprintf(w, "Dropped: %s\n", msg)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total issued: %s\n", result.TotalIssued)
	if len(result.Balances) == 0 {
		fmt.Fprintln(w, "No balances.")
		return nil
	}

	fmt.Fprintln(w, "Balances:")
	for _, addr := range sortedKeys(result.Balances) {
		fmt.Fprintf(w, "  %s  %s\n", addr, result.Balances[addr])
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
