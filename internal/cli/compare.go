package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/replay"
	"github.com/egpivo/ethereum-account-state/internal/source"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	RecordsPath string
	Database    string
	ConfigPath  string
	Holder      string
	Live        string
}

// CompareResult holds a live versus reconstructed balance comparison.
type CompareResult struct {
	Holder        string `json:"holder"`
	Live          string `json:"live"`
	Reconstructed string `json:"reconstructed"`
	Match         bool   `json:"match"`
	Delta         string `json:"delta"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a reconstructed balance against live state",
		Long: `Reconstruct balances from a record batch and compare one holder's
balance against the live chain value.

The live value comes from balanceOf via the configured RPC endpoint,
or from --live for offline comparison. A non-zero delta means the
event log and the contract state disagree over the fetched range.

Exit codes:
  0 - Balances match
  1 - Balances diverge or reconstruction aborted
  2 - Command error (bad flags, RPC unreachable)

Examples:
  accountstate compare --records ./fixtures/transfers.yaml --holder 0xabc... --live 1500
  accountstate compare --db ./records.db --config ./token.yaml --holder 0xabc...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RecordsPath, "records", "", "YAML fixture file with raw records")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite record cache path")
	cmd.MarkFlagsMutuallyExclusive("records", "db")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config for live balanceOf lookup")
	cmd.Flags().StringVar(&opts.Holder, "holder", "", "holder address to compare (required)")
	_ = cmd.MarkFlagRequired("holder")
	cmd.Flags().StringVar(&opts.Live, "live", "", "live balance as a decimal string (offline mode)")
	cmd.MarkFlagsMutuallyExclusive("config", "live")

	return cmd
}

func runCompare(opts *CompareOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if !common.IsHexAddress(opts.Holder) {
		return NewExitError(ExitCommandError, fmt.Sprintf("holder is not a hex address: %q", opts.Holder))
	}
	holder := common.HexToAddress(opts.Holder)

	live, err := liveBalance(ctx, opts, cmd, holder)
	if err != nil {
		return err
	}

	src, cleanup, err := openRecordSource(opts.RecordsPath, opts.Database)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := replay.New(replay.Config{
		Source: src,
		Logger: commandLogger(opts.RootOptions, cmd),
	})
	reconstructed, err := engine.Reconstruct(ctx)
	if err != nil {
		return reconstructExitError(err)
	}

	comparison := replay.Compare(live, reconstructed.State.Balance(holder))
	result := CompareResult{
		Holder:        holder.Hex(),
		Live:          comparison.Live.String(),
		Reconstructed: comparison.Reconstructed.String(),
		Match:         comparison.Match,
		Delta:         comparison.Delta.String(),
	}

	if opts.Format == "json" {
		if !result.Match {
			if err := outputJSONError(cmd.OutOrStdout(), ErrCodeMismatch, "live and reconstructed balances diverge", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "balance mismatch")
		}
		return outputJSONOK(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Holder:        %s\n", result.Holder)
	fmt.Fprintf(w, "Live:          %s\n", result.Live)
	fmt.Fprintf(w, "Reconstructed: %s\n", result.Reconstructed)
	if result.Match {
		fmt.Fprintln(w, "✓ Balances match")
		return nil
	}
	fmt.Fprintf(w, "✗ Balances diverge by %s\n", result.Delta)
	return NewExitError(ExitFailure, "balance mismatch")
}

// liveBalance resolves the live side of the comparison, either from
// the --live flag or from balanceOf over RPC.
func liveBalance(ctx context.Context, opts *CompareOptions, cmd *cobra.Command, holder common.Address) (*big.Int, error) {
	if opts.Live != "" {
		v, ok := new(big.Int).SetString(opts.Live, 10)
		if !ok || v.Sign() < 0 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("--live is not a non-negative decimal: %q", opts.Live))
		}
		return v, nil
	}

	if opts.ConfigPath == "" {
		return nil, NewExitError(ExitCommandError, "no live balance: set --live or --config")
	}
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	src, err := source.NewLogSource(source.LogSourceConfig{
		RPCURL:    cfg.RPCURL,
		Token:     cfg.TokenAddress(),
		FromBlock: cfg.FromBlock,
		ToBlock:   cfg.ToBlock,
		Window:    cfg.Window,
		Logger:    commandLogger(opts.RootOptions, cmd),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open log source", err)
	}

	live, err := src.LiveBalance(ctx, holder)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to fetch live balance", err)
	}
	return live, nil
}
