package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/source"
	"github.com/egpivo/ethereum-account-state/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	ConfigPath string
	Database   string
}

// FetchResult summarizes one fetch session.
type FetchResult struct {
	Session   string `json:"session"`
	Token     string `json:"token"`
	FromBlock uint64 `json:"from_block"`
	ToBlock   uint64 `json:"to_block"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch token events into the record cache",
		Long: `Fetch Transfer, Mint and Burn logs for the configured block range
and store them in the SQLite record cache.

Records are content-addressed, so refetching an overlapping range is
safe: known records are skipped and only new ones are inserted.

Exit codes:
  0 - Fetch completed
  2 - Command error (bad config, RPC unreachable, cache failure)

Examples:
  accountstate fetch --config ./token.yaml
  accountstate fetch --config ./token.yaml --db ./records.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record cache path (overrides config)")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no record cache path: set --db or db in config")
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
		return WrapExitError(ExitCommandError, "failed to open log source", err)
	}

	records, err := src.Records(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch logs", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open record cache", err)
	}
	defer st.Close()

	session := uuid.Must(uuid.NewV7()).String()
	err = st.BeginSession(ctx, store.Session{
		Token:        session,
		TokenAddress: cfg.TokenAddress().Hex(),
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to begin fetch session", err)
	}

	inserted, err := st.WriteBatch(ctx, records, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write records", err)
	}
	if err := st.FinishSession(ctx, session, inserted); err != nil {
		return WrapExitError(ExitCommandError, "failed to finish fetch session", err)
	}

	result := FetchResult{
		Session:   session,
		Token:     cfg.TokenAddress().Hex(),
		FromBlock: cfg.FromBlock,
		ToBlock:   cfg.ToBlock,
		Fetched:   len(records),
		Inserted:  inserted,
	}

	if opts.Format == "json" {
		return outputJSONOK(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Fetched %d record(s), %d new\n", result.Fetched, result.Inserted)
	fmt.Fprintf(w, "Session: %s\n", result.Session)
	if opts.Verbose {
		fmt.Fprintf(w, "Token:  %s\n", result.Token)
		fmt.Fprintf(w, "Blocks: %d-%d\n", result.FromBlock, result.ToBlock)
	}
	return nil
}

// commandLogger builds a slog logger writing to the command's error
// stream. Quiet unless --verbose.
func commandLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
