package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egpivo/ethereum-account-state/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// SessionInfo is the presentation shape of one fetch session.
type SessionInfo struct {
	Token       string `json:"token"`
	Contract    string `json:"contract"`
	FromBlock   uint64 `json:"from_block"`
	ToBlock     uint64 `json:"to_block"`
	RecordCount int    `json:"record_count"`
	CreatedAt   string `json:"created_at"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List fetch sessions in the record cache",
		Long: `List fetch sessions recorded in the SQLite record cache, newest first.

Exit codes:
  0 - Listing completed
  2 - Command error (cache not found)

Examples:
  accountstate sessions --db ./records.db
  accountstate sessions --db ./records.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record cache path (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open record cache", err)
	}
	defer st.Close()

	sessions, err := st.Sessions(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	infos := make([]SessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = SessionInfo{
			Token:       sess.Token,
			Contract:    sess.TokenAddress,
			FromBlock:   sess.FromBlock,
			ToBlock:     sess.ToBlock,
			RecordCount: sess.RecordCount,
			CreatedAt:   time.Unix(sess.CreatedAt, 0).UTC().Format(time.RFC3339),
		}
	}

	if opts.Format == "json" {
		return outputJSONOK(cmd.OutOrStdout(), infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  %s  blocks %d-%d  %d record(s)  %s\n",
			info.Token, info.Contract, info.FromBlock, info.ToBlock, info.RecordCount, info.CreatedAt)
	}
	return nil
}
