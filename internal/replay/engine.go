package replay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/egpivo/ethereum-account-state/internal/event"
	"github.com/egpivo/ethereum-account-state/internal/ledger"
	"github.com/egpivo/ethereum-account-state/internal/source"
)

// Config carries everything the engine depends on. There is no hidden
// process-wide state: source, logger, and token generator are all
// explicit.
type Config struct {
	// Source delivers raw record batches for Reconstruct. Optional when
	// only ReconstructRecords is used.
	Source source.Source

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Tokens generates run tokens; defaults to UUIDv7Generator.
	Tokens TokenGenerator
}

// Engine runs the reconstruction pipeline. Safe to reuse across calls;
// each call replays into a fresh ledger.
type Engine struct {
	src    source.Source
	logger *slog.Logger
	tokens TokenGenerator
}

// Result is a completed reconstruction: the final state plus its
// report. No Result is ever returned for a failed call.
type Result struct {
	State  *ledger.State
	Report Report
}

// New creates an engine from the given configuration.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Engine{src: cfg.Source, logger: logger, tokens: tokens}
}

// Reconstruct pulls the complete batch from the configured source and
// replays it. The call is atomic from the caller's perspective: it
// returns a fully replayed state or an error, never partial state.
func (e *Engine) Reconstruct(ctx context.Context) (*Result, error) {
	if e.src == nil {
		return nil, &Error{Code: ErrCodeSourceFailed, Err: fmt.Errorf("no source configured")}
	}

	records, err := e.src.Records(ctx)
	if err != nil {
		return nil, &Error{Code: ErrCodeSourceFailed, Err: err}
	}
	return e.ReconstructRecords(records)
}

// ReconstructRecords replays an already-fetched batch. Replay is pure,
// bounded computation over the sorted event list, so it takes no
// context and cannot be cancelled mid-flight.
func (e *Engine) ReconstructRecords(records []event.RawRecord) (*Result, error) {
	token := e.tokens.Generate()
	logger := e.logger.With("run", token)

	normalized := event.Normalize(records)
	for _, d := range normalized.Dropped {
		logger.Warn("dropped malformed record",
			"unit", d.Unit, "kind", d.Kind, "field", d.Field, "err", d.Err)
	}

	units := orderEvents(normalized.Events)

	state := ledger.NewState()
	report := Report{
		RunToken:       token,
		Records:        len(records),
		Dropped:        normalized.Dropped,
		SkippedUnknown: normalized.SkippedUnknown,
		Units:          len(units),
	}

	for _, u := range units {
		for _, re := range resolveUnit(u) {
			applied, err := applyResolved(state, re)
			if err != nil {
				// Historical events were validated by the contract, so
				// a precondition failure here is a pipeline bug.
				return nil, &Error{Code: ErrCodePreconditionFailed, Unit: u.id, Err: err}
			}
			if applied {
				report.Applied++
			} else {
				report.SkippedRedundant++
			}
		}
		u.advance(stageApplied)
	}

	if !state.VerifyInvariant() {
		return nil, &Error{
			Code: ErrCodeInvariantViolation,
			Err:  fmt.Errorf("sum(balances) != totalIssued after replay"),
		}
	}

	report.Balances, report.TotalIssued = state.Snapshot()

	logger.Info("reconstruction complete",
		"records", report.Records,
		"units", report.Units,
		"applied", report.Applied,
		"skipped_redundant", report.SkippedRedundant,
		"dropped", len(report.Dropped),
		"holders", state.Holders(),
		"total_issued", report.TotalIssued)

	return &Result{State: state, Report: report}, nil
}

// applyResolved applies one resolved event to the state machine.
// Returns applied=false for redundant events skipped by resolution.
func applyResolved(state *ledger.State, re resolvedEvent) (bool, error) {
	switch re.action {
	case actionSkipRedundant:
		return false, nil

	case actionApplyAsBurn:
		t := re.event.(event.Transfer)
		if err := state.Burn(t.From, t.Amount); err != nil {
			return false, fmt.Errorf("apply canonical burn: %w", err)
		}
		return true, nil

	case actionApply:
		switch ev := re.event.(type) {
		case event.Mint:
			if err := state.Mint(ev.To, ev.Amount); err != nil {
				return false, fmt.Errorf("apply mint: %w", err)
			}
		case event.Transfer:
			if err := state.Transfer(ev.From, ev.To, ev.Amount); err != nil {
				return false, fmt.Errorf("apply transfer: %w", err)
			}
		case event.Burn:
			if err := state.Burn(ev.From, ev.Amount); err != nil {
				return false, fmt.Errorf("apply burn: %w", err)
			}
		}
		return true, nil
	}

	return false, fmt.Errorf("unknown resolution action %d", re.action)
}
