// Package harness runs conformance scenarios against the
// reconstruction engine.
//
// Each scenario is a YAML file holding a raw record batch plus the
// expected final ledger state (or the expected fatal error code). The
// harness feeds the batch through a real engine with a fixed run token
// so the resulting report is byte-stable and suitable for golden file
// comparison.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/egpivo/ethereum-account-state/internal/event"
	"github.com/egpivo/ethereum-account-state/internal/replay"
	"github.com/egpivo/ethereum-account-state/internal/source"
)

// DefaultRunToken is used when a scenario does not pin its own token.
const DefaultRunToken = "test-run-default"

// Result holds the outcome of one scenario run.
type Result struct {
	// Passed is true when every expectation held.
	Passed bool

	// Errors lists expectation failures in evaluation order.
	Errors []string

	// Report is the engine's reconstruction report. Nil when the run
	// failed fatally.
	Report *replay.Report
}

func (r *Result) addError(format string, args ...any) {
	r.Passed = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Run executes a scenario and evaluates its expectations.
//
// Each scenario runs through a fresh engine with a fixed run token,
// so repeated runs of the same scenario produce identical reports.
// The returned error covers harness failures only; expectation
// failures land in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	records := make([]event.RawRecord, len(scenario.Records))
	for i, rec := range scenario.Records {
		records[i] = rec.RawRecord()
	}

	token := scenario.RunToken
	if token == "" {
		token = DefaultRunToken
	}

	engine := replay.New(replay.Config{
		Source: source.Static(records),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: replay.NewFixedGenerator(token),
	})

	result := &Result{Passed: true}

	runResult, err := engine.Reconstruct(ctx)
	if scenario.Expect.Error != "" {
		if err == nil {
			result.addError("expected fatal error %s, run succeeded", scenario.Expect.Error)
			return result, nil
		}
		if code := replay.CodeOf(err); code != replay.ErrorCode(scenario.Expect.Error) {
			result.addError("expected error code %s, got %s (%v)", scenario.Expect.Error, code, err)
		}
		return result, nil
	}
	if err != nil {
		result.addError("unexpected fatal error: %v", err)
		return result, nil
	}

	result.Report = &runResult.Report
	evaluateState(scenario, runResult, result)
	return result, nil
}

// evaluateState checks the final ledger state against the expect
// clause. Addresses absent from the expected balances must hold zero.
func evaluateState(scenario *Scenario, run *replay.Result, result *Result) {
	expect := scenario.Expect

	expected := make(map[common.Address]*big.Int, len(expect.Balances))
	for addr, amount := range expect.Balances {
		want, err := parseAmount(amount)
		if err != nil {
			result.addError("expect.balances[%s]: %v", addr, err)
			continue
		}
		expected[common.HexToAddress(addr)] = want
	}

	for addr, want := range expected {
		got := run.State.Balance(addr)
		if got.Cmp(want) != 0 {
			result.addError("balance of %s: expected %s, got %s", addr.Hex(), want, got)
		}
	}
	entries, _ := run.State.Snapshot()
	for _, entry := range entries {
		if _, ok := expected[entry.Address]; !ok {
			result.addError("unexpected holder %s with balance %s", entry.Address.Hex(), entry.Balance)
		}
	}

	if expect.TotalIssued != "" {
		want, err := parseAmount(expect.TotalIssued)
		if err != nil {
			result.addError("expect.total_issued: %v", err)
		} else if got := run.State.TotalIssued(); got.Cmp(want) != 0 {
			result.addError("total issued: expected %s, got %s", want, got)
		}
	}

	if expect.Applied != nil && run.Report.Applied != *expect.Applied {
		result.addError("applied events: expected %d, got %d", *expect.Applied, run.Report.Applied)
	}
	if expect.SkippedRedundant != nil && run.Report.SkippedRedundant != *expect.SkippedRedundant {
		result.addError("skipped redundant: expected %d, got %d", *expect.SkippedRedundant, run.Report.SkippedRedundant)
	}
}

func parseAmount(s string) (*big.Int, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("not a valid amount: %q", s)
	}
	return v, nil
}
