package replay

import (
	"math/big"

	"github.com/egpivo/ethereum-account-state/internal/event"
	"github.com/egpivo/ethereum-account-state/internal/ledger"
)

// Report summarizes one reconstruction for callers and diagnostics.
type Report struct {
	// RunToken correlates this reconstruction with logs and stored
	// diagnostics.
	RunToken string `json:"run_token"`

	// Records is the number of raw records received from the source.
	Records int `json:"records"`

	// Dropped holds the per-record parse diagnostics. Non-fatal.
	Dropped []*event.ParseError `json:"-"`

	// SkippedUnknown counts records with a non-ledger event kind.
	SkippedUnknown int `json:"skipped_unknown"`

	// Units is the number of causal units replayed.
	Units int `json:"units"`

	// Applied counts events applied to the state machine, including
	// canonical burn signals.
	Applied int `json:"applied"`

	// SkippedRedundant counts explicit Burns skipped because their unit
	// carried a canonical signal.
	SkippedRedundant int `json:"skipped_redundant"`

	// Balances is the final non-zero balance set, sorted by address.
	Balances []ledger.Entry `json:"-"`

	// TotalIssued is the final issuance counter.
	TotalIssued *big.Int `json:"-"`
}

// canonicalMap shapes the report for canonical JSON serialization.
// Amounts become decimal strings; addresses lowercase hex; keys are
// fixed so two identical reconstructions produce identical bytes.
func (r *Report) canonicalMap() map[string]any {
	dropped := make([]any, len(r.Dropped))
	for i, d := range r.Dropped {
		dropped[i] = d.Error()
	}

	balances := make(map[string]any, len(r.Balances))
	for _, entry := range r.Balances {
		balances[lowerHex(entry.Address.Hex())] = entry.Balance.String()
	}

	total := "0"
	if r.TotalIssued != nil {
		total = r.TotalIssued.String()
	}

	return map[string]any{
		"run_token":         r.RunToken,
		"records":           r.Records,
		"dropped":           dropped,
		"skipped_unknown":   r.SkippedUnknown,
		"units":             r.Units,
		"applied":           r.Applied,
		"skipped_redundant": r.SkippedRedundant,
		"balances":          balances,
		"total_issued":      total,
	}
}

// MarshalCanonical serializes the report as canonical JSON for golden
// comparisons and determinism checks.
func (r *Report) MarshalCanonical() ([]byte, error) {
	return marshalCanonical(r.canonicalMap())
}

// Comparison is the diagnostic result of checking one reconstructed
// balance against a live read. A mismatch is logged, never fatal: the
// event source may be incomplete (pagination limits, reorganizations),
// so reconstruction is a diagnostic technique, not a verifier.
type Comparison struct {
	// Live is the balance read from the authoritative contract.
	Live *big.Int `json:"live"`

	// Reconstructed is the balance produced by replay.
	Reconstructed *big.Int `json:"reconstructed"`

	// Match reports bit-for-bit equality.
	Match bool `json:"match"`

	// Delta is live minus reconstructed.
	Delta *big.Int `json:"delta"`
}

// Compare builds the diagnostic comparison of a live balance against
// its reconstructed counterpart.
func Compare(live, reconstructed *big.Int) Comparison {
	if live == nil {
		live = new(big.Int)
	}
	if reconstructed == nil {
		reconstructed = new(big.Int)
	}
	delta := new(big.Int).Sub(live, reconstructed)
	return Comparison{
		Live:          new(big.Int).Set(live),
		Reconstructed: new(big.Int).Set(reconstructed),
		Match:         delta.Sign() == 0,
		Delta:         delta,
	}
}

// lowerHex lowercases a 0x-prefixed hex string without touching the
// prefix.
func lowerHex(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'F' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
