// Package replay implements the reconstruction engine: a single
// deterministic pass that rebuilds ledger state from raw event records
// without access to the authoritative contract's storage.
//
// # Pipeline
//
//	raw records → normalize → order → resolve → apply
//
// Normalization produces typed events (package event). Ordering groups
// them into causal units (one unit per transaction), sorts units by
// their earliest (block, txIndex) coordinate, and sorts members by log
// index. Resolution decides, per unit, which events are canonical and
// which are redundant restatements. Application replays the surviving
// events sequentially into a fresh ledger.State.
//
// # Canonical burn signals
//
// A single logical burn can be represented twice inside one causal
// unit: as an explicit Burn event and as a Transfer to the zero
// address, at different log indexes. The two records share no
// correlation key, so pairing them individually is impossible; only
// co-membership in the causal unit links them. The resolver therefore
// keeps a per-unit flag: if any transfer-to-zero exists in the unit,
// every transfer-to-zero is applied as a burn and every explicit Burn
// in that unit is skipped. Explicit Burns apply only as the fallback,
// when the unit carries no canonical signal at all.
//
// # Determinism
//
// Replay is strictly single-threaded. Two runs over the same record
// set in any permutation produce the same final state, provided every
// event carries a log index; events without one fall back to input
// order as the declared tiebreak. The whole reconstruction is
// all-or-nothing: a replay-time precondition failure or a broken
// invariant fails the call without exposing partial state.
package replay
