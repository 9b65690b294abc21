// Package ledger implements the token ledger state machine: per-address
// balances plus a total-issuance counter, mutated only through mint,
// transfer, and burn.
//
// The precondition rules of the three operations are an exact mirror of
// the authoritative contract's own rules. The same state machine serves
// two callers with different error expectations:
//
//   - Replay of trusted historical events, where a precondition failure
//     signals a pipeline bug and is fatal to the reconstruction.
//   - Pre-flight validation of new, not-yet-submitted operations, where
//     a precondition failure is the expected, recoverable outcome that
//     prevents a doomed submission.
//
// Every operation is atomic: it either fully applies or leaves the state
// untouched. The ledger invariant sum(balances) == totalIssued holds
// after every successful operation and is verifiable with a full scan
// via VerifyInvariant.
package ledger
