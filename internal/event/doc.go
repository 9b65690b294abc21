// Package event defines the closed set of typed ledger events and the
// normalizer that produces them from raw log records.
//
// Raw records arrive from an external source (chain RPC, a local cache,
// or a fixture file) as string-tagged payloads. The normalizer is the
// single boundary where that untyped input becomes the sealed Event
// union; everything downstream matches exhaustively on the three
// variants Mint, Transfer, and Burn.
//
// Each event carries its ordering coordinates: the causal unit
// (transaction hash) it was emitted in, the unit's global position
// (block number, transaction index), and the log index inside the
// block. The coordinates drive the deterministic replay ordering in
// package replay.
package event
