package event

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseError is the per-record diagnostic emitted when a raw record
// cannot be normalized. It is never fatal to the batch: the normalizer
// cannot distinguish a genuinely malformed record from an incomplete
// fetch, so it drops the record and lets reconstruction continue.
type ParseError struct {
	// Unit is the causal unit the record claimed to belong to.
	Unit string

	// Kind is the record's string tag.
	Kind string

	// Field names the argument that failed to parse.
	Field string

	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("record %s in unit %s: bad %s: %v", e.Kind, e.Unit, e.Field, e.Err)
}

// Unwrap exposes the underlying parse failure.
func (e *ParseError) Unwrap() error { return e.Err }

// NormalizeResult is the outcome of normalizing one batch.
type NormalizeResult struct {
	// Events are the successfully normalized events, in input order.
	Events []Event

	// Dropped are the diagnostics for records that failed to parse.
	Dropped []*ParseError

	// SkippedUnknown counts records whose kind is not a ledger event.
	SkippedUnknown int
}

// Normalize converts a batch of raw records into typed events.
//
// Records with an unrecognized kind are skipped silently (counted only);
// records of a known kind with unparseable arguments are dropped with a
// diagnostic. Neither aborts the batch.
func Normalize(records []RawRecord) NormalizeResult {
	var res NormalizeResult
	for i, rec := range records {
		switch rec.Kind {
		case KindMint, KindTransfer, KindBurn:
		default:
			res.SkippedUnknown++
			continue
		}

		ev, perr := normalizeOne(rec, i)
		if perr != nil {
			res.Dropped = append(res.Dropped, perr)
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res
}

// normalizeOne converts a single known-kind record.
func normalizeOne(rec RawRecord, arrival int) (Event, *ParseError) {
	coord := rec.coordinates(arrival)

	amount, err := parseAmount(rec.Args["value"])
	if err != nil {
		return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "value", Err: err}
	}

	switch rec.Kind {
	case KindMint:
		to, err := parseAddress(rec.Args["to"])
		if err != nil {
			return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "to", Err: err}
		}
		return Mint{Coordinates: coord, To: to, Amount: amount}, nil

	case KindTransfer:
		from, err := parseAddress(rec.Args["from"])
		if err != nil {
			return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "from", Err: err}
		}
		to, err := parseAddress(rec.Args["to"])
		if err != nil {
			return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "to", Err: err}
		}
		return Transfer{Coordinates: coord, From: from, To: to, Amount: amount}, nil

	case KindBurn:
		from, err := parseAddress(rec.Args["from"])
		if err != nil {
			return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "from", Err: err}
		}
		return Burn{Coordinates: coord, From: from, Amount: amount}, nil
	}

	// Unreachable: Normalize filters kinds before dispatching here.
	return nil, &ParseError{Unit: rec.Unit, Kind: rec.Kind, Field: "kind", Err: fmt.Errorf("unknown kind")}
}

// parseAddress parses a 0x-prefixed, fixed-width hex address.
// Equality over the result is case-insensitive by construction.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("not a hex address: %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount parses a non-negative arbitrary-precision amount from a
// decimal or 0x-hex string.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing amount")
	}
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	amount, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("not an integer amount: %q", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", s)
	}
	return amount, nil
}
