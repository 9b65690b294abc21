package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Coordinates locates an event in history.
//
// Unit groups events emitted atomically by one source-side transaction.
// (Block, TxIndex) totally orders causal units; LogIndex orders events
// within a unit. Fixture records may omit the log index, in which case
// the arrival position is the declared tiebreak.
type Coordinates struct {
	// Unit is the causal unit identifier, the emitting transaction hash.
	Unit string

	// Block is the major component of the global order.
	Block uint64

	// TxIndex is the minor component of the global order.
	TxIndex uint

	// LogIndex is the local order within the causal unit.
	LogIndex uint

	// HasLogIndex is false when the source did not provide a log index.
	HasLogIndex bool

	// Arrival is the record's position in the input batch, used as the
	// stable tiebreak for events without a log index. Assigned by the
	// normalizer.
	Arrival int
}

// Coord returns the coordinates; it makes any embedding variant satisfy
// the Event interface's coordinate accessor.
func (c Coordinates) Coord() Coordinates { return c }

// CompareGlobal orders coordinates by (Block, TxIndex).
// Returns -1, 0, or +1.
func (c Coordinates) CompareGlobal(o Coordinates) int {
	switch {
	case c.Block != o.Block:
		if c.Block < o.Block {
			return -1
		}
		return 1
	case c.TxIndex != o.TxIndex:
		if c.TxIndex < o.TxIndex {
			return -1
		}
		return 1
	}
	return 0
}

// Event is the sealed union of ledger events. Only Mint, Transfer, and
// Burn implement it; downstream consumers switch exhaustively on the
// three variants.
type Event interface {
	Coord() Coordinates
	Value() *big.Int
	isLedgerEvent()
}

// Mint credits new value to an account.
type Mint struct {
	Coordinates
	To     common.Address
	Amount *big.Int
}

// Transfer moves value between accounts. A Transfer whose To is the
// zero address is the canonical burn signal (see package replay).
type Transfer struct {
	Coordinates
	From   common.Address
	To     common.Address
	Amount *big.Int
}

// Burn destroys value held by an account. A Burn may be a redundant
// restatement of a transfer-to-zero in the same causal unit.
type Burn struct {
	Coordinates
	From   common.Address
	Amount *big.Int
}

func (Mint) isLedgerEvent()     {}
func (Transfer) isLedgerEvent() {}
func (Burn) isLedgerEvent()     {}

// Value returns the minted amount.
func (m Mint) Value() *big.Int { return m.Amount }

// Value returns the transferred amount.
func (t Transfer) Value() *big.Int { return t.Amount }

// Value returns the burned amount.
func (b Burn) Value() *big.Int { return b.Amount }

// ToZero reports whether the transfer targets the zero address, making
// it a canonical burn signal.
func (t Transfer) ToZero() bool { return t.To == (common.Address{}) }

// Kind names for raw records. The normalizer matches these tags; any
// other tag (e.g. Approval) is skipped without diagnostics.
const (
	KindMint     = "Mint"
	KindTransfer = "Transfer"
	KindBurn     = "Burn"
)

// RawRecord is the untyped schema consumed by the normalizer. Sources
// produce it from chain logs, cache rows, or fixture entries.
type RawRecord struct {
	// Kind is the string event tag: "Mint", "Transfer", or "Burn".
	Kind string

	// Args holds the kind-specific arguments as ledger-native
	// encodings: hex addresses under "from"/"to", a decimal or 0x-hex
	// amount under "value".
	Args map[string]string

	// Unit is the causal unit id (transaction hash).
	Unit string

	// Block and TxIndex are the unit's global order.
	Block   uint64
	TxIndex uint

	// LogIndex is the local order within the unit; nil when absent.
	LogIndex *uint
}

// coordinates builds the typed coordinates for a record at the given
// arrival position.
func (r RawRecord) coordinates(arrival int) Coordinates {
	c := Coordinates{
		Unit:    r.Unit,
		Block:   r.Block,
		TxIndex: r.TxIndex,
		Arrival: arrival,
	}
	if r.LogIndex != nil {
		c.LogIndex = *r.LogIndex
		c.HasLogIndex = true
	}
	return c
}
