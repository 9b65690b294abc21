package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PreconditionCode categorizes precondition failures.
type PreconditionCode string

const (
	// CodeZeroAddress indicates a required recipient is the zero address.
	CodeZeroAddress PreconditionCode = "ZERO_ADDRESS"

	// CodeZeroAmount indicates a zero or non-positive amount.
	CodeZeroAmount PreconditionCode = "ZERO_AMOUNT"

	// CodeInsufficientBalance indicates the source account cannot cover
	// the requested amount.
	CodeInsufficientBalance PreconditionCode = "INSUFFICIENT_BALANCE"
)

// PreconditionError is returned when a state machine operation rejects
// its inputs. The operation did not mutate any state.
//
// During replay of historical events this is treated as fatal by the
// caller; during pre-flight validation it is the expected negative
// outcome.
type PreconditionError struct {
	// Code identifies the failed precondition.
	Code PreconditionCode

	// Op is the rejected operation: "mint", "transfer", or "burn".
	Op string

	// Address is the account the failure refers to, when relevant.
	Address common.Address

	// Amount is the requested amount.
	Amount *big.Int

	// Available is the balance actually held, set for
	// CodeInsufficientBalance only.
	Available *big.Int
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	switch e.Code {
	case CodeInsufficientBalance:
		return fmt.Sprintf("%s: %s %s from %s exceeds balance %s",
			e.Code, e.Op, e.Amount, e.Address.Hex(), e.Available)
	case CodeZeroAddress:
		return fmt.Sprintf("%s: %s to the zero address", e.Code, e.Op)
	default:
		return fmt.Sprintf("%s: %s amount must be positive", e.Code, e.Op)
	}
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// PreconditionCodeOf extracts the code from a precondition error.
// Returns the empty code if err is not a PreconditionError.
func PreconditionCodeOf(err error) PreconditionCode {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
