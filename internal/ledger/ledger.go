package ledger

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the null-account sentinel. Transfers to it are burn
// signals; mints to it are rejected.
var ZeroAddress = common.Address{}

// State is the ledger aggregate: account balances plus a total-issuance
// counter. Absent balance entries are implicitly zero.
//
// State is not safe for concurrent use. Replay is strictly sequential
// and each reconstruction owns a fresh State.
type State struct {
	balances    map[common.Address]*big.Int
	totalIssued *big.Int
}

// NewState creates an empty ledger: no balances, zero issuance.
func NewState() *State {
	return &State{
		balances:    make(map[common.Address]*big.Int),
		totalIssued: new(big.Int),
	}
}

// Mint credits amount to the recipient and grows total issuance.
//
// Preconditions (checked in order, mirroring the contract):
//   - to must not be the zero address (CodeZeroAddress)
//   - amount must be positive (CodeZeroAmount)
func (s *State) Mint(to common.Address, amount *big.Int) error {
	if to == ZeroAddress {
		return &PreconditionError{Code: CodeZeroAddress, Op: "mint", Address: to, Amount: cloneAmount(amount)}
	}
	if amount == nil || amount.Sign() <= 0 {
		return &PreconditionError{Code: CodeZeroAmount, Op: "mint", Address: to, Amount: cloneAmount(amount)}
	}

	s.credit(to, amount)
	s.totalIssued.Add(s.totalIssued, amount)
	return nil
}

// Transfer moves amount from one account to another. Total issuance is
// unchanged.
//
// Preconditions (checked in order):
//   - to must not be the zero address (CodeZeroAddress); burns are
//     expressed through Burn, not through transfers to zero
//   - amount must be positive (CodeZeroAmount)
//   - from must hold at least amount (CodeInsufficientBalance)
//
// On failure no balance is touched.
func (s *State) Transfer(from, to common.Address, amount *big.Int) error {
	if to == ZeroAddress {
		return &PreconditionError{Code: CodeZeroAddress, Op: "transfer", Address: to, Amount: cloneAmount(amount)}
	}
	if amount == nil || amount.Sign() <= 0 {
		return &PreconditionError{Code: CodeZeroAmount, Op: "transfer", Address: from, Amount: cloneAmount(amount)}
	}
	if err := s.checkFunds("transfer", from, amount); err != nil {
		return err
	}

	s.debit(from, amount)
	s.credit(to, amount)
	return nil
}

// Burn debits amount from the holder and shrinks total issuance.
//
// Preconditions (checked in order):
//   - amount must be positive (CodeZeroAmount)
//   - from must hold at least amount (CodeInsufficientBalance)
func (s *State) Burn(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return &PreconditionError{Code: CodeZeroAmount, Op: "burn", Address: from, Amount: cloneAmount(amount)}
	}
	if err := s.checkFunds("burn", from, amount); err != nil {
		return err
	}

	s.debit(from, amount)
	s.totalIssued.Sub(s.totalIssued, amount)
	return nil
}

// Balance returns a copy of the balance held by addr. Unknown addresses
// hold zero.
func (s *State) Balance(addr common.Address) *big.Int {
	if bal, ok := s.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalIssued returns a copy of the total-issuance counter.
func (s *State) TotalIssued() *big.Int {
	return new(big.Int).Set(s.totalIssued)
}

// Holders returns the number of accounts with a non-zero balance.
func (s *State) Holders() int {
	return len(s.balances)
}

// VerifyInvariant scans all balances and reports whether their sum
// equals total issuance. A false result after a successful replay is an
// engine defect, never tolerated silently.
func (s *State) VerifyInvariant() bool {
	sum := new(big.Int)
	for _, bal := range s.balances {
		sum.Add(sum, bal)
	}
	return sum.Cmp(s.totalIssued) == 0
}

// Entry is one row of a Snapshot.
type Entry struct {
	Address common.Address
	Balance *big.Int
}

// Snapshot returns all non-zero balances sorted by address, plus the
// issuance counter. The ordering is deterministic so snapshots can back
// golden comparisons.
func (s *State) Snapshot() ([]Entry, *big.Int) {
	entries := make([]Entry, 0, len(s.balances))
	for addr, bal := range s.balances {
		entries = append(entries, Entry{Address: addr, Balance: new(big.Int).Set(bal)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Address.Hex() < entries[j].Address.Hex()
	})
	return entries, s.TotalIssued()
}

// checkFunds verifies from holds at least amount.
func (s *State) checkFunds(op string, from common.Address, amount *big.Int) error {
	available := s.Balance(from)
	if available.Cmp(amount) < 0 {
		return &PreconditionError{
			Code:      CodeInsufficientBalance,
			Op:        op,
			Address:   from,
			Amount:    cloneAmount(amount),
			Available: available,
		}
	}
	return nil
}

// credit adds amount to addr's balance.
func (s *State) credit(addr common.Address, amount *big.Int) {
	if bal, ok := s.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	s.balances[addr] = new(big.Int).Set(amount)
}

// debit subtracts amount from addr's balance, dropping the entry when it
// reaches zero so snapshots stay minimal. Callers must have verified
// funds first.
func (s *State) debit(addr common.Address, amount *big.Int) {
	bal := s.balances[addr]
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(s.balances, addr)
	}
}

// cloneAmount copies an amount for error payloads, tolerating nil.
func cloneAmount(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount)
}
