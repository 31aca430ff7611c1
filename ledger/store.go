package ledger

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// StateReader provides read access to ledger state. Returned amounts are copies and may be modified by the caller.
// Identities or pairs which were never written read as zero.
type StateReader interface {
	Balance(id common.Address) (*uint256.Int, error)
	Allowance(owner common.Address, spender common.Address) (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
}

// StateWriter provides write access to ledger state within a single Store.Update transaction.
type StateWriter interface {
	StateReader
	SetBalance(id common.Address, amount *uint256.Int) error
	SetAllowance(owner common.Address, spender common.Address, amount *uint256.Int) error
	SetTotalSupply(amount *uint256.Int) error
}

// Store describes the backing storage of a Token. Every Update is atomic: if the provided function returns an
// error, none of its writes are visible afterward.
type Store interface {
	// View runs fn against a consistent, read-only view of the state.
	View(fn func(StateReader) error) error

	// Update runs fn in a read-write transaction, committing its writes only if fn returns nil.
	Update(fn func(StateWriter) error) error

	// Reset clears all balances, allowances and supply so the store can back a fresh campaign run.
	Reset() error

	// Close releases any resources held by the store.
	Close() error
}

// allowanceKey identifies an (owner, spender) pair.
type allowanceKey struct {
	owner   common.Address
	spender common.Address
}
