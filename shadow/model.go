// Package shadow provides an independent record of the ledger state a handler expects to observe.
package shadow

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrUnderflow is returned when an expected debit exceeds the expected balance, allowance or supply.
var ErrUnderflow = errors.New("shadow amount underflow")

// ErrOverflow is returned when an expected credit exceeds the representable range.
var ErrOverflow = errors.New("shadow amount overflow")

// pair identifies an (owner, spender) allowance.
type pair struct {
	owner   common.Address
	spender common.Address
}

// Model tracks expected balances, allowances and supply. It is updated in lockstep with every dispatched ledger
// action and never reads the ledger itself. Identities never written read as zero.
type Model struct {
	balances   map[common.Address]*uint256.Int
	allowances map[pair]*uint256.Int
	supply     *uint256.Int
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[pair]*uint256.Int),
		supply:     new(uint256.Int),
	}
}

// Balance returns the expected balance of id.
func (m *Model) Balance(id common.Address) *uint256.Int {
	if balance, ok := m.balances[id]; ok {
		return balance.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns the expected allowance of spender over owner's balance.
func (m *Model) Allowance(owner common.Address, spender common.Address) *uint256.Int {
	if allowance, ok := m.allowances[pair{owner, spender}]; ok {
		return allowance.Clone()
	}
	return new(uint256.Int)
}

// Supply returns the expected total supply.
func (m *Model) Supply() *uint256.Int {
	return m.supply.Clone()
}

// Approved records that owner set spender's allowance to amount.
func (m *Model) Approved(owner common.Address, spender common.Address, amount *uint256.Int) {
	m.allowances[pair{owner, spender}] = amount.Clone()
}

// Transferred records a move of amount from from to to.
func (m *Model) Transferred(from common.Address, to common.Address, amount *uint256.Int) error {
	fromBalance := m.Balance(from)
	if fromBalance.Lt(amount) {
		return errors.Wrapf(ErrUnderflow, "expected balance of %s is %s, cannot debit %s", from.Hex(), fromBalance.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}

	toBalance := m.Balance(to)
	if _, overflow := toBalance.AddOverflow(toBalance, amount); overflow {
		return errors.Wrapf(ErrOverflow, "crediting %s to %s", amount.Dec(), to.Hex())
	}
	m.balances[from] = fromBalance.Sub(fromBalance, amount)
	m.balances[to] = toBalance
	return nil
}

// SpentAllowance records that spender moved amount on owner's behalf. An infinite allowance is left untouched.
func (m *Model) SpentAllowance(owner common.Address, spender common.Address, amount *uint256.Int) error {
	allowance := m.Allowance(owner, spender)
	if allowance.Eq(maxAmount) {
		return nil
	}
	if allowance.Lt(amount) {
		return errors.Wrapf(ErrUnderflow, "expected allowance of %s over %s is %s, cannot spend %s",
			spender.Hex(), owner.Hex(), allowance.Dec(), amount.Dec())
	}
	m.allowances[pair{owner, spender}] = allowance.Sub(allowance, amount)
	return nil
}

// Minted records that amount was created in to's balance.
func (m *Model) Minted(to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(m.supply, amount)
	if overflow {
		return errors.Wrapf(ErrOverflow, "minting %s onto expected supply %s", amount.Dec(), m.supply.Dec())
	}
	balance := m.Balance(to)
	if _, overflow := balance.AddOverflow(balance, amount); overflow {
		return errors.Wrapf(ErrOverflow, "minting %s to %s", amount.Dec(), to.Hex())
	}
	m.balances[to] = balance
	m.supply = supply
	return nil
}

// Burned records that amount was destroyed from from's balance.
func (m *Model) Burned(from common.Address, amount *uint256.Int) error {
	balance := m.Balance(from)
	if balance.Lt(amount) {
		return errors.Wrapf(ErrUnderflow, "expected balance of %s is %s, cannot burn %s", from.Hex(), balance.Dec(), amount.Dec())
	}
	if m.supply.Lt(amount) {
		return errors.Wrapf(ErrUnderflow, "expected supply is %s, cannot burn %s", m.supply.Dec(), amount.Dec())
	}
	m.balances[from] = balance.Sub(balance, amount)
	m.supply = new(uint256.Int).Sub(m.supply, amount)
	return nil
}

// Snapshot is an immutable copy of the expected values for a set of identities, used for diagnostics.
type Snapshot struct {
	Balances map[common.Address]*uint256.Int
	Supply   *uint256.Int
}

// Snapshot copies the expected balances of the provided identities along with the expected supply.
func (m *Model) Snapshot(ids ...common.Address) Snapshot {
	snapshot := Snapshot{
		Balances: make(map[common.Address]*uint256.Int, len(ids)),
		Supply:   m.Supply(),
	}
	for _, id := range ids {
		snapshot.Balances[id] = m.Balance(id)
	}
	return snapshot
}

var maxAmount = new(uint256.Int).SetAllOne()
