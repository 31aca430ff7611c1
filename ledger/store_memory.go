package ledger

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// MemoryStore is an in-memory Store. Updates record the previous value of every written slot in a journal, which is
// replayed backward if the update fails.
type MemoryStore struct {
	balances    map[common.Address]uint256.Int
	allowances  map[allowanceKey]uint256.Int
	totalSupply uint256.Int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:   make(map[common.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

// View runs fn against the current state.
func (s *MemoryStore) View(fn func(StateReader) error) error {
	return fn(&memoryTx{store: s})
}

// Update runs fn and rolls back every write it made if it returns an error.
func (s *MemoryStore) Update(fn func(StateWriter) error) error {
	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Reset clears all state.
func (s *MemoryStore) Reset() error {
	s.balances = make(map[common.Address]uint256.Int)
	s.allowances = make(map[allowanceKey]uint256.Int)
	s.totalSupply.Clear()
	return nil
}

// Close is a no-op for a MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// memoryTx is the StateWriter handed to MemoryStore.Update callbacks.
type memoryTx struct {
	store   *MemoryStore
	journal []func()
}

func (tx *memoryTx) Balance(id common.Address) (*uint256.Int, error) {
	balance := tx.store.balances[id]
	return balance.Clone(), nil
}

func (tx *memoryTx) Allowance(owner common.Address, spender common.Address) (*uint256.Int, error) {
	allowance := tx.store.allowances[allowanceKey{owner: owner, spender: spender}]
	return allowance.Clone(), nil
}

func (tx *memoryTx) TotalSupply() (*uint256.Int, error) {
	return tx.store.totalSupply.Clone(), nil
}

func (tx *memoryTx) SetBalance(id common.Address, amount *uint256.Int) error {
	previous, existed := tx.store.balances[id]
	tx.journal = append(tx.journal, func() {
		if existed {
			tx.store.balances[id] = previous
		} else {
			delete(tx.store.balances, id)
		}
	})
	tx.store.balances[id] = *amount
	return nil
}

func (tx *memoryTx) SetAllowance(owner common.Address, spender common.Address, amount *uint256.Int) error {
	key := allowanceKey{owner: owner, spender: spender}
	previous, existed := tx.store.allowances[key]
	tx.journal = append(tx.journal, func() {
		if existed {
			tx.store.allowances[key] = previous
		} else {
			delete(tx.store.allowances, key)
		}
	})
	tx.store.allowances[key] = *amount
	return nil
}

func (tx *memoryTx) SetTotalSupply(amount *uint256.Int) error {
	previous := tx.store.totalSupply
	tx.journal = append(tx.journal, func() {
		tx.store.totalSupply = previous
	})
	tx.store.totalSupply = *amount
	return nil
}

// rollback undoes every journaled write in reverse order.
func (tx *memoryTx) rollback() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		tx.journal[i]()
	}
	tx.journal = nil
}
