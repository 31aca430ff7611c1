package shadow

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x10000")
	alice = common.HexToAddress("0x20000")
	bob   = common.HexToAddress("0x30000")
)

// TestModelLockstep applies a sequence of expected effects and verifies the resulting expectations.
func TestModelLockstep(t *testing.T) {
	m := NewModel()
	assert.True(t, m.Balance(alice).IsZero())
	assert.True(t, m.Supply().IsZero())

	require.NoError(t, m.Minted(owner, uint256.NewInt(21_000_000)))
	require.NoError(t, m.Transferred(owner, alice, uint256.NewInt(1000)))
	require.NoError(t, m.Transferred(alice, alice, uint256.NewInt(1000)))
	require.NoError(t, m.Burned(alice, uint256.NewInt(400)))

	assert.EqualValues(t, 20_999_000, m.Balance(owner).Uint64())
	assert.EqualValues(t, 600, m.Balance(alice).Uint64())
	assert.EqualValues(t, 20_999_600, m.Supply().Uint64())

	m.Approved(alice, bob, uint256.NewInt(500))
	require.NoError(t, m.SpentAllowance(alice, bob, uint256.NewInt(200)))
	assert.EqualValues(t, 300, m.Allowance(alice, bob).Uint64())
	assert.True(t, m.Allowance(bob, alice).IsZero())
}

// TestModelInfiniteAllowance verifies that a maximum allowance is never spent.
func TestModelInfiniteAllowance(t *testing.T) {
	m := NewModel()
	m.Approved(alice, bob, new(uint256.Int).SetAllOne())
	for i := 0; i < 5; i++ {
		require.NoError(t, m.SpentAllowance(alice, bob, uint256.NewInt(1_000_000)))
	}
	assert.True(t, m.Allowance(alice, bob).Eq(new(uint256.Int).SetAllOne()))
}

// TestModelRejectsImpossibleEffects verifies that effects the ledger could never apply are reported rather than
// wrapped around.
func TestModelRejectsImpossibleEffects(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Minted(alice, uint256.NewInt(10)))

	assert.ErrorIs(t, m.Transferred(alice, bob, uint256.NewInt(11)), ErrUnderflow)
	assert.ErrorIs(t, m.Burned(alice, uint256.NewInt(11)), ErrUnderflow)
	assert.ErrorIs(t, m.SpentAllowance(alice, bob, uint256.NewInt(1)), ErrUnderflow)
	assert.ErrorIs(t, m.Minted(bob, new(uint256.Int).SetAllOne()), ErrOverflow)

	assert.EqualValues(t, 10, m.Balance(alice).Uint64())
	assert.EqualValues(t, 10, m.Supply().Uint64())
}

// TestModelCopies verifies returned values and snapshots are detached from the model.
func TestModelCopies(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Minted(alice, uint256.NewInt(10)))

	balance := m.Balance(alice)
	balance.SetUint64(99)
	snapshot := m.Snapshot(alice, bob)
	require.NoError(t, m.Minted(alice, uint256.NewInt(5)))

	assert.EqualValues(t, 15, m.Balance(alice).Uint64())
	assert.EqualValues(t, 10, snapshot.Balances[alice].Uint64())
	assert.True(t, snapshot.Balances[bob].IsZero())
	assert.EqualValues(t, 10, snapshot.Supply.Uint64())
}
