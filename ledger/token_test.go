package ledger

import (
	"path/filepath"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x10000")
	bob   = common.HexToAddress("0x20000")
	carol = common.HexToAddress("0x30000")
)

// storeFactory creates a fresh Store for a test.
type storeFactory func(t *testing.T) Store

// storeFactories returns every Store implementation so that each test runs against all of them.
func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"bolt": func(t *testing.T) Store {
			store, err := NewBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() {
				assert.NoError(t, store.Close())
			})
			return store
		},
	}
}

// forEachStore runs the provided test once per Store implementation.
func forEachStore(t *testing.T, test func(t *testing.T, token *Token, supply SupplyAdjuster)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			token, supply := NewToken(factory(t))
			test(t, token, supply)
		})
	}
}

func requireBalance(t *testing.T, token *Token, id common.Address, expected uint64) {
	balance, err := token.BalanceOf(id)
	require.NoError(t, err)
	assert.EqualValues(t, expected, balance.Uint64(), "balance of %s", id.Hex())
}

func requireSupply(t *testing.T, token *Token, expected uint64) {
	supply, err := token.TotalSupply()
	require.NoError(t, err)
	assert.EqualValues(t, expected, supply.Uint64())
}

// TestMintBurn verifies supply adjustment and its failure modes.
func TestMintBurn(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		require.NoError(t, supply.Mint(alice, uint256.NewInt(1000)))
		requireBalance(t, token, alice, 1000)
		requireSupply(t, token, 1000)

		require.NoError(t, supply.Burn(alice, uint256.NewInt(400)))
		requireBalance(t, token, alice, 600)
		requireSupply(t, token, 600)

		assert.ErrorIs(t, supply.Mint(NullIdentity, uint256.NewInt(1)), ErrInvalidReceiver)
		assert.ErrorIs(t, supply.Burn(NullIdentity, uint256.NewInt(0)), ErrInvalidSender)
		assert.ErrorIs(t, supply.Burn(alice, uint256.NewInt(601)), ErrInsufficientBalance)
		assert.ErrorIs(t, supply.Mint(bob, MaxAmount()), ErrSupplyOverflow)

		// Failed operations leave no trace
		requireBalance(t, token, alice, 600)
		requireBalance(t, token, bob, 0)
		requireSupply(t, token, 600)
	})
}

// TestTransfer verifies direct transfers, including self transfers and the failure modes of a transfer.
func TestTransfer(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		require.NoError(t, supply.Mint(alice, uint256.NewInt(1000)))

		require.NoError(t, token.Transfer(alice, bob, uint256.NewInt(250)))
		requireBalance(t, token, alice, 750)
		requireBalance(t, token, bob, 250)

		require.NoError(t, token.Transfer(alice, alice, uint256.NewInt(750)))
		requireBalance(t, token, alice, 750)

		require.NoError(t, token.Transfer(carol, bob, uint256.NewInt(0)))
		requireBalance(t, token, bob, 250)

		assert.ErrorIs(t, token.Transfer(alice, NullIdentity, uint256.NewInt(1)), ErrInvalidReceiver)
		assert.ErrorIs(t, token.Transfer(NullIdentity, alice, uint256.NewInt(0)), ErrInvalidSender)
		assert.ErrorIs(t, token.Transfer(bob, alice, uint256.NewInt(251)), ErrInsufficientBalance)

		requireBalance(t, token, alice, 750)
		requireBalance(t, token, bob, 250)
		requireSupply(t, token, 1000)
	})
}

// TestTransferFrom verifies delegated transfers spend a finite allowance and fail atomically.
func TestTransferFrom(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		require.NoError(t, supply.Mint(alice, uint256.NewInt(1000)))
		require.NoError(t, token.Approve(alice, bob, uint256.NewInt(300)))

		require.NoError(t, token.TransferFrom(bob, alice, carol, uint256.NewInt(300)))
		requireBalance(t, token, alice, 700)
		requireBalance(t, token, carol, 300)
		allowance, err := token.Allowance(alice, bob)
		require.NoError(t, err)
		assert.True(t, allowance.IsZero())

		err = token.TransferFrom(bob, alice, carol, uint256.NewInt(1))
		assert.ErrorIs(t, err, ErrInsufficientAllowance)

		// Allowance is checked and spent in the same transaction as the balance move, so an insufficient
		// balance must leave the allowance untouched.
		require.NoError(t, token.Approve(alice, bob, uint256.NewInt(5000)))
		err = token.TransferFrom(bob, alice, carol, uint256.NewInt(701))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		allowance, err = token.Allowance(alice, bob)
		require.NoError(t, err)
		assert.EqualValues(t, 5000, allowance.Uint64())

		assert.ErrorIs(t, token.TransferFrom(bob, alice, NullIdentity, uint256.NewInt(1)), ErrInvalidReceiver)
		requireBalance(t, token, alice, 700)
		requireSupply(t, token, 1000)
	})
}

// TestInfiniteAllowance verifies that a maximum allowance is never decremented by delegated transfers.
func TestInfiniteAllowance(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		require.NoError(t, supply.Mint(alice, uint256.NewInt(1000)))
		require.NoError(t, token.Approve(alice, bob, MaxAmount()))

		for i := 0; i < 10; i++ {
			require.NoError(t, token.TransferFrom(bob, alice, carol, uint256.NewInt(100)))
			allowance, err := token.Allowance(alice, bob)
			require.NoError(t, err)
			assert.True(t, IsInfinite(allowance))
		}
		requireBalance(t, token, alice, 0)
		requireBalance(t, token, carol, 1000)
	})
}

// TestApproveValidation verifies that the null identity can neither grant nor receive an allowance.
func TestApproveValidation(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		assert.ErrorIs(t, token.Approve(alice, NullIdentity, uint256.NewInt(1)), ErrInvalidSpender)
		assert.ErrorIs(t, token.Approve(NullIdentity, alice, uint256.NewInt(1)), ErrInvalidApprover)

		require.NoError(t, token.Approve(alice, bob, uint256.NewInt(7)))
		require.NoError(t, token.Approve(alice, bob, uint256.NewInt(3)))
		allowance, err := token.Allowance(alice, bob)
		require.NoError(t, err)
		assert.EqualValues(t, 3, allowance.Uint64())
	})
}

// TestTokenEvents verifies the notifications emitted for each successful state change, and that failed operations
// emit nothing.
func TestTokenEvents(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		var transfers []TransferEvent
		var approvals []ApprovalEvent
		token.Events.Transfer.Subscribe(func(event TransferEvent) error {
			transfers = append(transfers, event)
			return nil
		})
		token.Events.Approval.Subscribe(func(event ApprovalEvent) error {
			approvals = append(approvals, event)
			return nil
		})

		require.NoError(t, supply.Mint(alice, uint256.NewInt(100)))
		require.NoError(t, token.Approve(alice, bob, uint256.NewInt(60)))
		require.NoError(t, token.TransferFrom(bob, alice, carol, uint256.NewInt(40)))
		require.NoError(t, supply.Burn(carol, uint256.NewInt(10)))
		assert.Error(t, token.Transfer(bob, alice, uint256.NewInt(1)))

		require.Len(t, transfers, 3)
		assert.Equal(t, NullIdentity, transfers[0].From)
		assert.Equal(t, alice, transfers[0].To)
		assert.Equal(t, carol, transfers[1].To)
		assert.EqualValues(t, 40, transfers[1].Amount.Uint64())
		assert.Equal(t, NullIdentity, transfers[2].To)

		require.Len(t, approvals, 2)
		assert.EqualValues(t, 60, approvals[0].Amount.Uint64())
		assert.EqualValues(t, 20, approvals[1].Amount.Uint64())
	})
}

// TestTokenEventsSubscriberFailure verifies that a failing subscriber does not turn a committed operation into a
// reported failure.
func TestTokenEventsSubscriberFailure(t *testing.T) {
	forEachStore(t, func(t *testing.T, token *Token, supply SupplyAdjuster) {
		failure := errors.New("subscriber failed")
		token.Events.Transfer.Subscribe(func(TransferEvent) error { return failure })
		token.Events.Approval.Subscribe(func(ApprovalEvent) error { return failure })

		require.NoError(t, supply.Mint(alice, uint256.NewInt(100)))
		require.NoError(t, token.Transfer(alice, bob, uint256.NewInt(30)))
		require.NoError(t, token.Approve(bob, carol, uint256.NewInt(20)))
		require.NoError(t, token.TransferFrom(carol, bob, alice, uint256.NewInt(5)))
		require.NoError(t, supply.Burn(alice, uint256.NewInt(10)))

		requireBalance(t, token, alice, 65)
		requireBalance(t, token, bob, 25)
		requireSupply(t, token, 90)
		allowance, err := token.Allowance(bob, carol)
		require.NoError(t, err)
		assert.EqualValues(t, 15, allowance.Uint64())
	})
}

// TestStoreReset verifies that resetting a store clears all state.
func TestStoreReset(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			token, supply := NewToken(store)
			require.NoError(t, supply.Mint(alice, uint256.NewInt(100)))
			require.NoError(t, token.Approve(alice, bob, uint256.NewInt(5)))

			require.NoError(t, store.Reset())
			requireBalance(t, token, alice, 0)
			requireSupply(t, token, 0)
			allowance, err := token.Allowance(alice, bob)
			require.NoError(t, err)
			assert.True(t, allowance.IsZero())
		})
	}
}
