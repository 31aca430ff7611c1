package handler

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// faultyStore wraps a ledger.Store and, once armed, rejects every update or read, or corrupts balances written for
// one identity. It lets tests produce the ledger misbehavior a Handler must detect.
type faultyStore struct {
	ledger.Store

	rejectUpdates bool
	rejectViews   bool
	corrupt       *common.Address
}

func (s *faultyStore) View(fn func(ledger.StateReader) error) error {
	if s.rejectViews {
		return errors.New("store rejected view")
	}
	return s.Store.View(fn)
}

func (s *faultyStore) Update(fn func(ledger.StateWriter) error) error {
	if s.rejectUpdates {
		return errors.New("store rejected update")
	}
	return s.Store.Update(func(w ledger.StateWriter) error {
		return fn(&corruptingWriter{StateWriter: w, corrupt: s.corrupt})
	})
}

// corruptingWriter adds one unit to every balance written for the corrupt identity.
type corruptingWriter struct {
	ledger.StateWriter
	corrupt *common.Address
}

func (w *corruptingWriter) SetBalance(id common.Address, amount *uint256.Int) error {
	if w.corrupt != nil && *w.corrupt == id {
		amount = new(uint256.Int).AddUint64(amount, 1)
	}
	return w.StateWriter.SetBalance(id, amount)
}

func newTestHandler(t *testing.T) *Handler {
	h, err := New(DefaultConfig(), ledger.NewMemoryStore())
	require.NoError(t, err)
	return h
}

func newFaultyHandler(t *testing.T) (*Handler, *faultyStore) {
	store := &faultyStore{Store: ledger.NewMemoryStore()}
	h, err := New(DefaultConfig(), store)
	require.NoError(t, err)
	return h, store
}

func participant(t *testing.T, h *Handler, i int) common.Address {
	id, err := h.Registry().At(i)
	require.NoError(t, err)
	return id
}

func balanceOf(t *testing.T, h *Handler, id common.Address) uint64 {
	balance, err := h.Token().BalanceOf(id)
	require.NoError(t, err)
	return balance.Uint64()
}

func totalSupply(t *testing.T, h *Handler) uint64 {
	supply, err := h.Token().TotalSupply()
	require.NoError(t, err)
	return supply.Uint64()
}

// requireHealthy asserts both invariants and full shadow fidelity.
func requireHealthy(t *testing.T, h *Handler) {
	require.NoError(t, h.Checker().CheckAll())
	require.NoError(t, h.VerifyShadow())
}

// approvalRecorder subscribes to the approvals the handler's ledger emits and returns the recorded events.
func approvalRecorder(h *Handler) *[]ledger.ApprovalEvent {
	var approvals []ledger.ApprovalEvent
	token := h.Token().Ledger.(*ledger.Token)
	token.Events.Approval.Subscribe(func(event ledger.ApprovalEvent) error {
		approvals = append(approvals, event)
		return nil
	})
	return &approvals
}

func allowanceOf(t *testing.T, h *Handler, owner common.Address, spender common.Address) uint64 {
	allowance, err := h.Token().Allowance(owner, spender)
	require.NoError(t, err)
	return allowance.Uint64()
}
