package ledger

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/events"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Ledger describes the public surface of a fungible-value ledger. Every mutating operation takes the identity of its
// caller explicitly and is atomic.
type Ledger interface {
	// BalanceOf returns the balance held by id.
	BalanceOf(id common.Address) (*uint256.Int, error)

	// TotalSupply returns the sum of all balances.
	TotalSupply() (*uint256.Int, error)

	// Allowance returns the amount spender may move out of owner's balance.
	Allowance(owner common.Address, spender common.Address) (*uint256.Int, error)

	// Approve sets the allowance of spender over caller's balance to amount.
	Approve(caller common.Address, spender common.Address, amount *uint256.Int) error

	// Transfer moves amount from caller's balance to to.
	Transfer(caller common.Address, to common.Address, amount *uint256.Int) error

	// TransferFrom moves amount from from's balance to to, spending caller's allowance over from.
	TransferFrom(caller common.Address, from common.Address, to common.Address, amount *uint256.Int) error
}

// SupplyAdjuster describes the supply-adjustment primitives of a Token. It performs no caller authorization and is
// handed out only once, by NewToken, so that a wrapper can gate it.
type SupplyAdjuster interface {
	// Mint creates amount new units in to's balance.
	Mint(to common.Address, amount *uint256.Int) error

	// Burn destroys amount units from from's balance.
	Burn(from common.Address, amount *uint256.Int) error
}

// Token is a Ledger implementation over a Store.
type Token struct {
	// store describes the backing state of the token.
	store Store

	// Events describes the notifications emitted after every successful state change.
	Events TokenEvents

	// logger describes the Token's log object
	logger *logging.Logger
}

// supplyAdjuster exposes a Token's internal mint and burn.
type supplyAdjuster struct {
	token *Token
}

// NewToken creates a Token over the provided store, along with the SupplyAdjuster for it.
func NewToken(store Store) (*Token, SupplyAdjuster) {
	token := &Token{
		store:  store,
		logger: logging.GlobalLogger.NewSubLogger("module", logging.LEDGER_SERVICE),
	}
	return token, &supplyAdjuster{token: token}
}

// BalanceOf returns the balance held by id.
func (t *Token) BalanceOf(id common.Address) (*uint256.Int, error) {
	var balance *uint256.Int
	err := t.store.View(func(r StateReader) error {
		var err error
		balance, err = r.Balance(id)
		return err
	})
	return balance, err
}

// TotalSupply returns the sum of all balances.
func (t *Token) TotalSupply() (*uint256.Int, error) {
	var supply *uint256.Int
	err := t.store.View(func(r StateReader) error {
		var err error
		supply, err = r.TotalSupply()
		return err
	})
	return supply, err
}

// Allowance returns the amount spender may move out of owner's balance.
func (t *Token) Allowance(owner common.Address, spender common.Address) (*uint256.Int, error) {
	var allowance *uint256.Int
	err := t.store.View(func(r StateReader) error {
		var err error
		allowance, err = r.Allowance(owner, spender)
		return err
	})
	return allowance, err
}

// Approve sets the allowance of spender over caller's balance to amount, replacing any previous allowance.
func (t *Token) Approve(caller common.Address, spender common.Address, amount *uint256.Int) error {
	if caller == NullIdentity {
		return errors.WithStack(ErrInvalidApprover)
	}
	if spender == NullIdentity {
		return errors.WithStack(ErrInvalidSpender)
	}

	err := t.store.Update(func(w StateWriter) error {
		return w.SetAllowance(caller, spender, amount)
	})
	if err != nil {
		return err
	}
	publish(t, &t.Events.Approval, ApprovalEvent{Owner: caller, Spender: spender, Amount: amount.Clone()})
	return nil
}

// Transfer moves amount from caller's balance to to.
func (t *Token) Transfer(caller common.Address, to common.Address, amount *uint256.Int) error {
	err := t.store.Update(func(w StateWriter) error {
		return move(w, caller, to, amount)
	})
	if err != nil {
		return err
	}
	publish(t, &t.Events.Transfer, TransferEvent{From: caller, To: to, Amount: amount.Clone()})
	return nil
}

// TransferFrom moves amount from from's balance to to on behalf of caller. The caller's allowance over from is
// decreased by amount unless it is MaxAmount, which is never decremented.
func (t *Token) TransferFrom(caller common.Address, from common.Address, to common.Address, amount *uint256.Int) error {
	var remaining *uint256.Int
	err := t.store.Update(func(w StateWriter) error {
		allowance, err := w.Allowance(from, caller)
		if err != nil {
			return err
		}
		if !IsInfinite(allowance) {
			if allowance.Lt(amount) {
				return errors.Wrapf(ErrInsufficientAllowance, "allowance of %s over %s is %s, need %s",
					caller.Hex(), from.Hex(), allowance.Dec(), amount.Dec())
			}
			remaining = new(uint256.Int).Sub(allowance, amount)
			if err := w.SetAllowance(from, caller, remaining); err != nil {
				return err
			}
		}
		return move(w, from, to, amount)
	})
	if err != nil {
		return err
	}

	if remaining != nil {
		publish(t, &t.Events.Approval, ApprovalEvent{Owner: from, Spender: caller, Amount: remaining})
	}
	publish(t, &t.Events.Transfer, TransferEvent{From: from, To: to, Amount: amount.Clone()})
	return nil
}

// Mint creates amount new units in to's balance.
func (s *supplyAdjuster) Mint(to common.Address, amount *uint256.Int) error {
	if to == NullIdentity {
		return errors.WithStack(ErrInvalidReceiver)
	}

	err := s.token.store.Update(func(w StateWriter) error {
		supply, err := w.TotalSupply()
		if err != nil {
			return err
		}
		newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
		if overflow {
			return errors.Wrapf(ErrSupplyOverflow, "minting %s onto a supply of %s", amount.Dec(), supply.Dec())
		}

		// A balance never exceeds the supply, so it cannot overflow once the supply did not.
		balance, err := w.Balance(to)
		if err != nil {
			return err
		}
		if err := w.SetBalance(to, balance.Add(balance, amount)); err != nil {
			return err
		}
		return w.SetTotalSupply(newSupply)
	})
	if err != nil {
		return err
	}
	publish(s.token, &s.token.Events.Transfer, TransferEvent{From: NullIdentity, To: to, Amount: amount.Clone()})
	return nil
}

// Burn destroys amount units from from's balance.
func (s *supplyAdjuster) Burn(from common.Address, amount *uint256.Int) error {
	if from == NullIdentity {
		return errors.WithStack(ErrInvalidSender)
	}

	err := s.token.store.Update(func(w StateWriter) error {
		balance, err := w.Balance(from)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return errors.Wrapf(ErrInsufficientBalance, "burning %s from %s holding %s", amount.Dec(), from.Hex(), balance.Dec())
		}
		supply, err := w.TotalSupply()
		if err != nil {
			return err
		}
		if err := w.SetBalance(from, balance.Sub(balance, amount)); err != nil {
			return err
		}
		return w.SetTotalSupply(supply.Sub(supply, amount))
	})
	if err != nil {
		return err
	}
	publish(s.token, &s.token.Events.Transfer, TransferEvent{From: from, To: NullIdentity, Amount: amount.Clone()})
	return nil
}

// publish emits an event for a change that is already committed. A failing subscriber cannot undo the change, so its
// error is logged instead of being returned as the operation's result.
func publish[T any](t *Token, emitter *events.EventEmitter[T], event T) {
	if err := emitter.Publish(event); err != nil {
		t.logger.Warn("Event subscriber failed after a committed ledger change", err)
	}
}

// move debits from and credits to by amount within a single update.
func move(w StateWriter, from common.Address, to common.Address, amount *uint256.Int) error {
	if from == NullIdentity {
		return errors.WithStack(ErrInvalidSender)
	}
	if to == NullIdentity {
		return errors.WithStack(ErrInvalidReceiver)
	}

	fromBalance, err := w.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "moving %s from %s holding %s", amount.Dec(), from.Hex(), fromBalance.Dec())
	}
	if err := w.SetBalance(from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}

	// Re-read after the debit so a self-transfer nets out to no change.
	toBalance, err := w.Balance(to)
	if err != nil {
		return err
	}
	return w.SetBalance(to, toBalance.Add(toBalance, amount))
}
