// Package harness restricts the supply-adjustment primitives of a ledger to a single authorized caller, leaving the
// ordinary ledger surface untouched.
package harness

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrUnauthorized is returned when a caller other than the authorized identity attempts to mint or burn.
var ErrUnauthorized = errors.New("unauthorized caller")

// PrivilegedToken wraps a ledger.Ledger with mint and burn operations gated on one authorized caller. Approve,
// Transfer, TransferFrom and all reads pass through to the wrapped ledger.
type PrivilegedToken struct {
	ledger.Ledger

	// supply describes the ungated supply primitives of the wrapped ledger.
	supply ledger.SupplyAdjuster

	// authorized describes the only identity allowed to adjust supply.
	authorized common.Address
}

// New creates a PrivilegedToken over the provided ledger and its supply primitives, authorizing a single caller.
func New(base ledger.Ledger, supply ledger.SupplyAdjuster, authorized common.Address) *PrivilegedToken {
	return &PrivilegedToken{
		Ledger:     base,
		supply:     supply,
		authorized: authorized,
	}
}

// Authorized returns the identity allowed to mint and burn.
func (p *PrivilegedToken) Authorized() common.Address {
	return p.authorized
}

// Mint creates amount units in to's balance if caller is authorized.
func (p *PrivilegedToken) Mint(caller common.Address, to common.Address, amount *uint256.Int) error {
	if err := p.authorize(caller); err != nil {
		return err
	}
	return p.supply.Mint(to, amount)
}

// Burn destroys amount units from from's balance if caller is authorized.
func (p *PrivilegedToken) Burn(caller common.Address, from common.Address, amount *uint256.Int) error {
	if err := p.authorize(caller); err != nil {
		return err
	}
	return p.supply.Burn(from, amount)
}

func (p *PrivilegedToken) authorize(caller common.Address) error {
	if caller != p.authorized {
		return errors.Wrapf(ErrUnauthorized, "%s may not adjust supply", caller.Hex())
	}
	return nil
}
