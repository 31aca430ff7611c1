package ledger

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// NullIdentity is the zero address. It can never hold a balance, receive an allowance or be minted to.
var NullIdentity = common.Address{}

// MaxAmount returns the largest representable amount, 2^256-1. An allowance of this value is treated as infinite.
func MaxAmount() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// IsInfinite returns true if the amount is the infinite allowance sentinel.
func IsInfinite(amount *uint256.Int) bool {
	return amount != nil && amount.Eq(MaxAmount())
}
