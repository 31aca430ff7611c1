package handler

import (
	"github.com/holiman/uint256"
)

var (
	maxAmount = new(uint256.Int).SetAllOne()
	three     = uint256.NewInt(3)
	one       = uint256.NewInt(1)
)

// Bound maps x into the inclusive range [min, max]. Values already in range are returned unchanged. Small values
// (0 to 3) map to the bottom of the range and values within 3 of the maximum representable amount map to the top of
// it, so edge cases stay reachable. Everything else wraps around the range. Bound is total: if max < min, min is
// returned. The result is always a new value.
func Bound(x, min, max *uint256.Int) *uint256.Int {
	if max.Lt(min) {
		return min.Clone()
	}
	if !x.Lt(min) && !x.Gt(max) {
		return x.Clone()
	}

	// size wraps to zero only for the full range, which returned above
	size := new(uint256.Int).Sub(max, min)
	size.Add(size, one)

	// Small values map to the bottom of the range.
	if !x.Gt(three) && size.Gt(x) {
		return new(uint256.Int).Add(min, x)
	}

	// Values near the representable maximum map to the top of the range.
	fromTop := new(uint256.Int).Sub(maxAmount, x)
	if !fromTop.Gt(three) && size.Gt(fromTop) {
		return new(uint256.Int).Sub(max, fromTop)
	}

	if x.Gt(max) {
		diff := new(uint256.Int).Sub(x, max)
		rem := diff.Mod(diff, size)
		if rem.IsZero() {
			return max.Clone()
		}
		rem.Add(rem, min)
		return rem.Sub(rem, one)
	}

	diff := new(uint256.Int).Sub(min, x)
	rem := diff.Mod(diff, size)
	if rem.IsZero() {
		return min.Clone()
	}
	result := new(uint256.Int).Sub(max, rem)
	return result.Add(result, one)
}

// BoundIndex reduces seed modulo n into a valid index. It returns 0 if n is not positive.
func BoundIndex(seed *uint256.Int, n int) int {
	if n <= 0 {
		return 0
	}
	return int(new(uint256.Int).Mod(seed, uint256.NewInt(uint64(n))).Uint64())
}

// ApproveAmount bounds an approval over the full representable range, including the infinite allowance sentinel.
func ApproveAmount(raw *uint256.Int) *uint256.Int {
	return Bound(raw, new(uint256.Int), maxAmount)
}

// BalanceAmount bounds a debit to the balance it is drawn from. A zero balance collapses the range to [0, 0].
func BalanceAmount(raw *uint256.Int, balance *uint256.Int) *uint256.Int {
	return Bound(raw, new(uint256.Int), balance)
}

// MintAmount bounds a mint to the ceiling, further limited by the headroom left above the current supply so the
// supply can never overflow.
func MintAmount(raw *uint256.Int, ceiling *uint256.Int, supply *uint256.Int) *uint256.Int {
	limit := new(uint256.Int).Sub(maxAmount, supply)
	if ceiling.Lt(limit) {
		limit.Set(ceiling)
	}
	return Bound(raw, new(uint256.Int), limit)
}
