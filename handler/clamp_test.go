package handler

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// TestBound verifies the mapping of raw values into a range, including the edge biasing and wraparound rules.
func TestBound(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	testCases := []struct {
		name     string
		x        *uint256.Int
		min      *uint256.Int
		max      *uint256.Int
		expected *uint256.Int
	}{
		{"in range", u(50), u(10), u(100), u(50)},
		{"lower edge", u(10), u(10), u(100), u(10)},
		{"upper edge", u(100), u(10), u(100), u(100)},
		{"small value biased to min", u(2), u(10), u(100), u(12)},
		{"near max biased to max", new(uint256.Int).Sub(max, u(1)), u(10), u(100), u(99)},
		{"max maps to max", max, u(10), u(100), u(100)},
		{"wraps above", u(101), u(10), u(100), u(10)},
		{"wraps above exact multiple", u(191), u(10), u(100), u(100)},
		{"wraps below", u(5), u(10), u(20), u(16)},
		{"collapsed range", u(12345), u(0), u(0), u(0)},
		{"inverted range yields min", u(7), u(9), u(3), u(9)},
		{"full range identity", u(424242), u(0), max, u(424242)},
		{"full range sentinel", max, u(0), max, max},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := Bound(tc.x, tc.min, tc.max)
			assert.True(t, tc.expected.Eq(actual), "expected %s, got %s", tc.expected.Dec(), actual.Dec())
		})
	}
}

// TestBoundTotal verifies that Bound never escapes its range for random inputs and never modifies its arguments.
func TestBoundTotal(t *testing.T) {
	randomProvider := rand.New(rand.NewSource(1))
	randomInt := func() *uint256.Int {
		b := make([]byte, randomProvider.Intn(33))
		randomProvider.Read(b)
		return new(uint256.Int).SetBytes(b)
	}

	for i := 0; i < 2000; i++ {
		x, lo, hi := randomInt(), randomInt(), randomInt()
		if hi.Lt(lo) {
			lo, hi = hi, lo
		}
		xCopy, loCopy, hiCopy := x.Clone(), lo.Clone(), hi.Clone()

		result := Bound(x, lo, hi)
		assert.False(t, result.Lt(lo), "%s below %s", result.Dec(), lo.Dec())
		assert.False(t, result.Gt(hi), "%s above %s", result.Dec(), hi.Dec())
		assert.True(t, x.Eq(xCopy) && lo.Eq(loCopy) && hi.Eq(hiCopy))
	}
}

// TestBoundIndex verifies seeds reduce into valid indices.
func TestBoundIndex(t *testing.T) {
	assert.Equal(t, 0, BoundIndex(u(10), 5))
	assert.Equal(t, 3, BoundIndex(u(13), 5))
	assert.Equal(t, 0, BoundIndex(u(13), 0))
	assert.Equal(t, 0, BoundIndex(new(uint256.Int).SetAllOne(), 1))

	// 2^256 = 1 mod 5, so 2^256-1 is a multiple of 5
	assert.Equal(t, 0, BoundIndex(new(uint256.Int).SetAllOne(), 5))
}

// TestMintAmount verifies mints stay below both the ceiling and the supply headroom.
func TestMintAmount(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	ceiling := u(1_000_000)

	assert.True(t, MintAmount(u(500), ceiling, u(0)).Eq(u(500)))
	assert.True(t, MintAmount(max, ceiling, u(0)).Eq(ceiling))

	nearlyFull := new(uint256.Int).Sub(max, u(10))
	for _, raw := range []*uint256.Int{u(0), u(5), u(10), u(11), u(999_999), max} {
		amount := MintAmount(raw, ceiling, nearlyFull)
		assert.False(t, amount.Gt(u(10)), "mint of %s onto a nearly full supply", amount.Dec())
	}
	assert.True(t, MintAmount(max, ceiling, max).IsZero())
}

// TestBalanceAmount verifies debits never exceed the balance and collapse to zero for an empty balance.
func TestBalanceAmount(t *testing.T) {
	assert.True(t, BalanceAmount(u(999), u(0)).IsZero())
	assert.True(t, BalanceAmount(new(uint256.Int).SetAllOne(), u(1000)).Eq(u(1000)))
	assert.True(t, BalanceAmount(u(1500), u(1000)).Eq(u(499)))
	assert.True(t, ApproveAmount(new(uint256.Int).SetAllOne()).Eq(new(uint256.Int).SetAllOne()))
}
