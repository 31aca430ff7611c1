package valuegeneration

import (
	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
)

// ValueSet represents values of significance to the ledger (boundaries, configured balances, amounts seen in failing
// sequences) to be used in fuzz tests. A mapping is used to avoid duplicates.
type ValueSet struct {
	integers map[uint256.Int]struct{}
}

// NewValueSet initializes a new, empty ValueSet.
func NewValueSet() *ValueSet {
	return &ValueSet{
		integers: make(map[uint256.Int]struct{}),
	}
}

// NewBoundaryValueSet initializes a ValueSet with the values where ledger arithmetic changes behavior: 0, 1, 2,
// 2^256-1 and its neighbors, and every power of two and ten that fits in 256 bits.
func NewBoundaryValueSet() *ValueSet {
	vs := NewValueSet()
	for i := uint64(0); i <= 3; i++ {
		vs.AddInteger(uint256.NewInt(i))
	}
	max := new(uint256.Int).SetAllOne()
	for i := uint64(0); i <= 3; i++ {
		vs.AddInteger(new(uint256.Int).SubUint64(max, i))
	}
	for shift := uint(0); shift < 256; shift++ {
		vs.AddInteger(new(uint256.Int).Lsh(uint256.NewInt(1), shift))
	}
	ten := uint256.NewInt(10)
	for power := uint256.NewInt(10); ; {
		vs.AddInteger(power)
		next, overflow := new(uint256.Int).MulOverflow(power, ten)
		if overflow {
			break
		}
		power = next
	}
	return vs
}

// Clone creates a copy of the current ValueSet.
func (vs *ValueSet) Clone() *ValueSet {
	clone := NewValueSet()
	for k := range vs.integers {
		clone.integers[k] = struct{}{}
	}
	return clone
}

// Len returns the amount of integers in the set.
func (vs *ValueSet) Len() int {
	return len(vs.integers)
}

// Integers returns the integers contained within the set, in ascending order so that selections made from the list
// with a seeded random provider are reproducible.
func (vs *ValueSet) Integers() []*uint256.Int {
	res := make([]*uint256.Int, 0, len(vs.integers))
	for k := range vs.integers {
		v := k
		res = append(res, &v)
	}
	slices.SortFunc(res, func(a, b *uint256.Int) int {
		return a.Cmp(b)
	})
	return res
}

// Contains returns whether the integer is in the set.
func (vs *ValueSet) Contains(i *uint256.Int) bool {
	_, ok := vs.integers[*i]
	return ok
}

// AddInteger adds an integer item to the ValueSet.
func (vs *ValueSet) AddInteger(i *uint256.Int) {
	vs.integers[*i] = struct{}{}
}

// RemoveInteger removes an integer item from the ValueSet.
func (vs *ValueSet) RemoveInteger(i *uint256.Int) {
	delete(vs.integers, *i)
}
