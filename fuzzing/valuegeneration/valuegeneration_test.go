package valuegeneration

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValueSetOrdering checks that values are deduplicated and returned in ascending order.
func TestValueSetOrdering(t *testing.T) {
	vs := NewValueSet()
	vs.AddInteger(uint256.NewInt(30))
	vs.AddInteger(uint256.NewInt(10))
	vs.AddInteger(uint256.NewInt(20))
	vs.AddInteger(uint256.NewInt(10))

	values := vs.Integers()
	require.Len(t, values, 3)
	assert.EqualValues(t, 10, values[0].Uint64())
	assert.EqualValues(t, 20, values[1].Uint64())
	assert.EqualValues(t, 30, values[2].Uint64())

	clone := vs.Clone()
	vs.RemoveInteger(uint256.NewInt(20))
	assert.False(t, vs.Contains(uint256.NewInt(20)))
	assert.True(t, clone.Contains(uint256.NewInt(20)))
	assert.Equal(t, 2, vs.Len())
}

// TestBoundaryValueSet checks that the boundary set carries the edges of the 256-bit range.
func TestBoundaryValueSet(t *testing.T) {
	vs := NewBoundaryValueSet()
	max := new(uint256.Int).SetAllOne()

	assert.True(t, vs.Contains(uint256.NewInt(0)))
	assert.True(t, vs.Contains(uint256.NewInt(1)))
	assert.True(t, vs.Contains(max))
	assert.True(t, vs.Contains(new(uint256.Int).SubUint64(max, 1)))
	assert.True(t, vs.Contains(new(uint256.Int).Lsh(uint256.NewInt(1), 255)))
	assert.True(t, vs.Contains(new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(77))))
}

// TestRandomValueGeneratorDeterminism checks that generators with the same seed generate the same values.
func TestRandomValueGeneratorDeterminism(t *testing.T) {
	a, err := NewRandomValueGenerator(DefaultRandomValueGeneratorConfig(), NewBoundaryValueSet(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := NewRandomValueGenerator(DefaultRandomValueGeneratorConfig(), NewBoundaryValueSet(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		assert.True(t, a.GenerateAmount().Eq(b.GenerateAmount()))
		assert.True(t, a.GenerateSeed().Eq(b.GenerateSeed()))
	}
}

// TestRandomValueGeneratorStrategies checks that only the weighted strategies are used.
func TestRandomValueGeneratorStrategies(t *testing.T) {
	config := &RandomValueGeneratorConfig{SmallWeight: 1, SmallValueLimit: 16, SeedLimit: 4}
	g, err := NewRandomValueGenerator(config, NewValueSet(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	limit := uint256.NewInt(16)
	for i := 0; i < 1000; i++ {
		assert.True(t, g.GenerateAmount().Lt(limit))
	}

	// An empty value set disables strategies drawing from it, even when weighted.
	config = &RandomValueGeneratorConfig{ValueSetWeight: 1, NeighborWeight: 1}
	g, err = NewRandomValueGenerator(config, NewValueSet(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.NotNil(t, g.GenerateAmount())

	// A value set only strategy returns members of the set.
	vs := NewValueSet()
	vs.AddInteger(uint256.NewInt(5))
	vs.AddInteger(uint256.NewInt(9))
	g, err = NewRandomValueGenerator(&RandomValueGeneratorConfig{ValueSetWeight: 1}, vs, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.True(t, vs.Contains(g.GenerateAmount()))
	}
}

// TestShrinkingValueMutator checks that shrinking never grows a value.
func TestShrinkingValueMutator(t *testing.T) {
	mutator := NewShrinkingValueMutator(&ShrinkingValueMutatorConfig{ShrinkValueProbability: 1}, rand.New(rand.NewSource(3)))

	assert.True(t, mutator.MutateInteger(uint256.NewInt(0)).IsZero())
	values := []*uint256.Int{uint256.NewInt(1), uint256.NewInt(1000), new(uint256.Int).SetAllOne()}
	for _, v := range values {
		for i := 0; i < 100; i++ {
			assert.True(t, mutator.MutateInteger(v).Lt(v))
		}
	}

	// A zero shrink probability leaves values untouched.
	mutator = NewShrinkingValueMutator(&ShrinkingValueMutatorConfig{}, rand.New(rand.NewSource(3)))
	assert.EqualValues(t, 1000, mutator.MutateInteger(uint256.NewInt(1000)).Uint64())
}
