package randomutils

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWeightedRandomChooser checks that choices are returned roughly in proportion to their weight and that
// zero-weight choices are never selected.
func TestWeightedRandomChooser(t *testing.T) {
	chooser := NewWeightedRandomChooserWithRand[string](rand.New(rand.NewSource(1)), &sync.Mutex{})
	require.NoError(t, chooser.AddChoices(
		NewWeightedRandomChoice("never", 0),
		NewWeightedRandomChoice("rare", 1),
		NewWeightedRandomChoice("common", 9),
	))
	assert.EqualValues(t, 3, chooser.ChoiceCount())

	counts := make(map[string]int)
	for i := 0; i < 10000; i++ {
		choice, err := chooser.Choose()
		require.NoError(t, err)
		counts[*choice]++
	}

	assert.Zero(t, counts["never"])
	assert.Greater(t, counts["rare"], 500)
	assert.Greater(t, counts["common"], 8000)
}

// TestWeightedRandomChooserEmpty checks that a chooser without weighted choices reports an error.
func TestWeightedRandomChooserEmpty(t *testing.T) {
	chooser := NewWeightedRandomChooserWithRand[int](rand.New(rand.NewSource(1)), &sync.Mutex{})
	_, err := chooser.Choose()
	assert.True(t, errors.Is(err, ErrNoWeightedChoices))

	require.NoError(t, chooser.AddChoices(NewWeightedRandomChoice(1, 0)))
	_, err = chooser.Choose()
	assert.True(t, errors.Is(err, ErrNoWeightedChoices))
}

// TestWeightedRandomChooserOverflow checks that weights summing past the uint64 range are rejected.
func TestWeightedRandomChooserOverflow(t *testing.T) {
	chooser := NewWeightedRandomChooserWithRand[int](rand.New(rand.NewSource(1)), &sync.Mutex{})
	require.NoError(t, chooser.AddChoices(NewWeightedRandomChoice(1, ^uint64(0))))
	assert.Error(t, chooser.AddChoices(NewWeightedRandomChoice(2, 1)))
	assert.EqualValues(t, 1, chooser.ChoiceCount())

	choice, err := chooser.Choose()
	require.NoError(t, err)
	assert.Equal(t, 1, *choice)
}

// TestForkRandomProvider checks that forking is deterministic for a given parent seed.
func TestForkRandomProvider(t *testing.T) {
	a := ForkRandomProvider(rand.New(rand.NewSource(42)))
	b := ForkRandomProvider(rand.New(rand.NewSource(42)))
	assert.Equal(t, a.Uint64(), b.Uint64())
}
