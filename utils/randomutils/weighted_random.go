package randomutils

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

// ErrNoWeightedChoices indicates a WeightedRandomChooser has no choices with a non-zero weight.
var ErrNoWeightedChoices = errors.New("could not return a weighted random choice because no choices exist with non-zero weights")

// WeightedRandomChoice describes a weighted, randomly selectable object for use with a WeightedRandomChooser.
type WeightedRandomChoice[T any] struct {
	// Data describes the wrapped data that a WeightedRandomChooser should return when making a random
	// WeightedRandomChoice selection.
	Data T

	// weight describes a value indicating the likelihood of this WeightedRandomChoice to appear in a random selection.
	// Its probability is calculated as current weight / all weights in a WeightedRandomChooser.
	weight uint64
}

// NewWeightedRandomChoice creates a WeightedRandomChoice with the given underlying data and weight to use when added
// to a WeightedRandomChooser.
func NewWeightedRandomChoice[T any](data T, weight uint64) *WeightedRandomChoice[T] {
	return &WeightedRandomChoice[T]{
		Data:   data,
		weight: weight,
	}
}

// Weight returns the weight of the choice.
func (c *WeightedRandomChoice[T]) Weight() uint64 {
	return c.weight
}

// WeightedRandomChooser takes a series of WeightedRandomChoice objects which wrap underlying data, and returns one
// of the weighted options randomly.
type WeightedRandomChooser[T any] struct {
	// choices describes the weighted choices from which the chooser will randomly select.
	choices []*WeightedRandomChoice[T]

	// totalWeight describes the sum of all weights in choices. This is stored here so it does not need to be
	// recomputed.
	totalWeight uint64

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
	// randomProviderLock is a lock to offer thread safety to the random number generator.
	randomProviderLock *sync.Mutex
}

// NewWeightedRandomChooserWithRand creates a WeightedRandomChooser with the provided random provider and mutex lock
// to be acquired when using it.
func NewWeightedRandomChooserWithRand[T any](randomProvider *rand.Rand, randomProviderLock *sync.Mutex) *WeightedRandomChooser[T] {
	return &WeightedRandomChooser[T]{
		choices:            make([]*WeightedRandomChoice[T], 0),
		randomProvider:     randomProvider,
		randomProviderLock: randomProviderLock,
	}
}

// ChoiceCount returns the count of choices added to this provider.
func (c *WeightedRandomChooser[T]) ChoiceCount() int {
	return len(c.choices)
}

// AddChoices adds weighted choices to the WeightedRandomChooser, allowing for future random selection. Returns an
// error if the total weight would overflow.
func (c *WeightedRandomChooser[T]) AddChoices(choices ...*WeightedRandomChoice[T]) error {
	// Acquire our lock during the duration of this method.
	c.randomProviderLock.Lock()
	defer c.randomProviderLock.Unlock()

	// Loop for each choice to add to sum all weights
	total := c.totalWeight
	for _, choice := range choices {
		if total+choice.weight < total {
			return errors.Errorf("total weight of weighted random choices overflows")
		}
		total += choice.weight
	}

	// Add to choices to our array
	c.totalWeight = total
	c.choices = append(c.choices, choices...)
	return nil
}

// Choose selects a random weighted item from the WeightedRandomChooser, or returns an error if one occurs.
func (c *WeightedRandomChooser[T]) Choose() (*T, error) {
	// Acquire our lock during the duration of this method.
	c.randomProviderLock.Lock()
	defer c.randomProviderLock.Unlock()

	// If we have no choices or 0 total weight, return an error.
	if len(c.choices) == 0 || c.totalWeight == 0 {
		return nil, errors.WithStack(ErrNoWeightedChoices)
	}

	// Randomly select a position in our total weight that will determine which item to return.
	var selectedWeightPosition uint64
	if c.totalWeight < 1<<63 {
		selectedWeightPosition = uint64(c.randomProvider.Int63n(int64(c.totalWeight)))
	} else {
		selectedWeightPosition = c.randomProvider.Uint64() % c.totalWeight
	}

	// Loop for each item
	for _, choice := range c.choices {
		// If our selected weight position is in range for this item, return it
		if selectedWeightPosition < choice.weight {
			return &choice.Data, nil
		}

		// Otherwise subtract the choice weight from our position and keep searching
		selectedWeightPosition -= choice.weight
	}

	// This should be unreachable since the total weight is the sum of all choice weights.
	return nil, errors.Errorf("weighted random chooser selected a position outside of its total weight")
}
