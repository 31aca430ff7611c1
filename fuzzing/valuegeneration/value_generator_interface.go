package valuegeneration

import (
	"math/rand"

	"github.com/holiman/uint256"
)

// ValueGenerator represents an interface for a provider used to generate raw call arguments for use in fuzzing
// campaigns. Raw arguments are unconstrained; the handler clamps them into valid operations.
type ValueGenerator interface {
	// RandomProvider returns the internal random provider used for value generation.
	RandomProvider() *rand.Rand

	// GenerateAmount generates/selects a raw amount argument.
	GenerateAmount() *uint256.Int

	// GenerateSeed generates/selects a raw selection seed, used to pick an identity from the registry.
	GenerateSeed() *uint256.Int
}

// ValueMutator represents an interface for a provider used to mutate raw call arguments.
type ValueMutator interface {
	// MutateInteger takes an integer input and returns an optionally mutated copy of it.
	MutateInteger(i *uint256.Int) *uint256.Int
}
