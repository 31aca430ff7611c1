package valuegeneration

import (
	"math/rand"

	"github.com/holiman/uint256"
)

// ShrinkingValueMutator represents a ValueMutator used to shrink raw call arguments toward zero.
type ShrinkingValueMutator struct {
	// config describes the configuration defining value mutation parameters.
	config *ShrinkingValueMutatorConfig

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// ShrinkingValueMutatorConfig defines the operating parameters for a ShrinkingValueMutator.
type ShrinkingValueMutatorConfig struct {
	// ShrinkValueProbability is the probability that a value will be shrunk when MutateInteger is invoked.
	ShrinkValueProbability float32

	// ZeroProbability is the probability that a shrunk value is set straight to zero rather than to a random
	// smaller value.
	ZeroProbability float32
}

// DefaultShrinkingValueMutatorConfig returns the configuration used when shrinking failing call sequences.
func DefaultShrinkingValueMutatorConfig() *ShrinkingValueMutatorConfig {
	return &ShrinkingValueMutatorConfig{
		ShrinkValueProbability: 0.5,
		ZeroProbability:        0.5,
	}
}

// NewShrinkingValueMutator creates a new ShrinkingValueMutator.
func NewShrinkingValueMutator(config *ShrinkingValueMutatorConfig, randomProvider *rand.Rand) *ShrinkingValueMutator {
	return &ShrinkingValueMutator{
		config:         config,
		randomProvider: randomProvider,
	}
}

// MutateInteger takes an integer input and applies optional mutations to the provided value. A mutated value is
// always strictly smaller than the input.
// Returns an optionally mutated copy of the input.
func (g *ShrinkingValueMutator) MutateInteger(i *uint256.Int) *uint256.Int {
	// If the integer is zero, we can simply return it as-is.
	if i.IsZero() || g.randomProvider.Float32() >= g.config.ShrinkValueProbability {
		return new(uint256.Int).Set(i)
	}

	if g.randomProvider.Float32() < g.config.ZeroProbability {
		return new(uint256.Int)
	}
	return g.randomBelow(i)
}

// randomBelow returns a random integer in [0, limit). limit must be non-zero.
func (g *ShrinkingValueMutator) randomBelow(limit *uint256.Int) *uint256.Int {
	// Draw as many bytes as the limit spans so smaller limits keep a useful distribution.
	b := make([]byte, (limit.BitLen()+7)/8)
	g.randomProvider.Read(b)
	r := new(uint256.Int).SetBytes(b)
	return r.Mod(r, limit)
}
