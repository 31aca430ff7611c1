package valuegeneration

import (
	"math/rand"
	"sync"

	"github.com/crytic/tokenfuzz/utils/randomutils"
	"github.com/holiman/uint256"
)

// RandomValueGeneratorConfig defines the relative weights of the strategies a RandomValueGenerator picks from when
// generating a value.
type RandomValueGeneratorConfig struct {
	// ValueSetWeight is the weight of returning a value from the ValueSet unchanged.
	ValueSetWeight uint64
	// NeighborWeight is the weight of returning a ValueSet value shifted by a small delta.
	NeighborWeight uint64
	// SmallWeight is the weight of returning a value below SmallValueLimit.
	SmallWeight uint64
	// RandomWeight is the weight of returning a value of random byte length.
	RandomWeight uint64

	// SmallValueLimit is the exclusive upper bound of small values and of neighbor deltas.
	SmallValueLimit uint64
	// SeedLimit is the exclusive upper bound of most generated selection seeds. One in SeedLimit seeds is
	// instead drawn from the full range, so index reduction over large values is exercised too.
	SeedLimit uint64
}

// DefaultRandomValueGeneratorConfig returns the configuration used by fuzzer workers.
func DefaultRandomValueGeneratorConfig() *RandomValueGeneratorConfig {
	return &RandomValueGeneratorConfig{
		ValueSetWeight:  30,
		NeighborWeight:  20,
		SmallWeight:     30,
		RandomWeight:    20,
		SmallValueLimit: 1 << 12,
		SeedLimit:       64,
	}
}

// generationStrategy describes a method of producing a raw value.
type generationStrategy func(g *RandomValueGenerator) *uint256.Int

// RandomValueGenerator represents a ValueGenerator that mixes boundary values from a ValueSet with random values.
type RandomValueGenerator struct {
	// config describes the configuration defining value generation parameters.
	config *RandomValueGeneratorConfig

	// valueSet contains a set of values which the ValueGenerator may use to aid in value generation.
	valueSet *ValueSet
	// values is the sorted content of valueSet at construction.
	values []*uint256.Int

	// strategies chooses how the next amount is generated.
	strategies *randomutils.WeightedRandomChooser[generationStrategy]

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// NewRandomValueGenerator creates a new RandomValueGenerator. The value set is read once; later additions to it are
// not observed.
func NewRandomValueGenerator(config *RandomValueGeneratorConfig, valueSet *ValueSet, randomProvider *rand.Rand) (*RandomValueGenerator, error) {
	g := &RandomValueGenerator{
		config:         config,
		valueSet:       valueSet,
		values:         valueSet.Integers(),
		strategies:     randomutils.NewWeightedRandomChooserWithRand[generationStrategy](randomProvider, &sync.Mutex{}),
		randomProvider: randomProvider,
	}

	// Strategies drawing from the value set are only available if it has content.
	valueSetWeight, neighborWeight := config.ValueSetWeight, config.NeighborWeight
	if len(g.values) == 0 {
		valueSetWeight, neighborWeight = 0, 0
	}
	err := g.strategies.AddChoices(
		randomutils.NewWeightedRandomChoice[generationStrategy]((*RandomValueGenerator).generateFromValueSet, valueSetWeight),
		randomutils.NewWeightedRandomChoice[generationStrategy]((*RandomValueGenerator).generateNeighbor, neighborWeight),
		randomutils.NewWeightedRandomChoice[generationStrategy]((*RandomValueGenerator).generateSmall, config.SmallWeight),
		randomutils.NewWeightedRandomChoice[generationStrategy]((*RandomValueGenerator).generateRandom, config.RandomWeight),
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// RandomProvider returns the internal random provider used for value generation.
func (g *RandomValueGenerator) RandomProvider() *rand.Rand {
	return g.randomProvider
}

// GenerateAmount generates a raw amount argument using a randomly chosen strategy.
func (g *RandomValueGenerator) GenerateAmount() *uint256.Int {
	strategy, err := g.strategies.Choose()
	if err != nil {
		// No strategy has weight, so fall back to uniformly random values.
		return g.generateRandom()
	}
	return (*strategy)(g)
}

// GenerateSeed generates a raw selection seed.
func (g *RandomValueGenerator) GenerateSeed() *uint256.Int {
	limit := g.config.SeedLimit
	if limit == 0 || g.randomProvider.Uint64()%limit == 0 {
		return g.generateRandom()
	}
	return uint256.NewInt(g.randomProvider.Uint64() % limit)
}

// generateFromValueSet returns a copy of a random value set value.
func (g *RandomValueGenerator) generateFromValueSet() *uint256.Int {
	return new(uint256.Int).Set(g.values[g.randomProvider.Intn(len(g.values))])
}

// generateNeighbor returns a random value set value plus or minus a small delta, wrapping at the 256-bit boundary.
func (g *RandomValueGenerator) generateNeighbor() *uint256.Int {
	value := g.generateFromValueSet()
	delta := uint256.NewInt(1 + g.randomProvider.Uint64()%g.smallValueLimit())
	if g.randomProvider.Intn(2) == 0 {
		return value.Add(value, delta)
	}
	return value.Sub(value, delta)
}

// generateSmall returns a value below the small value limit.
func (g *RandomValueGenerator) generateSmall() *uint256.Int {
	return uint256.NewInt(g.randomProvider.Uint64() % g.smallValueLimit())
}

// generateRandom returns a value with a random byte length between 1 and 32 and random content.
func (g *RandomValueGenerator) generateRandom() *uint256.Int {
	b := make([]byte, 1+g.randomProvider.Intn(32))
	g.randomProvider.Read(b)
	return new(uint256.Int).SetBytes(b)
}

// smallValueLimit returns the configured small value limit, which is never zero.
func (g *RandomValueGenerator) smallValueLimit() uint64 {
	if g.config.SmallValueLimit == 0 {
		return 1
	}
	return g.config.SmallValueLimit
}
