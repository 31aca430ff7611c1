package fuzzing

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/crytic/tokenfuzz/fuzzing/valuegeneration"
	"github.com/crytic/tokenfuzz/ledger"
)

// FuzzerHooks defines the hooks that can be used for the Fuzzer on an API level.
type FuzzerHooks struct {
	// NewStoreFunc describes the function used to open the ledger store a new FuzzerWorker builds its handlers
	// over. The store is closed when the worker is destroyed.
	NewStoreFunc NewStoreFunc

	// NewCallSequenceGeneratorConfigFunc describes the function to use to set up a new CallSequenceGeneratorConfig,
	// defining parameters for a new FuzzerWorker's CallSequenceGenerator.
	// The value generator provided must be either thread safe, or a new instance must be provided per invocation to
	// avoid concurrent access issues between workers.
	NewCallSequenceGeneratorConfigFunc NewCallSequenceGeneratorConfigFunc

	// NewShrinkingValueMutatorFunc describes the function used to set up a value mutator used to shrink call
	// values in the fuzzer's call sequence shrinking process.
	// The value mutator provided must be either thread safe, or a new instance must be provided per invocation to
	// avoid concurrent access issues between workers.
	NewShrinkingValueMutatorFunc NewShrinkingValueMutatorFunc
}

// NewStoreFunc describes the function used to open the ledger store for the worker at the given index.
// Returns the store, or an error if one occurred.
type NewStoreFunc func(fuzzer *Fuzzer, workerIndex int) (ledger.Store, error)

// NewShrinkingValueMutatorFunc describes the function used to set up a value mutator used to shrink call
// values in the fuzzer's call sequence shrinking process.
// Returns a new value mutator, or an error if one occurred.
type NewShrinkingValueMutatorFunc func(fuzzer *Fuzzer, randomProvider *rand.Rand) (valuegeneration.ValueMutator, error)

// NewCallSequenceGeneratorConfigFunc defines a method is called to create a new CallSequenceGeneratorConfig, defining
// the parameters for the new FuzzerWorker to use when creating its CallSequenceGenerator used to power fuzzing.
// Returns a new CallSequenceGeneratorConfig, or an error if one is encountered.
type NewCallSequenceGeneratorConfigFunc func(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (*CallSequenceGeneratorConfig, error)

// defaultNewStoreFunc is a NewStoreFunc which opens the store backend named by the project configuration. Bolt
// stores are created as one database file per worker index in the campaign's store directory.
func defaultNewStoreFunc(fuzzer *Fuzzer, workerIndex int) (ledger.Store, error) {
	if fuzzer.config.Fuzzing.StoreBackend == config.StoreBackendBolt {
		return ledger.NewBoltStore(filepath.Join(fuzzer.storeDirectory, fmt.Sprintf("worker-%d.db", workerIndex)))
	}
	return ledger.NewMemoryStore(), nil
}

// defaultNewCallSequenceGeneratorConfigFunc is a NewCallSequenceGeneratorConfigFunc which creates a
// CallSequenceGeneratorConfig with the configured action weights and a valuegeneration.RandomValueGenerator over
// the provided value set.
func defaultNewCallSequenceGeneratorConfigFunc(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (*CallSequenceGeneratorConfig, error) {
	valueGenerator, err := valuegeneration.NewRandomValueGenerator(valuegeneration.DefaultRandomValueGeneratorConfig(), valueSet, randomProvider)
	if err != nil {
		return nil, err
	}
	return &CallSequenceGeneratorConfig{
		ActionWeights:  fuzzer.actionWeights,
		ValueGenerator: valueGenerator,
	}, nil
}

// defaultNewShrinkingValueMutatorFunc is a NewShrinkingValueMutatorFunc which creates a
// valuegeneration.ShrinkingValueMutator with a default configuration.
func defaultNewShrinkingValueMutatorFunc(_ *Fuzzer, randomProvider *rand.Rand) (valuegeneration.ValueMutator, error) {
	return valuegeneration.NewShrinkingValueMutator(valuegeneration.DefaultShrinkingValueMutatorConfig(), randomProvider), nil
}
