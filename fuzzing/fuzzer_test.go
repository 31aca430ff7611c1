package fuzzing

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/invariants"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corruptingStore wraps a ledger.Store and lets a test tamper with the state written by an update, within the same
// transaction. The first skip updates after every reset are left untouched so that handler setup succeeds.
type corruptingStore struct {
	ledger.Store

	updates int
	skip    int
	corrupt func(w ledger.StateWriter, before, after *uint256.Int) error
}

func (s *corruptingStore) Update(fn func(ledger.StateWriter) error) error {
	s.updates++
	armed := s.updates > s.skip
	return s.Store.Update(func(w ledger.StateWriter) error {
		before, err := w.TotalSupply()
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		after, err := w.TotalSupply()
		if err != nil {
			return err
		}
		if !armed {
			return nil
		}
		return s.corrupt(w, before, after)
	})
}

func (s *corruptingStore) Reset() error {
	s.updates = 0
	return s.Store.Reset()
}

// newTestProjectConfig returns a small, deterministic campaign configuration.
func newTestProjectConfig() config.ProjectConfig {
	projectConfig := *config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.Workers = 2
	projectConfig.Fuzzing.WorkerResetLimit = 10
	projectConfig.Fuzzing.CallSequenceLength = 20
	projectConfig.Fuzzing.Timeout = 60
	projectConfig.Fuzzing.Seed = 1337
	return projectConfig
}

// useCorruptingStores makes every worker of the fuzzer build its handlers over a corruptingStore.
func useCorruptingStores(fuzzer *Fuzzer, corrupt func(w ledger.StateWriter, before, after *uint256.Int) error) {
	skip := 1 + fuzzer.HandlerConfig().ParticipantCount
	fuzzer.Hooks.NewStoreFunc = func(_ *Fuzzer, _ int) (ledger.Store, error) {
		return &corruptingStore{Store: ledger.NewMemoryStore(), skip: skip, corrupt: corrupt}, nil
	}
}

// TestFuzzerHealthyLedger runs campaigns against a correct ledger over each store backend and expects every test
// case to pass once the test limit is reached.
func TestFuzzerHealthyLedger(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		testLimit uint64
	}{
		{name: "memory", backend: config.StoreBackendMemory, testLimit: 2_000},
		{name: "bolt", backend: config.StoreBackendBolt, testLimit: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projectConfig := newTestProjectConfig()
			projectConfig.Fuzzing.StoreBackend = tt.backend
			projectConfig.Fuzzing.StoreDirectory = t.TempDir()
			projectConfig.Fuzzing.TestLimit = tt.testLimit
			projectConfig.Fuzzing.Testing.VerifyShadowEachCall = true

			fuzzer, err := NewFuzzer(projectConfig)
			require.NoError(t, err)

			var workersCreated atomic.Int32
			fuzzer.Events.WorkerCreated.Subscribe(func(event FuzzerWorkerCreatedEvent) error {
				workersCreated.Add(1)
				return nil
			})

			require.NoError(t, fuzzer.Start())
			assert.EqualValues(t, 1337, fuzzer.Seed())
			assert.GreaterOrEqual(t, fuzzer.Metrics().CallsTested(), tt.testLimit)
			assert.Positive(t, fuzzer.Metrics().SequencesTested())
			assert.Positive(t, workersCreated.Load())

			// Every executed call is reported to the action statistics.
			var executed uint64
			for _, kind := range handler.ActionKinds {
				executed += fuzzer.ActionStatistics().Report().Counts(kind).Executed
			}
			assert.Equal(t, fuzzer.Metrics().CallsTested(), executed)

			require.Len(t, fuzzer.TestCases(), len(TestCaseKinds))
			for _, testCase := range fuzzer.TestCases() {
				assert.Equal(t, TestCaseStatusPassed, testCase.Status(), testCase.Name())
				assert.Nil(t, testCase.CallSequence())
			}
		})
	}
}

// TestFuzzerDetectsNullSinkViolation credits the null identity on every burn and expects the null-sink test case to
// fail with a shrunk sequence ending in the burn that broke it.
func TestFuzzerDetectsNullSinkViolation(t *testing.T) {
	projectConfig := newTestProjectConfig()
	projectConfig.Fuzzing.CallSequenceLength = 10
	projectConfig.Fuzzing.ActionWeights = map[string]uint64{
		handler.ActionTransfer.String(): 1,
		handler.ActionBurn.String():     1,
	}

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)
	useCorruptingStores(fuzzer, func(w ledger.StateWriter, before, after *uint256.Int) error {
		if !after.Lt(before) {
			return nil
		}
		balance, err := w.Balance(ledger.NullIdentity)
		if err != nil {
			return err
		}
		return w.SetBalance(ledger.NullIdentity, balance.AddUint64(balance, 1))
	})

	var (
		failedEvents     []FuzzerTestCaseFailedEvent
		failedEventsLock sync.Mutex
	)
	fuzzer.Events.TestCaseFailed.Subscribe(func(event FuzzerTestCaseFailedEvent) error {
		failedEventsLock.Lock()
		defer failedEventsLock.Unlock()
		failedEvents = append(failedEvents, event)
		return nil
	})

	require.NoError(t, fuzzer.Start())

	testCase := fuzzer.testCase(TestCaseNullSink)
	require.NotNil(t, testCase)
	require.Equal(t, TestCaseStatusFailed, testCase.Status())
	require.NotEmpty(t, failedEvents)
	assert.Equal(t, testCase, failedEvents[0].TestCase)

	var violation *invariants.ViolationError
	require.ErrorAs(t, testCase.Failure(), &violation)
	assert.Equal(t, invariants.NullSink, violation.Invariant)

	// The shrunk sequence ends with the burn which credited the null identity.
	sequence := *testCase.CallSequence()
	require.NotEmpty(t, sequence)
	assert.LessOrEqual(t, len(sequence), projectConfig.Fuzzing.CallSequenceLength)
	assert.Equal(t, handler.ActionBurn, sequence[len(sequence)-1].Call.Kind)

	// The reproducer decodes back into the shrunk sequence.
	decoded, err := calls.DecodeCallSequenceHex(testCase.Reproducer())
	require.NoError(t, err)
	require.Len(t, decoded, len(sequence))
	for i := range decoded {
		assert.Equal(t, sequence[i].Call.String(), decoded[i].Call.String())
	}

	// Test cases which were not violated still pass, as the campaign ended without an error.
	assert.Equal(t, TestCaseStatusPassed, fuzzer.testCase(TestCaseConservation).Status())
}

// TestFuzzerDetectsShadowDivergence inflates the supply on every mint and expects the shadow-fidelity test case to
// fail after a single mint.
func TestFuzzerDetectsShadowDivergence(t *testing.T) {
	projectConfig := newTestProjectConfig()
	projectConfig.Fuzzing.ActionWeights = map[string]uint64{
		handler.ActionApprove.String(): 1,
		handler.ActionMint.String():    1,
	}

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)
	useCorruptingStores(fuzzer, func(w ledger.StateWriter, before, after *uint256.Int) error {
		if !after.Gt(before) {
			return nil
		}
		return w.SetTotalSupply(new(uint256.Int).AddUint64(after, 1))
	})

	require.NoError(t, fuzzer.Start())

	testCase := fuzzer.testCase(TestCaseShadowFidelity)
	require.NotNil(t, testCase)
	require.Equal(t, TestCaseStatusFailed, testCase.Status())

	var divergence *handler.ShadowDivergenceError
	require.ErrorAs(t, testCase.Failure(), &divergence)

	// Approvals never touch the supply, so shrinking removes all of them.
	sequence := *testCase.CallSequence()
	require.Len(t, sequence, 1)
	assert.Equal(t, handler.ActionMint, sequence[0].Call.Kind)
	assert.Len(t, fuzzer.TestCasesWithStatus(TestCaseStatusFailed), 1)
}

// TestFuzzerSequenceCheckMode verifies that with sequence check mode a violation is only detected at the end of the
// sequence, so the failing sequence is not truncated at the violating call before shrinking.
func TestFuzzerSequenceCheckMode(t *testing.T) {
	projectConfig := newTestProjectConfig()
	projectConfig.Fuzzing.Workers = 1
	projectConfig.Fuzzing.CheckMode = config.CheckModeSequence
	projectConfig.Fuzzing.ShrinkLimit = 0
	projectConfig.Fuzzing.ActionWeights = map[string]uint64{
		handler.ActionBurn.String(): 1,
	}

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)
	useCorruptingStores(fuzzer, func(w ledger.StateWriter, before, after *uint256.Int) error {
		if !after.Lt(before) {
			return nil
		}
		balance, err := w.Balance(ledger.NullIdentity)
		if err != nil {
			return err
		}
		return w.SetBalance(ledger.NullIdentity, balance.AddUint64(balance, 1))
	})

	require.NoError(t, fuzzer.Start())

	testCase := fuzzer.testCase(TestCaseNullSink)
	require.Equal(t, TestCaseStatusFailed, testCase.Status())
	assert.Len(t, *testCase.CallSequence(), projectConfig.Fuzzing.CallSequenceLength)
}

// TestFuzzerDeterministicSeed verifies that a single worker campaign with a fixed seed shrinks to the same failing
// sequence every time.
func TestFuzzerDeterministicSeed(t *testing.T) {
	run := func() string {
		projectConfig := newTestProjectConfig()
		projectConfig.Fuzzing.Workers = 1
		fuzzer, err := NewFuzzer(projectConfig)
		require.NoError(t, err)
		useCorruptingStores(fuzzer, func(w ledger.StateWriter, before, after *uint256.Int) error {
			if !after.Gt(before) {
				return nil
			}
			return w.SetTotalSupply(new(uint256.Int).AddUint64(after, 1))
		})
		require.NoError(t, fuzzer.Start())

		testCase := fuzzer.testCase(TestCaseShadowFidelity)
		require.Equal(t, TestCaseStatusFailed, testCase.Status())
		return testCase.Reproducer()
	}

	assert.Equal(t, run(), run())
}

// TestNewFuzzerRejectsInvalidConfig verifies that configuration errors surface when the fuzzer is created.
func TestNewFuzzerRejectsInvalidConfig(t *testing.T) {
	projectConfig := newTestProjectConfig()
	projectConfig.Fuzzing.Workers = 0
	_, err := NewFuzzer(projectConfig)
	assert.Error(t, err)

	projectConfig = newTestProjectConfig()
	projectConfig.Fuzzing.ActionWeights = map[string]uint64{"rebase": 1}
	_, err = NewFuzzer(projectConfig)
	assert.Error(t, err)
}

// TestFuzzerBaseValueSet verifies that the configured balances and their neighbors are seeded into the value set.
func TestFuzzerBaseValueSet(t *testing.T) {
	fuzzer, err := NewFuzzer(newTestProjectConfig())
	require.NoError(t, err)

	valueSet := fuzzer.BaseValueSet()
	for _, v := range []uint64{0, 1, 999, 1_000, 1_001, 20_999_999, 21_000_000, 21_000_001} {
		assert.True(t, valueSet.Contains(uint256.NewInt(v)), v)
	}
	assert.True(t, valueSet.Contains(ledger.MaxAmount()))
}

// TestReplayCallSequence verifies that replaying a sequence against a correct ledger executes every call without
// violations, and that malformed calls surface as errors.
func TestReplayCallSequence(t *testing.T) {
	projectConfig := newTestProjectConfig()

	transfer, err := calls.NewCallMessage(handler.ActionTransfer, uint256.NewInt(1), uint256.NewInt(250))
	require.NoError(t, err)
	burn, err := calls.NewCallMessage(handler.ActionBurn, uint256.NewInt(2), uint256.NewInt(100))
	require.NoError(t, err)
	sequence := calls.CallSequence{calls.NewCallSequenceElement(transfer), calls.NewCallSequenceElement(burn)}

	executed, failure, err := ReplayCallSequence(projectConfig, sequence)
	require.NoError(t, err)
	assert.Nil(t, failure)
	require.Len(t, executed, 2)
	for _, element := range executed {
		assert.True(t, element.Executed)
	}

	// The original sequence is left untouched.
	assert.False(t, sequence[0].Executed)

	malformed := calls.CallSequence{calls.NewCallSequenceElement(&calls.CallMessage{Kind: handler.ActionMint})}
	_, _, err = ReplayCallSequence(projectConfig, malformed)
	assert.Error(t, err)
}
