package fuzzing

import (
	"math/rand"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/crytic/tokenfuzz/fuzzing/valuegeneration"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/crytic/tokenfuzz/utils"
	"github.com/pkg/errors"
)

// FuzzerWorker describes a single thread worker utilizing its own ledger store to run invariant tests against
// Fuzzer-generated call sequences. Every call sequence is run against a freshly set up handler.
type FuzzerWorker struct {
	// workerIndex describes the index of the worker spun up by the fuzzer.
	workerIndex int

	// fuzzer describes the Fuzzer instance which this worker belongs to.
	fuzzer *Fuzzer

	// store describes the ledger store handlers are set up over. It is reset before every call sequence.
	store ledger.Store

	// sequenceGenerator creates entirely new call sequences.
	sequenceGenerator *CallSequenceGenerator
	// shrinkingValueMutator is a value mutator which is used to shrink the raw arguments of failing call sequences.
	shrinkingValueMutator valuegeneration.ValueMutator

	// randomProvider provides random data as inputs to decisions throughout the worker.
	randomProvider *rand.Rand

	// sequencesTested describes the amount of call sequences this worker instance has tested.
	sequencesTested int

	// Events describes the event system for the FuzzerWorker.
	Events FuzzerWorkerEvents
}

// CallSequenceFailure describes a property violated by a call sequence.
type CallSequenceFailure struct {
	// Kind describes the test case the violation fails.
	Kind TestCaseKind
	// Err describes the error the violation was reported with.
	Err error
}

// newFuzzerWorker creates a new FuzzerWorker, assigning it the provided worker index/id and associating it to the
// Fuzzer instance supplied.
// Returns the new FuzzerWorker, or an error if one occurred.
func newFuzzerWorker(fuzzer *Fuzzer, workerIndex int, randomProvider *rand.Rand) (*FuzzerWorker, error) {
	store, err := fuzzer.Hooks.NewStoreFunc(fuzzer, workerIndex)
	if err != nil {
		return nil, err
	}

	sequenceGeneratorConfig, err := fuzzer.Hooks.NewCallSequenceGeneratorConfigFunc(fuzzer, fuzzer.baseValueSet, randomProvider)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sequenceGenerator, err := NewCallSequenceGenerator(sequenceGeneratorConfig)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	shrinkingValueMutator, err := fuzzer.Hooks.NewShrinkingValueMutatorFunc(fuzzer, randomProvider)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	worker := &FuzzerWorker{
		workerIndex:           workerIndex,
		fuzzer:                fuzzer,
		store:                 store,
		sequenceGenerator:     sequenceGenerator,
		shrinkingValueMutator: shrinkingValueMutator,
		randomProvider:        randomProvider,
	}
	worker.workerMetrics().workerStartupCount.Add(1)
	return worker, nil
}

// WorkerIndex returns the index of this FuzzerWorker in relation to its parent Fuzzer.
func (fw *FuzzerWorker) WorkerIndex() int {
	return fw.workerIndex
}

// Fuzzer returns the parent Fuzzer which spawned this FuzzerWorker.
func (fw *FuzzerWorker) Fuzzer() *Fuzzer {
	return fw.fuzzer
}

// workerMetrics returns the fuzzerWorkerMetrics for this specific worker.
func (fw *FuzzerWorker) workerMetrics() *fuzzerWorkerMetrics {
	return &fw.fuzzer.metrics.workerMetrics[fw.workerIndex]
}

// newHandler resets the worker's store and sets up a new handler over it.
func (fw *FuzzerWorker) newHandler() (*handler.Handler, error) {
	if err := fw.store.Reset(); err != nil {
		return nil, err
	}
	return handler.New(fw.fuzzer.handlerConfig, fw.store)
}

// run begins testing fuzzed call sequences until the worker reset limit is reached or the fuzzer stops.
// Returns a boolean indicating whether Fuzzer.ctx has indicated we cancel the operation, and an error if one occurred.
func (fw *FuzzerWorker) run() (bool, error) {
	// When the reset limit is reached, we exit this method gracefully, which will cause the fuzzer to recreate
	// this worker with a fresh store.
	resetLimit := fw.fuzzer.config.Fuzzing.WorkerResetLimit
	for fw.sequencesTested < resetLimit {
		// If our context signalled to close the operation, exit our testing loop accordingly, otherwise continue.
		if utils.CheckContextDone(fw.fuzzer.ctx) {
			return true, nil
		}

		if err := fw.testNextCallSequence(); err != nil {
			return false, err
		}
		fw.sequencesTested++
	}

	// We have not cancelled fuzzing operations, but this worker exited, signalling for it to be regenerated.
	return false, nil
}

// testNextCallSequence generates a new call sequence, executing and checking it call by call on a fresh handler.
// If a property is violated, the sequence is shrunk and reported.
// Returns an error if one occurs.
func (fw *FuzzerWorker) testNextCallSequence() error {
	err := fw.Events.CallSequenceTesting.Publish(FuzzerWorkerCallSequenceTestingEvent{Worker: fw})
	if err != nil {
		return err
	}

	h, err := fw.newHandler()
	if err != nil {
		return err
	}

	// Generate calls lazily so every call is created right before it executes.
	length := fw.fuzzer.config.Fuzzing.CallSequenceLength
	fw.sequenceGenerator.NewSequence(length)
	fetchElementFunc := func(currentIndex int) (*calls.CallSequenceElement, error) {
		if currentIndex >= length || utils.CheckContextDone(fw.fuzzer.ctx) {
			return nil, nil
		}
		return fw.sequenceGenerator.GenerateElement()
	}

	executed, failure, err := RunCallSequence(h, fetchElementFunc, fw.fuzzer.config.Fuzzing)
	fw.recordMetrics(executed)
	if err != nil {
		return err
	}

	// Enforce the call test limit as soon as it is reached.
	testLimit := fw.fuzzer.config.Fuzzing.TestLimit
	if testLimit > 0 && fw.fuzzer.metrics.CallsTested() >= testLimit {
		fw.fuzzer.logger.Info("Call test limit reached, halting now")
		fw.fuzzer.Stop()
	}

	err = fw.Events.CallSequenceTested.Publish(FuzzerWorkerCallSequenceTestedEvent{Worker: fw, Sequence: executed, Failure: failure})
	if err != nil {
		return err
	}

	if failure == nil {
		return nil
	}
	return fw.handleFailure(executed, failure)
}

// recordMetrics updates the worker's metrics with an executed call sequence.
func (fw *FuzzerWorker) recordMetrics(executed calls.CallSequence) {
	metrics := fw.workerMetrics()
	metrics.sequencesTested.Add(1)
	metrics.callsTested.Add(uint64(len(executed)))
	for _, element := range executed {
		if element.Executed && element.Outcome == handler.OutcomeNoOp {
			metrics.noOpCalls.Add(1)
		}
	}
}

// handleFailure shrinks a failing call sequence and reports it on the test case it failed, unless that test case
// has already failed.
func (fw *FuzzerWorker) handleFailure(sequence calls.CallSequence, failure *CallSequenceFailure) error {
	testCase := fw.fuzzer.testCase(failure.Kind)
	if testCase == nil || testCase.Status() == TestCaseStatusFailed {
		return nil
	}

	shrunk, shrunkFailure, err := fw.shrinkCallSequence(sequence, failure)
	if err != nil {
		return err
	}

	recorded, err := testCase.fail(shrunk, shrunkFailure.Err)
	if err != nil || !recorded {
		return err
	}
	return fw.fuzzer.reportTestCaseFailed(testCase, fw)
}

// RunCallSequence executes the call sequence provided by fetchElementFunc on the handler, checking the configured
// properties after every call and once more at the end of the sequence.
// Returns the executed call sequence and the property it violated, if any. An error is returned only if execution
// could not be carried out, such as on a store failure.
func RunCallSequence(h *handler.Handler, fetchElementFunc calls.ExecuteCallSequenceFetchElementFunc, fuzzingConfig config.FuzzingConfig) (calls.CallSequence, *CallSequenceFailure, error) {
	checkFunc := func(calls.CallSequence) (bool, error) {
		if fuzzingConfig.CheckMode == config.CheckModeCall {
			if err := h.Checker().CheckAll(); err != nil {
				return true, err
			}
		}
		if fuzzingConfig.Testing.VerifyShadowEachCall {
			if err := h.VerifyShadow(); err != nil {
				return true, err
			}
		}
		return false, nil
	}

	executed, err := calls.ExecuteCallSequenceIteratively(h, fetchElementFunc, checkFunc)
	if err == nil {
		err = h.Checker().CheckAll()
	}
	if err == nil {
		err = h.VerifyShadow()
	}
	if err == nil {
		return executed, nil, nil
	}

	kind, ok := ClassifyFailure(err)
	if !ok {
		return executed, nil, errors.WithStack(err)
	}
	return executed, &CallSequenceFailure{Kind: kind, Err: err}, nil
}
