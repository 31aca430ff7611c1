package fuzzing

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/crytic/tokenfuzz/fuzzing/actionstats"
	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/crytic/tokenfuzz/fuzzing/valuegeneration"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/logging/colors"
	"github.com/crytic/tokenfuzz/utils"
	"github.com/crytic/tokenfuzz/utils/randomutils"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Fuzzer represents a stateful ledger fuzzing provider. It drives workers which generate call sequences against a
// handler and checks every property the handler and invariant checker expose.
type Fuzzer struct {
	// ctx describes the context for the fuzzing run, used to cancel running operations.
	ctx context.Context
	// ctxCancelFunc describes a function which can be used to cancel the fuzzing operations ctx tracks.
	ctxCancelFunc context.CancelFunc

	// config describes the project configuration which the fuzzing is targeting.
	config config.ProjectConfig
	// handlerConfig describes the closed world every handler is set up with.
	handlerConfig handler.Config
	// actionWeights describes the relative likelihood of each action kind being generated.
	actionWeights map[handler.ActionKind]uint64
	// baseValueSet represents a valuegeneration.ValueSet containing input values for our fuzz tests.
	baseValueSet *valuegeneration.ValueSet

	// runID uniquely identifies a campaign started with Start.
	runID uuid.UUID
	// seed describes the seed of randomProvider for the current campaign.
	seed int64
	// randomProvider is the campaign's source of randomness, from which every worker forks its own.
	randomProvider *rand.Rand
	// randomProviderLock guards randomProvider, which is forked from multiple goroutines.
	randomProviderLock sync.Mutex

	// storeDirectory describes the directory bolt stores are created in.
	storeDirectory string

	// workers represents the work threads created by this Fuzzer when Start invokes a fuzz operation.
	workers []*FuzzerWorker
	// metrics represents the metrics for the fuzzing campaign.
	metrics *FuzzerMetrics
	// actionStatistics aggregates per-action execution counts reported by workers.
	actionStatistics *actionstats.ActionStatistics

	// testCases contains every TestCase registered with the Fuzzer.
	testCases []*InvariantTestCase
	// testCasesLock provides thread-synchronization to avoid race conditions when accessing or updating test cases.
	testCasesLock sync.Mutex

	// Events describes the event system for the Fuzzer.
	Events FuzzerEvents

	// Hooks describes the replaceable functions used by the Fuzzer.
	Hooks FuzzerHooks

	// logger describes the Fuzzer's log object that can be used to log important events
	logger *logging.Logger
}

// NewFuzzer returns an instance of a new Fuzzer provided a project configuration, or an error if one is encountered
// while initializing the code.
func NewFuzzer(projectConfig config.ProjectConfig) (*Fuzzer, error) {
	// Validate our provided config
	err := projectConfig.Validate()
	if err != nil {
		return nil, err
	}

	// Build the closed world every handler will be set up with.
	handlerConfig, err := projectConfig.Fuzzing.ClosedWorld.HandlerConfig()
	if err != nil {
		return nil, err
	}

	// Parse the action weights into action kinds.
	actionWeights := make(map[handler.ActionKind]uint64, len(projectConfig.Fuzzing.ActionWeights))
	for name, weight := range projectConfig.Fuzzing.ActionWeights {
		kind, err := handler.ParseActionKind(name)
		if err != nil {
			return nil, err
		}
		actionWeights[kind] = weight
	}

	// Create and return our fuzzing instance.
	fuzzer := &Fuzzer{
		config:         projectConfig,
		handlerConfig:  handlerConfig,
		actionWeights:  actionWeights,
		baseValueSet:   valuegeneration.NewBoundaryValueSet(),
		metrics:        newFuzzerMetrics(projectConfig.Fuzzing.Workers),
		testCases:      make([]*InvariantTestCase, 0),
		storeDirectory: projectConfig.Fuzzing.StoreDirectory,
		Hooks: FuzzerHooks{
			NewStoreFunc:                       defaultNewStoreFunc,
			NewCallSequenceGeneratorConfigFunc: defaultNewCallSequenceGeneratorConfigFunc,
			NewShrinkingValueMutatorFunc:       defaultNewShrinkingValueMutatorFunc,
		},
		logger: logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE),
	}

	// Every worker reports the calls it executed to the campaign's action statistics.
	fuzzer.Events.WorkerCreated.Subscribe(fuzzer.onWorkerCreatedEvent)

	// The configured balances, and their immediate neighbors, are where clamping changes behavior.
	for _, amount := range []*uint256.Int{handlerConfig.ParticipantBalance, handlerConfig.InitialSupply, handlerConfig.MintCeiling} {
		fuzzer.baseValueSet.AddInteger(amount)
		fuzzer.baseValueSet.AddInteger(new(uint256.Int).AddUint64(amount, 1))
		fuzzer.baseValueSet.AddInteger(new(uint256.Int).SubUint64(amount, 1))
	}
	return fuzzer, nil
}

// Config exposes the underlying project configuration provided to the Fuzzer.
func (f *Fuzzer) Config() config.ProjectConfig {
	return f.config
}

// HandlerConfig exposes the closed world every handler is set up with.
func (f *Fuzzer) HandlerConfig() handler.Config {
	return f.handlerConfig
}

// BaseValueSet exposes the underlying value set provided to the Fuzzer value generators to aid in generation.
func (f *Fuzzer) BaseValueSet() *valuegeneration.ValueSet {
	return f.baseValueSet
}

// RunID returns the identifier of the latest campaign started with Start.
func (f *Fuzzer) RunID() uuid.UUID {
	return f.runID
}

// Seed returns the seed of the latest campaign started with Start. Configuring it replays the campaign's random
// decisions.
func (f *Fuzzer) Seed() int64 {
	return f.seed
}

// Metrics exposes the metrics of the latest campaign.
func (f *Fuzzer) Metrics() *FuzzerMetrics {
	return f.metrics
}

// ActionStatistics exposes the per-action execution counts of the latest campaign.
func (f *Fuzzer) ActionStatistics() *actionstats.ActionStatistics {
	return f.actionStatistics
}

// onWorkerCreatedEvent subscribes the campaign's action statistics to the new worker's tested call sequences.
func (f *Fuzzer) onWorkerCreatedEvent(event FuzzerWorkerCreatedEvent) error {
	event.Worker.Events.CallSequenceTested.Subscribe(func(event FuzzerWorkerCallSequenceTestedEvent) error {
		return f.actionStatistics.OnCallSequenceTested(event.Sequence)
	})
	return nil
}

// TestCases exposes the underlying tests run during the fuzzing campaign.
func (f *Fuzzer) TestCases() []*InvariantTestCase {
	// Acquire a thread lock to avoid race conditions
	f.testCasesLock.Lock()
	defer f.testCasesLock.Unlock()

	testCases := make([]*InvariantTestCase, len(f.testCases))
	copy(testCases, f.testCases)
	return testCases
}

// TestCasesWithStatus exposes the underlying tests with the provided status.
func (f *Fuzzer) TestCasesWithStatus(status TestCaseStatus) []*InvariantTestCase {
	// Collect all test cases with matching statuses.
	return utils.SliceWhere(f.TestCases(), func(t *InvariantTestCase) bool {
		return t.Status() == status
	})
}

// testCase returns the registered test case of the given kind, or nil if there is none.
func (f *Fuzzer) testCase(kind TestCaseKind) *InvariantTestCase {
	for _, testCase := range f.TestCases() {
		if testCase.Kind() == kind {
			return testCase
		}
	}
	return nil
}

// reportTestCaseFailed is used by workers to report a TestCase which failed for the first time.
func (f *Fuzzer) reportTestCaseFailed(testCase *InvariantTestCase, worker *FuzzerWorker) error {
	info := logging.StructuredLogInfo{"runID": f.runID.String(), "testCase": testCase.ID()}
	if sequence := testCase.CallSequence(); sequence != nil {
		if hash, err := sequence.Hash(); err == nil {
			info["sequenceHash"] = hash.Hex()
		}
	}
	f.logger.Error(testCase.LogMessage(), info)

	err := f.Events.TestCaseFailed.Publish(FuzzerTestCaseFailedEvent{TestCase: testCase, Worker: worker})

	// If the config specifies, we stop after the first failed test reported.
	if f.config.Fuzzing.Testing.StopOnFailedTest {
		f.Stop()
	}
	return err
}

// forkRandomProvider forks a new random provider from the campaign's random provider.
func (f *Fuzzer) forkRandomProvider() *rand.Rand {
	f.randomProviderLock.Lock()
	defer f.randomProviderLock.Unlock()
	return randomutils.ForkRandomProvider(f.randomProvider)
}

// spawnWorkersLoop is a method which spawns a config-defined amount of FuzzerWorker to carry out the fuzzing campaign.
// This function exits when Fuzzer.ctx is cancelled.
func (f *Fuzzer) spawnWorkersLoop() error {
	// We create our fuzz workers in a loop, using a channel to block when we reach capacity.
	// If we encounter any errors, we stop.
	f.workers = make([]*FuzzerWorker, f.config.Fuzzing.Workers)
	threadReserveChannel := make(chan struct{}, f.config.Fuzzing.Workers)

	// Workers are "reset" when they hit some config-defined limit. They are destroyed and recreated at the same index.
	// For now, we create our available index queue before initializing some providers and entering our main loop.
	availableWorkerIndexes := make([]int, f.config.Fuzzing.Workers)
	for i := 0; i < len(availableWorkerIndexes); i++ {
		availableWorkerIndexes[i] = i
	}

	// The lock guards the index queue, the first error and the working flag, all of which worker goroutines update.
	var (
		lock    sync.Mutex
		err     error
		working = !utils.CheckContextDone(f.ctx)
	)
	setErr := func(e error) {
		lock.Lock()
		defer lock.Unlock()
		if err == nil && e != nil {
			err = e
			f.Stop()
		}
	}
	isWorking := func() bool {
		lock.Lock()
		defer lock.Unlock()
		return err == nil && working
	}

	// Log that we are about to create the workers and start fuzzing
	f.logger.Info("Creating ", colors.Bold, f.config.Fuzzing.Workers, colors.Reset, " workers...")
	var wg sync.WaitGroup
	for isWorking() {
		// Send an item into our channel to queue up a spot. This will block us if we hit capacity until a worker
		// slot is freed up.
		threadReserveChannel <- struct{}{}
		if !isWorking() {
			<-threadReserveChannel
			break
		}

		// Pop a worker index off of our queue
		lock.Lock()
		workerIndex := availableWorkerIndexes[0]
		availableWorkerIndexes = availableWorkerIndexes[1:]
		lock.Unlock()

		// Run our goroutine. This should take our queued struct out of the channel once it's done,
		// keeping us at our desired thread capacity.
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()
			f.runWorker(workerIndex, setErr, func() {
				lock.Lock()
				working = false
				lock.Unlock()
			})

			// Free our worker id before unblocking our channel, as a free one will be expected.
			lock.Lock()
			availableWorkerIndexes = append(availableWorkerIndexes, workerIndex)
			lock.Unlock()

			// Unblock our channel by freeing our capacity of another item, making way for another worker.
			<-threadReserveChannel
		}(workerIndex)
	}

	// Explicitly call cancel on our context to ensure all threads exit if we encountered an error.
	f.Stop()

	// Wait for every worker to be freed, so we don't have a race condition when reporting the order
	// of events to our test cases.
	wg.Wait()
	return err
}

// runWorker creates, runs and destroys one worker at the provided index. Errors are handed to setErr, and stopped is
// called if the worker observed the campaign being cancelled.
func (f *Fuzzer) runWorker(workerIndex int, setErr func(error), stopped func()) {
	worker, err := newFuzzerWorker(f, workerIndex, f.forkRandomProvider())
	if err != nil {
		setErr(err)
		return
	}
	f.workers[workerIndex] = worker

	// Publish an event indicating we created a worker.
	if err = f.Events.WorkerCreated.Publish(FuzzerWorkerCreatedEvent{Worker: worker}); err != nil {
		setErr(err)
	} else {
		// Run the worker and check if we received a cancelled signal, or we encountered an error.
		ctxCancelled, workerErr := worker.run()
		setErr(workerErr)
		if ctxCancelled {
			stopped()
		}
	}

	// Release the worker's store and publish an event indicating we destroyed a worker.
	setErr(worker.store.Close())
	setErr(f.Events.WorkerDestroyed.Publish(FuzzerWorkerDestroyedEvent{Worker: worker}))
}

// Start begins a fuzzing operation on the provided project configuration. This operation will not return until an error
// is encountered or the fuzzing operation has completed. Its execution can be cancelled using the Stop method.
// Returns an error if one is encountered.
func (f *Fuzzer) Start() error {
	// Create our running context (allows us to cancel across threads)
	f.ctx, f.ctxCancelFunc = context.WithCancel(context.Background())

	// If we set a timeout, create the timeout context now, as we're about to begin fuzzing.
	if f.config.Fuzzing.Timeout > 0 {
		f.logger.Info("Running with a timeout of ", colors.Bold, f.config.Fuzzing.Timeout, " seconds", colors.Reset)
		f.ctx, f.ctxCancelFunc = context.WithTimeout(f.ctx, time.Duration(f.config.Fuzzing.Timeout)*time.Second)
	}
	defer f.Stop()

	// Seed our random provider. A zero seed derives one from the current time, which we log so the campaign can be
	// reproduced.
	f.runID = uuid.New()
	f.seed = f.config.Fuzzing.Seed
	if f.seed == 0 {
		f.seed = time.Now().UnixNano()
	}
	f.randomProvider = rand.New(rand.NewSource(f.seed))

	// Bolt stores without a configured directory live in a temporary directory for the duration of the campaign.
	if f.config.Fuzzing.StoreBackend == config.StoreBackendBolt {
		if f.config.Fuzzing.StoreDirectory == "" {
			directory, err := os.MkdirTemp("", "tokenfuzz-")
			if err != nil {
				return errors.WithStack(err)
			}
			f.storeDirectory = directory
			defer os.RemoveAll(directory)
		} else if err := utils.MakeDirectory(f.config.Fuzzing.StoreDirectory); err != nil {
			return err
		}
	}

	// Initialize our metrics, statistics and test cases.
	f.metrics = newFuzzerMetrics(f.config.Fuzzing.Workers)
	f.actionStatistics = actionstats.NewActionStatistics()
	f.testCasesLock.Lock()
	f.testCases = make([]*InvariantTestCase, 0, len(TestCaseKinds))
	for _, kind := range TestCaseKinds {
		f.testCases = append(f.testCases, NewInvariantTestCase(kind))
	}
	f.testCasesLock.Unlock()

	// Verify the closed world can be set up before spawning workers, so configuration problems surface once.
	if _, err := handler.New(f.handlerConfig, ledger.NewMemoryStore()); err != nil {
		return errors.Wrap(err, "could not set up the closed world")
	}

	testIDs := utils.SliceSelect(f.TestCases(), func(testCase *InvariantTestCase) string {
		return testCase.ID()
	})
	f.logger.Info("Fuzzing campaign starting", logging.StructuredLogInfo{
		"runID":   f.runID.String(),
		"seed":    f.seed,
		"workers": f.config.Fuzzing.Workers,
		"store":   f.config.Fuzzing.StoreBackend,
		"tests":   testIDs,
	})
	f.logger.Info("Campaign seed: ", colors.Bold, f.seed, colors.Reset)

	// Publish a fuzzer starting event.
	err := f.Events.FuzzerStarting.Publish(FuzzerStartingEvent{Fuzzer: f})
	if err != nil {
		return err
	}
	for _, testCase := range f.TestCases() {
		testCase.start()
	}

	// Start our printing loop now that we're about to begin fuzzing.
	metricsLoopDone := make(chan struct{})
	go func() {
		defer close(metricsLoopDone)
		f.runMetricsPrintLoop()
	}()

	// Run the main worker loop. The statistics worker outlives the campaign context so that it merges every report
	// published by workers which are still finishing a sequence.
	stopActionStatistics := f.actionStatistics.StartWorker(context.Background())
	err = f.spawnWorkersLoop()
	stopActionStatistics()
	<-metricsLoopDone

	// NOTE: After this point, we capture errors but do not return immediately, as we want to exit gracefully.

	// Every test case which did not fail has passed, unless the campaign ended on an error.
	if err == nil {
		for _, testCase := range f.TestCases() {
			testCase.pass()
		}
	}

	// Publish a fuzzer stopping event.
	fuzzerStoppingErr := f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err})
	if err == nil && fuzzerStoppingErr != nil {
		err = fuzzerStoppingErr
	}

	// Log our test case results
	f.printTestCaseResults()

	// Return any encountered error.
	return err
}

// Stop stops a running operation invoked by the Start method. This method may return before complete operation teardown
// occurs.
func (f *Fuzzer) Stop() {
	// Call the cancel function on our running context to stop all working goroutines
	if f.ctxCancelFunc != nil {
		f.ctxCancelFunc()
	}
}

// printTestCaseResults logs the final status of every test case.
func (f *Fuzzer) printTestCaseResults() {
	f.logger.Info("Fuzzer stopped, test results follow below ...")
	for _, testCase := range f.TestCases() {
		switch testCase.Status() {
		case TestCaseStatusFailed:
			f.logger.Error(testCase.LogMessage())
		case TestCaseStatusPassed:
			f.logger.Info(colors.GreenBold, "[", testCase.Status(), "] ", colors.Bold, testCase.Name(), colors.Reset)
		default:
			f.logger.Info("[", testCase.Status(), "] ", testCase.Name())
		}
	}

	if report := f.actionStatistics.Report().Log(); len(report.Args()) > 0 {
		f.logger.Info("Action statistics:\n", report)
	}

	metrics := f.metrics
	f.logger.Info("Test summary: ",
		colors.GreenBold, len(f.TestCasesWithStatus(TestCaseStatusPassed)), " test(s) passed", colors.Reset, ", ",
		colors.RedBold, len(f.TestCasesWithStatus(TestCaseStatusFailed)), " test(s) failed", colors.Reset,
		logging.StructuredLogInfo{
			"runID":          f.runID.String(),
			"calls":          metrics.CallsTested(),
			"sequences":      metrics.SequencesTested(),
			"noOpCalls":      metrics.NoOpCalls(),
			"shrinkAttempts": metrics.ShrinkAttempts(),
		})
}

// runMetricsPrintLoop prints metrics to the console in a loop until ctx signals a stopped operation.
func (f *Fuzzer) runMetricsPrintLoop() {
	// Define our start time
	startTime := time.Now()

	// Define cached variables for our metrics to calculate deltas.
	var lastCallsTested, lastSequencesTested uint64
	lastPrintedTime := startTime
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
		}

		// Obtain our metrics
		callsTested := f.metrics.CallsTested()
		sequencesTested := f.metrics.SequencesTested()
		secondsSinceLastUpdate := utils.Max(time.Since(lastPrintedTime).Seconds(), 1e-3)

		// Print a metrics update
		f.logger.Info(
			"fuzz: elapsed: ", time.Since(startTime).Round(time.Second).String(),
			", calls: ", callsTested, " (", uint64(float64(callsTested-lastCallsTested)/secondsSinceLastUpdate), "/sec)",
			", seq/s: ", uint64(float64(sequencesTested-lastSequencesTested)/secondsSinceLastUpdate),
			", no-ops: ", f.metrics.NoOpCalls(),
			", shrinks: ", f.metrics.ShrinkAttempts(),
			", worker resets: ", f.metrics.WorkerStartupCount(),
		)

		// Update our delta tracking metrics
		lastPrintedTime = time.Now()
		lastCallsTested = callsTested
		lastSequencesTested = sequencesTested
	}
}

// ReplayCallSequence executes a call sequence against a freshly set up handler for the provided configuration,
// checking the same properties a campaign checks.
// Returns the executed call sequence and the property it violated, if any, or an error if one occurs.
func ReplayCallSequence(projectConfig config.ProjectConfig, sequence calls.CallSequence) (calls.CallSequence, *CallSequenceFailure, error) {
	handlerConfig, err := projectConfig.Fuzzing.ClosedWorld.HandlerConfig()
	if err != nil {
		return nil, nil, err
	}
	h, err := handler.New(handlerConfig, ledger.NewMemoryStore())
	if err != nil {
		return nil, nil, err
	}
	return RunCallSequence(h, sequenceFetchFunc(sequence.Clone()), projectConfig.Fuzzing)
}
