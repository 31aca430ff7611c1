package fuzzing

import "sync/atomic"

// FuzzerMetrics represents a struct tracking metrics for a Fuzzer run.
type FuzzerMetrics struct {
	// workerMetrics describes the metrics for each individual worker, indexed like Fuzzer.workers.
	workerMetrics []fuzzerWorkerMetrics
}

// fuzzerWorkerMetrics represents metrics for a single FuzzerWorker instance.
type fuzzerWorkerMetrics struct {
	// sequencesTested describes the amount of call sequences which invariants were verified against.
	sequencesTested atomic.Uint64

	// callsTested describes the amount of calls which invariants were verified against.
	callsTested atomic.Uint64

	// noOpCalls describes the amount of calls the handler resolved as verified no-ops.
	noOpCalls atomic.Uint64

	// shrinkAttempts describes the amount of candidate sequences replayed while shrinking.
	shrinkAttempts atomic.Uint64

	// workerStartupCount describes the amount of times the worker was generated, or re-generated for this index.
	workerStartupCount atomic.Uint64
}

// newFuzzerMetrics obtains a new FuzzerMetrics struct for a given number of workers specified by workerCount.
// Returns the new FuzzerMetrics object.
func newFuzzerMetrics(workerCount int) *FuzzerMetrics {
	return &FuzzerMetrics{
		workerMetrics: make([]fuzzerWorkerMetrics, workerCount),
	}
}

// sum adds the counter selected by field across all workers.
func (m *FuzzerMetrics) sum(field func(w *fuzzerWorkerMetrics) *atomic.Uint64) uint64 {
	total := uint64(0)
	for i := range m.workerMetrics {
		total += field(&m.workerMetrics[i]).Load()
	}
	return total
}

// SequencesTested returns the amount of call sequences which invariants were verified against across all workers.
func (m *FuzzerMetrics) SequencesTested() uint64 {
	return m.sum(func(w *fuzzerWorkerMetrics) *atomic.Uint64 { return &w.sequencesTested })
}

// CallsTested returns the amount of calls which invariants were verified against across all workers.
func (m *FuzzerMetrics) CallsTested() uint64 {
	return m.sum(func(w *fuzzerWorkerMetrics) *atomic.Uint64 { return &w.callsTested })
}

// NoOpCalls returns the amount of calls resolved as verified no-ops across all workers.
func (m *FuzzerMetrics) NoOpCalls() uint64 {
	return m.sum(func(w *fuzzerWorkerMetrics) *atomic.Uint64 { return &w.noOpCalls })
}

// ShrinkAttempts returns the amount of candidate sequences replayed while shrinking across all workers.
func (m *FuzzerMetrics) ShrinkAttempts() uint64 {
	return m.sum(func(w *fuzzerWorkerMetrics) *atomic.Uint64 { return &w.shrinkAttempts })
}

// WorkerStartupCount describes the amount of times workers were generated, or re-generated after reaching their
// reset limit.
func (m *FuzzerMetrics) WorkerStartupCount() uint64 {
	return m.sum(func(w *fuzzerWorkerMetrics) *atomic.Uint64 { return &w.workerStartupCount })
}
