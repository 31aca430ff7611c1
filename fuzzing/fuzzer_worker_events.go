package fuzzing

import (
	"github.com/crytic/tokenfuzz/events"
	"github.com/crytic/tokenfuzz/fuzzing/calls"
)

// FuzzerWorkerEvents defines event emitters for a FuzzerWorker.
type FuzzerWorkerEvents struct {
	// CallSequenceTesting emits events when the FuzzerWorker is about to generate and test a new
	// call sequence.
	CallSequenceTesting events.EventEmitter[FuzzerWorkerCallSequenceTestingEvent]

	// CallSequenceTested emits events when the FuzzerWorker has finished generating and testing a
	// new call sequence.
	CallSequenceTested events.EventEmitter[FuzzerWorkerCallSequenceTestedEvent]
}

// FuzzerWorkerCallSequenceTestingEvent describes an event where a fuzzing.FuzzerWorker is about to generate and test a new call
// sequence.
type FuzzerWorkerCallSequenceTestingEvent struct {
	// Worker represents the instance of the fuzzing.FuzzerWorker for which the event occurred.
	Worker *FuzzerWorker
}

// FuzzerWorkerCallSequenceTestedEvent describes an event where a fuzzing.FuzzerWorker has finished generating and testing a new
// call sequence.
type FuzzerWorkerCallSequenceTestedEvent struct {
	// Worker represents the instance of the fuzzing.FuzzerWorker for which the event occurred.
	Worker *FuzzerWorker

	// Sequence describes the executed call sequence, before any shrinking.
	Sequence calls.CallSequence

	// Failure describes the property the sequence violated, or nil if it violated none.
	Failure *CallSequenceFailure
}
