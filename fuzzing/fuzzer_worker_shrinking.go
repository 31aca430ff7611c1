package fuzzing

import (
	"math/rand"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/fuzzing/valuegeneration"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/utils"
)

// shrinkCallSequence takes a call sequence which violated a property and repeatedly tries smaller variants of it,
// keeping every variant that still fails the same test case. Shrinking stops once the sequence cannot be shrunk
// further, the shrink limit is reached, or the fuzzer stops.
// Returns the shrunk call sequence with its execution results and the failure it produced.
func (fw *FuzzerWorker) shrinkCallSequence(sequence calls.CallSequence, failure *CallSequenceFailure) (calls.CallSequence, *CallSequenceFailure, error) {
	best, bestFailure := sequence, failure

	// Replay a candidate on a fresh handler. A candidate which fails the same test case replaces the best sequence,
	// truncated to the calls executed before the failure.
	tryCandidate := func(candidate calls.CallSequence) error {
		fw.workerMetrics().shrinkAttempts.Add(1)
		h, err := fw.newHandler()
		if err != nil {
			return err
		}
		executed, candidateFailure, err := RunCallSequence(h, sequenceFetchFunc(candidate), fw.fuzzer.config.Fuzzing)
		if err != nil {
			return err
		}
		if candidateFailure != nil && candidateFailure.Kind == failure.Kind {
			best, bestFailure = executed, candidateFailure
		}
		return nil
	}

	// No-op calls do not change state, so we first try dropping all of them at once.
	if withoutNoOps := removeNoOps(best); len(withoutNoOps) < len(best) {
		if err := tryCandidate(withoutNoOps); err != nil {
			return nil, nil, err
		}
	}

	shrinkLimit := fw.fuzzer.config.Fuzzing.ShrinkLimit
	for i := 0; i < shrinkLimit && canShrinkFurther(best) && !utils.CheckContextDone(fw.fuzzer.ctx); i++ {
		var candidate calls.CallSequence
		if len(best) > 1 && fw.randomProvider.Intn(2) == 0 {
			candidate = shortenSequence(best, fw.randomProvider)
		} else {
			candidate = shrinkAllArguments(best, fw.shrinkingValueMutator)
		}
		if err := tryCandidate(candidate); err != nil {
			return nil, nil, err
		}
	}
	return best, bestFailure, nil
}

// sequenceFetchFunc returns a fetch function which yields the elements of the provided sequence in order.
func sequenceFetchFunc(sequence calls.CallSequence) calls.ExecuteCallSequenceFetchElementFunc {
	return func(currentIndex int) (*calls.CallSequenceElement, error) {
		if currentIndex < len(sequence) {
			return sequence[currentIndex], nil
		}
		return nil, nil
	}
}

// removeNoOps removes every call the handler resolved as a no-op, except the last call, which may be the one that
// surfaced the failure.
// Returns a new CallSequence with no-op calls removed.
func removeNoOps(sequence calls.CallSequence) calls.CallSequence {
	if len(sequence) <= 1 {
		return sequence.Clone()
	}

	result := make(calls.CallSequence, 0, len(sequence))
	for i := 0; i < len(sequence)-1; i++ {
		if sequence[i].Executed && sequence[i].Outcome == handler.OutcomeNoOp {
			continue
		}
		result = append(result, calls.NewCallSequenceElement(sequence[i].Call.Clone()))
	}
	result = append(result, calls.NewCallSequenceElement(sequence[len(sequence)-1].Call.Clone()))
	return result
}

// shortenSequence removes one random call from the sequence.
// Returns a new CallSequence with one call removed, or a copy of the sequence if it has one call or fewer.
func shortenSequence(sequence calls.CallSequence, randomProvider *rand.Rand) calls.CallSequence {
	if len(sequence) <= 1 {
		return sequence.Clone()
	}

	removeIndex := randomProvider.Intn(len(sequence))
	result := make(calls.CallSequence, 0, len(sequence)-1)
	result = append(result, sequence[:removeIndex]...)
	result = append(result, sequence[removeIndex+1:]...)
	return result.Clone()
}

// shrinkAllArguments applies the shrinking value mutator to every raw argument of every call.
// Returns a new CallSequence with mutated arguments.
func shrinkAllArguments(sequence calls.CallSequence, valueMutator valuegeneration.ValueMutator) calls.CallSequence {
	result := sequence.Clone()
	for _, element := range result {
		for i, arg := range element.Call.Args {
			element.Call.Args[i] = valueMutator.MutateInteger(arg)
		}
	}
	return result
}

// canShrinkFurther returns true if the sequence has potential for further shrinking: it has more than one call, or
// its only call has a non-zero argument.
func canShrinkFurther(sequence calls.CallSequence) bool {
	if len(sequence) > 1 {
		return true
	}
	if len(sequence) == 1 {
		for _, arg := range sequence[0].Call.Args {
			if !arg.IsZero() {
				return true
			}
		}
	}
	return false
}
