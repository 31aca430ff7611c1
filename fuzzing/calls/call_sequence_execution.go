package calls

import (
	"github.com/crytic/tokenfuzz/handler"
	"github.com/pkg/errors"
)

// ExecuteCallSequenceFetchElementFunc describes a function that is called to obtain the next call sequence element to
// execute. It is given the current call index in the sequence.
// Returns the call sequence element to execute, or an error if one occurs. If the call sequence element is nil,
// it indicates the end of the sequence and execution breaks.
type ExecuteCallSequenceFetchElementFunc func(index int) (*CallSequenceElement, error)

// ExecuteCallSequenceExecutionCheckFunc describes a function that is called after each call is executed in a
// sequence. It is given the currently executed call sequence to this point.
// Returns a boolean indicating if the sequence execution should break, or an error if one occurs.
type ExecuteCallSequenceExecutionCheckFunc func(currentExecutedSequence CallSequence) (bool, error)

// ExecuteCallSequenceIteratively executes a CallSequence upon a provided handler iteratively. It fetches each element
// with fetchElementFunc and, after executing it, calls executionCheckFunc so the caller can check invariants or stop
// early. A fault raised by the handler stops execution and is returned.
// Returns the call sequence which was executed and an error if one occurs.
func ExecuteCallSequenceIteratively(h *handler.Handler, fetchElementFunc ExecuteCallSequenceFetchElementFunc, executionCheckFunc ExecuteCallSequenceExecutionCheckFunc) (CallSequence, error) {
	if fetchElementFunc == nil {
		return nil, errors.New("could not execute call sequence as the 'fetch element function' provided was nil")
	}

	var callSequenceExecuted CallSequence
	for i := 0; true; i++ {
		callSequenceElement, err := fetchElementFunc(i)
		if err != nil {
			return callSequenceExecuted, err
		}
		if callSequenceElement == nil {
			break
		}

		outcome, err := callSequenceElement.Call.Execute(h)
		callSequenceElement.Executed = true
		callSequenceElement.Outcome = outcome
		callSequenceExecuted = append(callSequenceExecuted, callSequenceElement)
		if err != nil {
			return callSequenceExecuted, err
		}

		if executionCheckFunc != nil {
			breakRequested, err := executionCheckFunc(callSequenceExecuted)
			if err != nil {
				return callSequenceExecuted, err
			}
			if breakRequested {
				break
			}
		}
	}
	return callSequenceExecuted, nil
}

// ExecuteCallSequence executes a provided CallSequence on the provided handler, in order.
// Returns the call sequence which was executed and an error if one occurs.
func ExecuteCallSequence(h *handler.Handler, callSequence CallSequence, executionCheckFunc ExecuteCallSequenceExecutionCheckFunc) (CallSequence, error) {
	fetchElementFunc := func(currentIndex int) (*CallSequenceElement, error) {
		if currentIndex < len(callSequence) {
			return callSequence[currentIndex], nil
		}
		return nil, nil
	}
	return ExecuteCallSequenceIteratively(h, fetchElementFunc, executionCheckFunc)
}
