package calls

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/logging/colors"
	"golang.org/x/crypto/sha3"
)

// CallSequence describes a sequence of handler actions.
type CallSequence []*CallSequenceElement

// Log returns a logging.LogBuffer that represents this call sequence. This buffer will be passed to the underlying
// logger which will format it accordingly for console or file.
func (cs CallSequence) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if len(cs) == 0 {
		buffer.Append("<none>")
		return buffer
	}

	for i := 0; i < len(cs); i++ {
		buffer.Append(fmt.Sprintf("%d) ", i+1), colors.Bold, cs[i].Call.String(), colors.Reset)
		if cs[i].Executed && cs[i].Outcome == handler.OutcomeNoOp {
			buffer.Append(colors.DarkGray, " [no-op]", colors.Reset)
		}
		buffer.Append("\n")
	}
	return buffer
}

// String returns the string representation of this call sequence
func (cs CallSequence) String() string {
	return cs.Log().String()
}

// Clone creates a copy of the underlying CallSequence. Execution results are not copied.
func (cs CallSequence) Clone() CallSequence {
	r := make(CallSequence, len(cs))
	for i := 0; i < len(r); i++ {
		r[i] = NewCallSequenceElement(cs[i].Call.Clone())
	}
	return r
}

// Hash calculates a Keccak-256 hash over the canonical encoding of the call sequence. Two sequences with the same
// actions and raw arguments hash identically, regardless of their execution results.
// Returns the calculated hash, or an error if one occurs.
func (cs CallSequence) Hash() (common.Hash, error) {
	data, err := EncodeCallSequence(cs)
	if err != nil {
		return common.Hash{}, err
	}

	hashProvider := sha3.NewLegacyKeccak256()
	if _, err = hashProvider.Write(data); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hashProvider.Sum(nil)), nil
}

// CallSequenceElement describes a single call in a call sequence, along with the result of its latest execution.
type CallSequenceElement struct {
	// Call describes the handler action to invoke.
	Call *CallMessage

	// Executed indicates whether Outcome was set by an execution of this element.
	Executed bool

	// Outcome describes what the handler did with the call the last time it was executed.
	Outcome handler.Outcome
}

// NewCallSequenceElement returns a new CallSequenceElement struct to track a single call made within a CallSequence.
func NewCallSequenceElement(call *CallMessage) *CallSequenceElement {
	return &CallSequenceElement{Call: call}
}

// String returns a displayable string representing the CallSequenceElement.
func (cse *CallSequenceElement) String() string {
	return cse.Call.String()
}
