package calls

import (
	"fmt"
	"strings"

	"github.com/crytic/tokenfuzz/handler"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// CallMessage describes a single handler action: the kind of action and the raw, unconstrained arguments it is
// invoked with. Clamping happens inside the handler, so a CallMessage replays identically against any handler in the
// same state.
type CallMessage struct {
	// Kind describes which handler action the message invokes.
	Kind handler.ActionKind

	// Args describes the raw arguments provided to the action. Its length is Kind.ArgCount().
	Args []*uint256.Int
}

// NewCallMessage creates a CallMessage for the provided action kind and raw arguments.
// Returns an error if the argument count does not match the action kind.
func NewCallMessage(kind handler.ActionKind, args ...*uint256.Int) (*CallMessage, error) {
	if len(args) != kind.ArgCount() {
		return nil, errors.Errorf("%s takes %d arguments, got %d", kind, kind.ArgCount(), len(args))
	}
	return &CallMessage{Kind: kind, Args: args}, nil
}

// Clone creates a deep copy of the CallMessage.
func (m *CallMessage) Clone() *CallMessage {
	args := make([]*uint256.Int, len(m.Args))
	for i, arg := range m.Args {
		args[i] = arg.Clone()
	}
	return &CallMessage{Kind: m.Kind, Args: args}
}

// Execute dispatches the message to the provided handler.
func (m *CallMessage) Execute(h *handler.Handler) (handler.Outcome, error) {
	return h.Execute(m.Kind, m.Args)
}

// String returns the call in a function call notation, e.g. "transfer(3, 500)".
func (m *CallMessage) String() string {
	args := make([]string, len(m.Args))
	for i, arg := range m.Args {
		args[i] = arg.Dec()
	}
	return fmt.Sprintf("%s(%s)", m.Kind, strings.Join(args, ", "))
}
