package handler

import (
	"github.com/pkg/errors"
)

// ActionKind identifies one of the ledger operations a Handler can dispatch.
type ActionKind uint8

const (
	ActionApprove ActionKind = iota
	ActionTransfer
	ActionTransferFrom
	ActionMint
	ActionBurn
)

// ActionKinds lists every ActionKind in declaration order.
var ActionKinds = []ActionKind{ActionApprove, ActionTransfer, ActionTransferFrom, ActionMint, ActionBurn}

var actionNames = map[ActionKind]string{
	ActionApprove:      "approve",
	ActionTransfer:     "transfer",
	ActionTransferFrom: "transferFrom",
	ActionMint:         "mint",
	ActionBurn:         "burn",
}

// String returns the name of the action kind.
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ArgCount returns the number of raw arguments the action kind consumes.
func (k ActionKind) ArgCount() int {
	if k == ActionTransferFrom {
		return 4
	}
	return 2
}

// ParseActionKind returns the ActionKind with the provided name.
func ParseActionKind(name string) (ActionKind, error) {
	for kind, kindName := range actionNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, errors.Errorf("unknown action kind %q", name)
}

// Outcome describes what a Handler action did with its input.
type Outcome uint8

const (
	// OutcomeDispatched indicates the clamped action was sent to the ledger and verified against the shadow model.
	OutcomeDispatched Outcome = iota
	// OutcomeNoOp indicates the action had no valid parameters and returned without touching the ledger.
	OutcomeNoOp
)

// String returns a description of the outcome.
func (o Outcome) String() string {
	if o == OutcomeNoOp {
		return "no-op"
	}
	return "dispatched"
}
