package ledger

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/events"
	"github.com/holiman/uint256"
)

// TokenEvents defines the notifications a Token emits after each successful state change.
type TokenEvents struct {
	// Transfer emits an event for every balance movement. Mints are emitted with the null identity as the source and
	// burns with the null identity as the destination.
	Transfer events.EventEmitter[TransferEvent]

	// Approval emits an event every time an allowance is set, including the implicit updates made when a delegated
	// transfer spends a finite allowance.
	Approval events.EventEmitter[ApprovalEvent]
}

// TransferEvent describes a movement of value between two identities.
type TransferEvent struct {
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

// ApprovalEvent describes an allowance granted by an owner to a spender.
type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Amount  *uint256.Int
}
