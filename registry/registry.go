package registry

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// ErrIndexOutOfRange is returned when a participant index is not below the participant count.
var ErrIndexOutOfRange = errors.New("participant index out of range")

// participantStride spaces generated participant identities apart so they are easy to tell apart in logs.
const participantStride = 0x10000

// Registry describes the closed world of a campaign: one owner identity, which is the privileged caller, and a fixed,
// ordered list of participants. It is immutable once created.
type Registry struct {
	owner        common.Address
	participants []common.Address
}

// New creates a Registry from an owner and a non-empty list of participants. The null identity may not appear, the
// participants must be distinct, and the owner may not also be a participant.
func New(owner common.Address, participants []common.Address) (*Registry, error) {
	if owner == (common.Address{}) {
		return nil, errors.New("registry owner may not be the null identity")
	}
	if len(participants) == 0 {
		return nil, errors.New("registry requires at least one participant")
	}

	seen := make(map[common.Address]struct{}, len(participants)+1)
	seen[owner] = struct{}{}
	for i, participant := range participants {
		if participant == (common.Address{}) {
			return nil, errors.Errorf("participant %d may not be the null identity", i)
		}
		if _, exists := seen[participant]; exists {
			return nil, errors.Errorf("participant %d (%s) is registered more than once", i, participant.Hex())
		}
		seen[participant] = struct{}{}
	}

	return &Registry{
		owner:        owner,
		participants: append([]common.Address(nil), participants...),
	}, nil
}

// GenerateParticipants derives count deterministic participant identities. The i-th identity is
// (i+2) * 0x10000, leaving 0x10000 for an owner.
func GenerateParticipants(count int) []common.Address {
	participants := make([]common.Address, count)
	for i := 0; i < count; i++ {
		participants[i] = common.BigToAddress(new(big.Int).Mul(big.NewInt(int64(i+2)), big.NewInt(participantStride)))
	}
	return participants
}

// DefaultOwner returns the owner identity used alongside GenerateParticipants.
func DefaultOwner() common.Address {
	return common.BigToAddress(big.NewInt(participantStride))
}

// Count returns the number of participants, excluding the owner.
func (r *Registry) Count() int {
	return len(r.participants)
}

// Owner returns the owner identity.
func (r *Registry) Owner() common.Address {
	return r.owner
}

// At returns the participant at index i.
func (r *Registry) At(i int) (common.Address, error) {
	if i < 0 || i >= len(r.participants) {
		return common.Address{}, errors.Wrapf(ErrIndexOutOfRange, "index %d with %d participants", i, len(r.participants))
	}
	return r.participants[i], nil
}

// Participants returns a copy of the ordered participant list.
func (r *Registry) Participants() []common.Address {
	return append([]common.Address(nil), r.participants...)
}

// Tracked returns every identity the conservation invariant is computed over: the owner first, followed by the
// participants in order.
func (r *Registry) Tracked() []common.Address {
	tracked := make([]common.Address, 0, len(r.participants)+1)
	tracked = append(tracked, r.owner)
	return append(tracked, r.participants...)
}
