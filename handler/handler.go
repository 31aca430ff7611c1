// Package handler translates unconstrained random input into valid ledger operations over a closed world of
// identities, mirroring every effect into a shadow model and verifying the ledger against it.
package handler

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/harness"
	"github.com/crytic/tokenfuzz/invariants"
	"github.com/crytic/tokenfuzz/ledger"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/registry"
	"github.com/crytic/tokenfuzz/shadow"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Config describes the closed world a Handler sets up.
type Config struct {
	// ParticipantCount is the number of participants besides the owner.
	ParticipantCount int
	// ParticipantBalance is the balance the owner transfers to every participant at setup.
	ParticipantBalance *uint256.Int
	// InitialSupply is minted to the owner at setup, before participants are funded.
	InitialSupply *uint256.Int
	// MintCeiling is the largest amount a single mint action may create.
	MintCeiling *uint256.Int

	// Owner is the privileged identity. If it is the null identity, registry.DefaultOwner is used.
	Owner common.Address
	// Participants optionally fixes the participant identities. If empty, ParticipantCount identities are
	// generated with registry.GenerateParticipants.
	Participants []common.Address
}

// DefaultConfig returns a Config with five participants holding 1,000 units each out of a 21,000,000 unit supply,
// and a mint ceiling of 10^30.
func DefaultConfig() Config {
	return Config{
		ParticipantCount:   5,
		ParticipantBalance: uint256.NewInt(1_000),
		InitialSupply:      uint256.NewInt(21_000_000),
		MintCeiling:        new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(30)),
	}
}

// Validate checks that the closed world described by the Config can be set up.
func (c Config) Validate() error {
	if c.ParticipantCount <= 0 {
		return errors.New("participant count must be positive")
	}
	if len(c.Participants) > 0 && len(c.Participants) != c.ParticipantCount {
		return errors.Errorf("participant count is %d but %d participants were provided", c.ParticipantCount, len(c.Participants))
	}
	if c.ParticipantBalance == nil || c.InitialSupply == nil || c.MintCeiling == nil {
		return errors.New("participant balance, initial supply and mint ceiling must be set")
	}
	distributed, overflow := new(uint256.Int).MulOverflow(c.ParticipantBalance, uint256.NewInt(uint64(c.ParticipantCount)))
	if overflow || c.InitialSupply.Lt(distributed) {
		return errors.Errorf("initial supply %s cannot fund %d participants with %s each",
			c.InitialSupply.Dec(), c.ParticipantCount, c.ParticipantBalance.Dec())
	}
	return nil
}

// ActionCounts counts how often an action kind was dispatched and how often it was a no-op.
type ActionCounts struct {
	Dispatched uint64
	NoOps      uint64
}

// Handler is the single entry point a driver uses to act on a ledger. It owns the ledger (through the privileged
// harness), the registry and the shadow model for one campaign run. A Handler is not thread safe.
type Handler struct {
	config   Config
	token    *harness.PrivilegedToken
	registry *registry.Registry
	shadow   *shadow.Model
	checker  *invariants.Checker

	// fault is the first fault raised. Once set, every action returns ErrHandlerHalted.
	fault error

	counts map[ActionKind]*ActionCounts

	logger *logging.Logger
}

// New creates a Handler over the provided store, which should be empty. The owner is minted the initial supply and
// transfers the configured balance to every participant, with every step mirrored into the shadow model.
func New(config Config, store ledger.Store) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	owner := config.Owner
	if owner == (common.Address{}) {
		owner = registry.DefaultOwner()
	}
	participants := config.Participants
	if len(participants) == 0 {
		participants = registry.GenerateParticipants(config.ParticipantCount)
	}
	reg, err := registry.New(owner, participants)
	if err != nil {
		return nil, err
	}

	token, supply := ledger.NewToken(store)
	privileged := harness.New(token, supply, reg.Owner())

	h := &Handler{
		config:   config,
		token:    privileged,
		registry: reg,
		shadow:   shadow.NewModel(),
		checker:  invariants.NewChecker(privileged, reg),
		counts:   make(map[ActionKind]*ActionCounts, len(ActionKinds)),
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.HANDLER_SERVICE),
	}
	for _, kind := range ActionKinds {
		h.counts[kind] = &ActionCounts{}
	}

	if err := privileged.Mint(owner, owner, config.InitialSupply); err != nil {
		return nil, errors.Wrap(err, "could not mint initial supply")
	}
	if err := h.shadow.Minted(owner, config.InitialSupply); err != nil {
		return nil, err
	}
	for _, participant := range reg.Participants() {
		if err := privileged.Transfer(owner, participant, config.ParticipantBalance); err != nil {
			return nil, errors.Wrapf(err, "could not fund participant %s", participant.Hex())
		}
		if err := h.shadow.Transferred(owner, participant, config.ParticipantBalance); err != nil {
			return nil, err
		}
	}

	if err := h.VerifyShadow(); err != nil {
		return nil, err
	}
	return h, nil
}

// Registry returns the closed world the handler acts on.
func (h *Handler) Registry() *registry.Registry {
	return h.registry
}

// Token returns the privileged ledger the handler dispatches to.
func (h *Handler) Token() *harness.PrivilegedToken {
	return h.token
}

// Shadow returns the handler's shadow model.
func (h *Handler) Shadow() *shadow.Model {
	return h.shadow
}

// Checker returns the invariant checker over the handler's ledger and registry.
func (h *Handler) Checker() *invariants.Checker {
	return h.checker
}

// Fault returns the fault that halted the handler, or nil if it is still running.
func (h *Handler) Fault() error {
	return h.fault
}

// TrackedSum returns the sum of the ledger balances of every tracked identity.
func (h *Handler) TrackedSum() (*uint256.Int, error) {
	return h.checker.TrackedSum()
}

// Metrics returns a copy of the per-kind action counters.
func (h *Handler) Metrics() map[ActionKind]ActionCounts {
	metrics := make(map[ActionKind]ActionCounts, len(h.counts))
	for kind, counts := range h.counts {
		metrics[kind] = *counts
	}
	return metrics
}

// Execute dispatches the action of the given kind with the provided raw arguments, which must number
// kind.ArgCount().
func (h *Handler) Execute(kind ActionKind, args []*uint256.Int) (Outcome, error) {
	if len(args) != kind.ArgCount() {
		return OutcomeNoOp, errors.Wrapf(ErrInvalidArguments, "%s takes %d arguments, got %d", kind, kind.ArgCount(), len(args))
	}
	switch kind {
	case ActionApprove:
		return h.Approve(args[0], args[1])
	case ActionTransfer:
		return h.Transfer(args[0], args[1])
	case ActionTransferFrom:
		return h.TransferFrom(args[0], args[1], args[2], args[3])
	case ActionMint:
		return h.Mint(args[0], args[1])
	case ActionBurn:
		return h.Burn(args[0], args[1])
	default:
		return OutcomeNoOp, errors.Wrapf(ErrInvalidArguments, "unknown action kind %d", kind)
	}
}

// Approve has the owner approve the selected participant for an amount anywhere in the representable range.
func (h *Handler) Approve(actorSeed, rawValue *uint256.Int) (Outcome, error) {
	if h.fault != nil {
		return OutcomeNoOp, errors.WithStack(ErrHandlerHalted)
	}

	owner := h.registry.Owner()
	spender, err := h.selectParticipant(actorSeed)
	if err != nil {
		return h.halt(ActionApprove, "spender", err)
	}
	amount := ApproveAmount(rawValue)

	a := h.begin(ActionApprove, []*uint256.Int{actorSeed, rawValue}, owner, []common.Address{owner, spender})
	a.diag.To = spender
	a.diag.Amount = amount
	h.trackAllowance(a, owner, spender)

	if err := h.token.Approve(owner, spender, amount); err != nil {
		return h.reject(a, "approve", err)
	}
	h.shadow.Approved(owner, spender, amount)
	return h.finish(a)
}

// Transfer has the owner send the selected participant an amount bounded by the owner's balance.
func (h *Handler) Transfer(actorSeed, rawValue *uint256.Int) (Outcome, error) {
	if h.fault != nil {
		return OutcomeNoOp, errors.WithStack(ErrHandlerHalted)
	}

	owner := h.registry.Owner()
	to, err := h.selectParticipant(actorSeed)
	if err != nil {
		return h.halt(ActionTransfer, "recipient", err)
	}
	balance, err := h.token.BalanceOf(owner)
	if err != nil {
		return h.halt(ActionTransfer, "owner balance", err)
	}
	amount := BalanceAmount(rawValue, balance)

	a := h.begin(ActionTransfer, []*uint256.Int{actorSeed, rawValue}, owner, []common.Address{owner, to})
	a.diag.From = owner
	a.diag.To = to
	a.diag.Amount = amount

	if err := h.token.Transfer(owner, to, amount); err != nil {
		return h.reject(a, "transfer", err)
	}
	if err := h.shadow.Transferred(owner, to, amount); err != nil {
		return h.diverge(a, err)
	}
	return h.finish(a)
}

// TransferFrom has the selected spender move an amount bounded by the selected source's balance to the selected
// recipient. If the spender's allowance is too small, the source first resets it to zero and then approves exactly
// the amount. A source with no balance makes the action a no-op.
func (h *Handler) TransferFrom(spenderSeed, fromSeed, toSeed, rawValue *uint256.Int) (Outcome, error) {
	if h.fault != nil {
		return OutcomeNoOp, errors.WithStack(ErrHandlerHalted)
	}

	spender, err := h.selectParticipant(spenderSeed)
	if err != nil {
		return h.halt(ActionTransferFrom, "spender", err)
	}
	from, err := h.selectParticipant(fromSeed)
	if err != nil {
		return h.halt(ActionTransferFrom, "source", err)
	}
	to, err := h.selectParticipant(toSeed)
	if err != nil {
		return h.halt(ActionTransferFrom, "recipient", err)
	}

	balance, err := h.token.BalanceOf(from)
	if err != nil {
		return h.halt(ActionTransferFrom, "source balance", err)
	}
	if balance.IsZero() {
		h.counts[ActionTransferFrom].NoOps++
		h.logger.Trace("transferFrom from ", from.Hex(), " skipped: no balance")
		return OutcomeNoOp, nil
	}
	amount := BalanceAmount(rawValue, balance)

	a := h.begin(ActionTransferFrom, []*uint256.Int{spenderSeed, fromSeed, toSeed, rawValue}, spender, []common.Address{from, to, spender})
	a.diag.From = from
	a.diag.To = to
	a.diag.Spender = spender
	a.diag.Amount = amount
	h.trackAllowance(a, from, spender)

	allowance, err := h.token.Allowance(from, spender)
	if err != nil {
		return h.halt(ActionTransferFrom, "allowance", err)
	}
	if allowance.Lt(amount) {
		zero := new(uint256.Int)
		if err := h.token.Approve(from, spender, zero); err != nil {
			return h.reject(a, "approve", err)
		}
		h.shadow.Approved(from, spender, zero)
		if err := h.token.Approve(from, spender, amount); err != nil {
			return h.reject(a, "approve", err)
		}
		h.shadow.Approved(from, spender, amount)
	}

	if err := h.token.TransferFrom(spender, from, to, amount); err != nil {
		return h.reject(a, "transferFrom", err)
	}
	if err := h.shadow.SpentAllowance(from, spender, amount); err != nil {
		return h.diverge(a, err)
	}
	if err := h.shadow.Transferred(from, to, amount); err != nil {
		return h.diverge(a, err)
	}
	return h.finish(a)
}

// Mint has the owner mint an amount bounded by the mint ceiling and the remaining supply headroom to the selected
// participant, through the harness.
func (h *Handler) Mint(actorSeed, rawValue *uint256.Int) (Outcome, error) {
	if h.fault != nil {
		return OutcomeNoOp, errors.WithStack(ErrHandlerHalted)
	}

	owner := h.registry.Owner()
	to, err := h.selectParticipant(actorSeed)
	if err != nil {
		return h.halt(ActionMint, "recipient", err)
	}
	supply, err := h.token.TotalSupply()
	if err != nil {
		return h.halt(ActionMint, "supply", err)
	}
	amount := MintAmount(rawValue, h.config.MintCeiling, supply)

	a := h.begin(ActionMint, []*uint256.Int{actorSeed, rawValue}, owner, []common.Address{to})
	a.diag.To = to
	a.diag.Amount = amount

	if err := h.token.Mint(owner, to, amount); err != nil {
		return h.reject(a, "mint", err)
	}
	if err := h.shadow.Minted(to, amount); err != nil {
		return h.diverge(a, err)
	}
	return h.finish(a)
}

// Burn has the owner burn an amount bounded by the selected participant's balance, through the harness.
func (h *Handler) Burn(actorSeed, rawValue *uint256.Int) (Outcome, error) {
	if h.fault != nil {
		return OutcomeNoOp, errors.WithStack(ErrHandlerHalted)
	}

	owner := h.registry.Owner()
	from, err := h.selectParticipant(actorSeed)
	if err != nil {
		return h.halt(ActionBurn, "source", err)
	}
	balance, err := h.token.BalanceOf(from)
	if err != nil {
		return h.halt(ActionBurn, "source balance", err)
	}
	amount := BalanceAmount(rawValue, balance)

	a := h.begin(ActionBurn, []*uint256.Int{actorSeed, rawValue}, owner, []common.Address{from})
	a.diag.From = from
	a.diag.Amount = amount

	if err := h.token.Burn(owner, from, amount); err != nil {
		return h.reject(a, "burn", err)
	}
	if err := h.shadow.Burned(from, amount); err != nil {
		return h.diverge(a, err)
	}
	return h.finish(a)
}

// selectParticipant returns the participant a raw seed designates.
func (h *Handler) selectParticipant(seed *uint256.Int) (common.Address, error) {
	return h.registry.At(BoundIndex(seed, h.registry.Count()))
}

// VerifyShadow compares every tracked balance, every allowance between tracked identities and the supply against
// the ledger. Any difference halts the handler and is returned as a *ShadowDivergenceError.
func (h *Handler) VerifyShadow() error {
	if h.fault != nil {
		return errors.WithStack(ErrHandlerHalted)
	}

	var mismatches []Mismatch
	tracked := h.registry.Tracked()
	for _, id := range tracked {
		mismatch, err := h.compareBalance(id)
		if err != nil {
			return err
		}
		if mismatch != nil {
			mismatches = append(mismatches, *mismatch)
		}
	}
	for _, owner := range tracked {
		for _, spender := range tracked {
			mismatch, err := h.compareAllowance(owner, spender)
			if err != nil {
				return err
			}
			if mismatch != nil {
				mismatches = append(mismatches, *mismatch)
			}
		}
	}
	mismatch, err := h.compareSupply()
	if err != nil {
		return err
	}
	if mismatch != nil {
		mismatches = append(mismatches, *mismatch)
	}

	if len(mismatches) > 0 {
		h.fault = &ShadowDivergenceError{Mismatches: mismatches}
		return h.fault
	}
	return nil
}
