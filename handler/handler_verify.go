package handler

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// pendingAction tracks an action between the moment its parameters are clamped and the moment its effect is
// verified.
type pendingAction struct {
	diag *ActionDiagnostics

	// allowanceOwner and allowanceSpender identify the allowance the action involves, if hasAllowance is set.
	allowanceOwner   common.Address
	allowanceSpender common.Address
	hasAllowance     bool
}

// begin records the pre-action state of the provided identities.
func (h *Handler) begin(kind ActionKind, raw []*uint256.Int, caller common.Address, involved []common.Address) *pendingAction {
	rawCopy := make([]*uint256.Int, len(raw))
	for i, arg := range raw {
		rawCopy[i] = arg.Clone()
	}

	a := &pendingAction{
		diag: &ActionDiagnostics{
			Kind:     kind,
			Raw:      rawCopy,
			Caller:   caller,
			Involved: uniqueIdentities(involved),
		},
	}
	a.diag.PreShadow = h.observeShadow(a)
	a.diag.PreReal = h.observeReal(a)
	return a
}

// trackAllowance adds an allowance to the action's observed state and records its pre-action value.
func (h *Handler) trackAllowance(a *pendingAction, owner common.Address, spender common.Address) {
	a.allowanceOwner = owner
	a.allowanceSpender = spender
	a.hasAllowance = true
	a.diag.PreShadow.Allowance = h.shadow.Allowance(owner, spender)
	a.diag.PreReal.Allowance, _ = h.token.Allowance(owner, spender)
}

// finish verifies the shadow model against the ledger for everything the action touched.
func (h *Handler) finish(a *pendingAction) (Outcome, error) {
	a.diag.PostShadow = h.observeShadow(a)
	a.diag.PostReal = h.observeReal(a)

	var mismatches []Mismatch
	for _, id := range a.diag.Involved {
		mismatch, err := h.compareBalance(id)
		if err != nil {
			return OutcomeDispatched, err
		}
		if mismatch != nil {
			mismatches = append(mismatches, *mismatch)
		}
	}
	if a.hasAllowance {
		mismatch, err := h.compareAllowance(a.allowanceOwner, a.allowanceSpender)
		if err != nil {
			return OutcomeDispatched, err
		}
		if mismatch != nil {
			mismatches = append(mismatches, *mismatch)
		}
	}
	mismatch, err := h.compareSupply()
	if err != nil {
		return OutcomeDispatched, err
	}
	if mismatch != nil {
		mismatches = append(mismatches, *mismatch)
	}

	if len(mismatches) > 0 {
		h.fault = &ShadowDivergenceError{Mismatches: mismatches, Diagnostics: a.diag}
		h.logger.Debug("Shadow divergence after ", a.diag.Kind.String(), h.fault)
		return OutcomeDispatched, h.fault
	}

	h.counts[a.diag.Kind].Dispatched++
	h.logger.Trace(a.diag.Kind.String(), " dispatched: amount=", a.diag.Amount.Dec(), logging.StructuredLogInfo{
		"caller": a.diag.Caller.Hex(),
		"from":   a.diag.From.Hex(),
		"to":     a.diag.To.Hex(),
	})
	return OutcomeDispatched, nil
}

// reject halts the handler with an UnexpectedRejectionError for a clamped operation the ledger refused.
func (h *Handler) reject(a *pendingAction, operation string, cause error) (Outcome, error) {
	a.diag.PostShadow = h.observeShadow(a)
	a.diag.PostReal = h.observeReal(a)
	h.fault = &UnexpectedRejectionError{Operation: operation, Cause: cause, Diagnostics: a.diag}
	h.logger.Debug("Ledger rejected clamped ", operation, h.fault)
	return OutcomeDispatched, h.fault
}

// halt stops the handler when an action cannot establish the state it depends on, before anything is dispatched.
func (h *Handler) halt(kind ActionKind, what string, cause error) (Outcome, error) {
	h.fault = errors.Wrapf(cause, "%s halted: could not obtain %s", kind, what)
	h.logger.Debug("Handler halted", h.fault)
	return OutcomeNoOp, h.fault
}

// diverge halts the handler with a ShadowDivergenceError when the shadow model cannot follow an accepted action.
func (h *Handler) diverge(a *pendingAction, cause error) (Outcome, error) {
	a.diag.PostShadow = h.observeShadow(a)
	a.diag.PostReal = h.observeReal(a)
	h.fault = &ShadowDivergenceError{Cause: cause, Diagnostics: a.diag}
	h.logger.Debug("Shadow model could not apply ", a.diag.Kind.String(), h.fault)
	return OutcomeDispatched, h.fault
}

func (h *Handler) observeShadow(a *pendingAction) Observation {
	snapshot := h.shadow.Snapshot(a.diag.Involved...)
	observation := Observation{
		Balances: snapshot.Balances,
		Supply:   snapshot.Supply,
	}
	if a.hasAllowance {
		observation.Allowance = h.shadow.Allowance(a.allowanceOwner, a.allowanceSpender)
	}
	return observation
}

// observeReal reads the ledger state for diagnostics. Values that cannot be read are left nil.
func (h *Handler) observeReal(a *pendingAction) Observation {
	observation := Observation{
		Balances: make(map[common.Address]*uint256.Int, len(a.diag.Involved)),
	}
	observation.Supply, _ = h.token.TotalSupply()
	for _, id := range a.diag.Involved {
		observation.Balances[id], _ = h.token.BalanceOf(id)
	}
	if a.hasAllowance {
		observation.Allowance, _ = h.token.Allowance(a.allowanceOwner, a.allowanceSpender)
	}
	return observation
}

func (h *Handler) compareBalance(id common.Address) (*Mismatch, error) {
	actual, err := h.token.BalanceOf(id)
	if err != nil {
		return nil, err
	}
	expected := h.shadow.Balance(id)
	if expected.Eq(actual) {
		return nil, nil
	}
	return &Mismatch{Field: "balance", Identity: id, Expected: expected, Actual: actual}, nil
}

func (h *Handler) compareAllowance(owner common.Address, spender common.Address) (*Mismatch, error) {
	actual, err := h.token.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	expected := h.shadow.Allowance(owner, spender)
	if expected.Eq(actual) {
		return nil, nil
	}
	return &Mismatch{Field: "allowance", Identity: owner, Spender: spender, Expected: expected, Actual: actual}, nil
}

func (h *Handler) compareSupply() (*Mismatch, error) {
	actual, err := h.token.TotalSupply()
	if err != nil {
		return nil, err
	}
	expected := h.shadow.Supply()
	if expected.Eq(actual) {
		return nil, nil
	}
	return &Mismatch{Field: "supply", Expected: expected, Actual: actual}, nil
}

// uniqueIdentities removes repeated identities while preserving order.
func uniqueIdentities(ids []common.Address) []common.Address {
	unique := make([]common.Address, 0, len(ids))
	seen := make(map[common.Address]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
