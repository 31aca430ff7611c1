package handler

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrHandlerHalted is returned by every action once the handler has reported a fault.
var ErrHandlerHalted = errors.New("handler halted by an earlier fault")

// ErrInvalidArguments is returned when an action is executed with the wrong number of raw arguments.
var ErrInvalidArguments = errors.New("invalid action arguments")

// Observation records the balances of the identities an action involves, the allowance it involves (if any) and
// the supply, as seen by either the shadow model or the ledger.
type Observation struct {
	Balances  map[common.Address]*uint256.Int
	Allowance *uint256.Int
	Supply    *uint256.Int
}

// ActionDiagnostics describes one action in enough detail to understand a fault it raised.
type ActionDiagnostics struct {
	// Kind is the kind of action.
	Kind ActionKind
	// Raw holds the unconstrained arguments the action received.
	Raw []*uint256.Int

	// Caller is the identity the ledger operation was dispatched as.
	Caller common.Address
	// From is the identity whose balance is debited. It is the null identity for a mint and for an approval.
	From common.Address
	// To is the identity credited, or the spender of an approval. It is the null identity for a burn.
	To common.Address
	// Spender is the identity spending an allowance in a delegated transfer.
	Spender common.Address
	// Amount is the clamped amount.
	Amount *uint256.Int

	// Involved lists the identities whose balances are observed, in order.
	Involved []common.Address

	PreShadow  Observation
	PreReal    Observation
	PostShadow Observation
	PostReal   Observation
}

// String returns a multi-line description of the action and the state around it.
func (d *ActionDiagnostics) String() string {
	var b strings.Builder
	raw := make([]string, len(d.Raw))
	for i, arg := range d.Raw {
		raw[i] = arg.Dec()
	}
	fmt.Fprintf(&b, "action %s(%s) caller=%s from=%s to=%s", d.Kind, strings.Join(raw, ", "), d.Caller.Hex(), d.From.Hex(), d.To.Hex())
	if d.Kind == ActionTransferFrom {
		fmt.Fprintf(&b, " spender=%s", d.Spender.Hex())
	}
	if d.Amount != nil {
		fmt.Fprintf(&b, " amount=%s", d.Amount.Dec())
	}
	for _, id := range d.Involved {
		fmt.Fprintf(&b, "\n  %s: shadow %s -> %s, real %s -> %s", id.Hex(),
			observed(d.PreShadow.Balances[id]), observed(d.PostShadow.Balances[id]),
			observed(d.PreReal.Balances[id]), observed(d.PostReal.Balances[id]))
	}
	if d.PreShadow.Allowance != nil || d.PostShadow.Allowance != nil {
		fmt.Fprintf(&b, "\n  allowance: shadow %s -> %s, real %s -> %s",
			observed(d.PreShadow.Allowance), observed(d.PostShadow.Allowance),
			observed(d.PreReal.Allowance), observed(d.PostReal.Allowance))
	}
	fmt.Fprintf(&b, "\n  supply: shadow %s -> %s, real %s -> %s",
		observed(d.PreShadow.Supply), observed(d.PostShadow.Supply),
		observed(d.PreReal.Supply), observed(d.PostReal.Supply))
	return b.String()
}

func observed(amount *uint256.Int) string {
	if amount == nil {
		return "?"
	}
	return amount.Dec()
}

// UnexpectedRejectionError is returned when the ledger rejects an operation whose parameters were clamped to be
// valid. It indicates the handler's assumptions about the ledger do not hold.
type UnexpectedRejectionError struct {
	// Operation names the ledger operation that was rejected. A delegated transfer may be rejected while preparing
	// its allowance, in which case this is "approve".
	Operation string
	// Cause is the error the ledger returned.
	Cause error
	// Diagnostics describes the action being performed.
	Diagnostics *ActionDiagnostics
}

// Error returns the rejection with its diagnostics.
func (e *UnexpectedRejectionError) Error() string {
	return fmt.Sprintf("unexpected rejection of %s: %v\n%s", e.Operation, e.Cause, e.Diagnostics)
}

// Unwrap returns the ledger error.
func (e *UnexpectedRejectionError) Unwrap() error {
	return e.Cause
}

// Mismatch describes one value on which the shadow model and the ledger disagree.
type Mismatch struct {
	// Field is one of "balance", "allowance" or "supply".
	Field string
	// Identity is the holder of a balance or the owner of an allowance.
	Identity common.Address
	// Spender is the spender of an allowance.
	Spender  common.Address
	Expected *uint256.Int
	Actual   *uint256.Int
}

// String returns a description of the mismatch.
func (m Mismatch) String() string {
	switch m.Field {
	case "allowance":
		return fmt.Sprintf("allowance(%s, %s): expected %s, got %s", m.Identity.Hex(), m.Spender.Hex(), m.Expected.Dec(), m.Actual.Dec())
	case "supply":
		return fmt.Sprintf("supply: expected %s, got %s", m.Expected.Dec(), m.Actual.Dec())
	default:
		return fmt.Sprintf("balance(%s): expected %s, got %s", m.Identity.Hex(), m.Expected.Dec(), m.Actual.Dec())
	}
}

// ShadowDivergenceError is returned when the ledger's reported state differs from the shadow model. It indicates a
// bookkeeping defect and is distinct from an invariant violation.
type ShadowDivergenceError struct {
	// Mismatches lists every value found to differ.
	Mismatches []Mismatch
	// Cause is set when the shadow model could not apply the expected effect of an action the ledger accepted.
	Cause error
	// Diagnostics describes the action after which the divergence was found. It is nil when the divergence was found
	// by a full verification between actions.
	Diagnostics *ActionDiagnostics
}

// Error returns the mismatches with their diagnostics.
func (e *ShadowDivergenceError) Error() string {
	var b strings.Builder
	b.WriteString("shadow model diverged from ledger:")
	if e.Cause != nil {
		b.WriteString(" ")
		b.WriteString(e.Cause.Error())
	}
	for _, mismatch := range e.Mismatches {
		b.WriteString("\n  ")
		b.WriteString(mismatch.String())
	}
	if e.Diagnostics != nil {
		b.WriteString("\n")
		b.WriteString(e.Diagnostics.String())
	}
	return b.String()
}
