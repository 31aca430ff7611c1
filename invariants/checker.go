// Package invariants evaluates the global properties a ledger must uphold over a closed world of identities.
package invariants

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/registry"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Invariant names reported in a ViolationError.
const (
	Conservation = "conservation"
	NullSink     = "null-sink"
)

// BalanceReader describes the read-only ledger surface the Checker needs.
type BalanceReader interface {
	BalanceOf(id common.Address) (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
}

// ErrTrackedSumOverflow is returned when the tracked balances sum past the representable range. A ledger whose supply
// equals the sum of its balances cannot reach this state.
var ErrTrackedSumOverflow = errors.New("tracked balance sum overflow")

// ViolationError describes a failed invariant along with the state observed when it was evaluated.
type ViolationError struct {
	// Invariant is the name of the violated invariant.
	Invariant string

	// Tracked lists the tracked identities, owner first, in the same order as Balances.
	Tracked []common.Address

	// Balances holds the reported balance of each tracked identity.
	Balances []*uint256.Int

	// NullBalance holds the reported balance of the null identity.
	NullBalance *uint256.Int

	// Supply holds the reported total supply.
	Supply *uint256.Int

	// Sum holds the sum of Balances. It is nil if the sum overflowed.
	Sum *uint256.Int

	// Delta holds Supply minus Sum. It is nil if the sum overflowed.
	Delta *big.Int
}

// Error returns a description of the violation and the balances it was observed with.
func (e *ViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invariant %q violated: supply=%s", e.Invariant, e.Supply.Dec())
	if e.Sum != nil {
		fmt.Fprintf(&b, " tracked sum=%s delta=%s", e.Sum.Dec(), e.Delta.String())
	}
	fmt.Fprintf(&b, " null balance=%s", e.NullBalance.Dec())
	for i, id := range e.Tracked {
		fmt.Fprintf(&b, "\n  [%d] %s: %s", i, id.Hex(), e.Balances[i].Dec())
	}
	return b.String()
}

// Checker evaluates conservation and null-sink safety against a ledger. It never modifies state.
type Checker struct {
	ledger   BalanceReader
	registry *registry.Registry
}

// NewChecker creates a Checker over the provided ledger and closed world.
func NewChecker(ledger BalanceReader, reg *registry.Registry) *Checker {
	return &Checker{ledger: ledger, registry: reg}
}

// TrackedSum returns the sum of the reported balances of every tracked identity.
func (c *Checker) TrackedSum() (*uint256.Int, error) {
	balances, err := c.trackedBalances()
	if err != nil {
		return nil, err
	}
	sum, overflow := sumBalances(balances)
	if overflow {
		return nil, errors.WithStack(ErrTrackedSumOverflow)
	}
	return sum, nil
}

// CheckConservation verifies that the tracked balances sum to the reported total supply. A violation is returned as
// a *ViolationError.
func (c *Checker) CheckConservation() error {
	violation, err := c.observe(Conservation)
	if err != nil {
		return err
	}
	if violation.Sum != nil && violation.Sum.Eq(violation.Supply) {
		return nil
	}
	return violation
}

// CheckNullSink verifies that the null identity holds no balance. A violation is returned as a *ViolationError.
func (c *Checker) CheckNullSink() error {
	violation, err := c.observe(NullSink)
	if err != nil {
		return err
	}
	if violation.NullBalance.IsZero() {
		return nil
	}
	return violation
}

// CheckAll evaluates every invariant, returning the first violation.
func (c *Checker) CheckAll() error {
	if err := c.CheckNullSink(); err != nil {
		return err
	}
	return c.CheckConservation()
}

// observe reads all state an invariant report needs.
func (c *Checker) observe(invariant string) (*ViolationError, error) {
	balances, err := c.trackedBalances()
	if err != nil {
		return nil, err
	}
	supply, err := c.ledger.TotalSupply()
	if err != nil {
		return nil, err
	}
	nullBalance, err := c.ledger.BalanceOf(common.Address{})
	if err != nil {
		return nil, err
	}

	violation := &ViolationError{
		Invariant:   invariant,
		Tracked:     c.registry.Tracked(),
		Balances:    balances,
		NullBalance: nullBalance,
		Supply:      supply,
	}
	if sum, overflow := sumBalances(balances); !overflow {
		violation.Sum = sum
		violation.Delta = new(big.Int).Sub(supply.ToBig(), sum.ToBig())
	}
	return violation, nil
}

func (c *Checker) trackedBalances() ([]*uint256.Int, error) {
	tracked := c.registry.Tracked()
	balances := make([]*uint256.Int, len(tracked))
	for i, id := range tracked {
		balance, err := c.ledger.BalanceOf(id)
		if err != nil {
			return nil, err
		}
		balances[i] = balance
	}
	return balances, nil
}

func sumBalances(balances []*uint256.Int) (*uint256.Int, bool) {
	sum := new(uint256.Int)
	for _, balance := range balances {
		if _, overflow := sum.AddOverflow(sum, balance); overflow {
			return nil, true
		}
	}
	return sum, false
}
