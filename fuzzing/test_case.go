package fuzzing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/invariants"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/logging/colors"
	"github.com/pkg/errors"
)

// TestCaseStatus defines the status of a TestCase as a string-represented enum.
type TestCaseStatus string

const (
	// TestCaseStatusNotStarted describes a test status where conditions have not yet been tested.
	TestCaseStatusNotStarted TestCaseStatus = "NOT STARTED"
	// TestCaseStatusRunning describes a test status where conditions have been tested for but no result
	// has been reported.
	TestCaseStatusRunning TestCaseStatus = "RUNNING"
	// TestCaseStatusPassed describes a test status where testing has concluded and the test passed.
	TestCaseStatusPassed TestCaseStatus = "PASSED"
	// TestCaseStatusFailed describes a test status where testing has concluded and the test failed.
	TestCaseStatusFailed TestCaseStatus = "FAILED"
)

// TestCaseKind identifies the property a TestCase checks.
type TestCaseKind string

const (
	// TestCaseConservation checks that the tracked balances sum to the total supply.
	TestCaseConservation TestCaseKind = invariants.Conservation
	// TestCaseNullSink checks that the null identity never holds a balance.
	TestCaseNullSink TestCaseKind = invariants.NullSink
	// TestCaseShadowFidelity checks that the ledger agrees with the shadow model.
	TestCaseShadowFidelity TestCaseKind = "shadow-fidelity"
	// TestCaseNoSpuriousRejection checks that the ledger never rejects an operation the handler clamped into validity.
	TestCaseNoSpuriousRejection TestCaseKind = "no-spurious-rejection"
)

// TestCaseKinds lists every TestCaseKind, in the order test cases are registered.
var TestCaseKinds = []TestCaseKind{
	TestCaseConservation,
	TestCaseNullSink,
	TestCaseShadowFidelity,
	TestCaseNoSpuriousRejection,
}

// TestCase describes a test being run by the Fuzzer.
type TestCase interface {
	// Status describes the TestCaseStatus used to define the current state of the test.
	Status() TestCaseStatus

	// CallSequence describes the calls.CallSequence which resulted in this TestCase result. This should be nil if
	// the result is not related to a call sequence.
	CallSequence() *calls.CallSequence

	// Name describes the name of the test case.
	Name() string

	// LogMessage obtains a logging.LogBuffer that represents the result of the TestCase. This buffer can be passed
	// to a logger for console or file logging.
	LogMessage() *logging.LogBuffer

	// Message obtains a text-based printable message which describes the test result.
	Message() string

	// ID obtains a unique identifier for a test result. If the same test fails, this ID should match for both
	// TestResult instances (even if the CallSequence differs or has not been shrunk).
	ID() string
}

// InvariantTestCase describes a TestCase over one of the properties every handler action is checked against.
type InvariantTestCase struct {
	// kind describes the property the test checks.
	kind TestCaseKind
	// status describes the status of the test.
	status TestCaseStatus
	// callSequence describes the shrunk call sequence which violated the property, if any.
	callSequence *calls.CallSequence
	// failure describes the error reported by the handler or checker when the property was violated.
	failure error
	// reproducer describes the hex-encoded call sequence, consumable by the replay command.
	reproducer string
	// lock guards the mutable fields above.
	lock sync.Mutex
}

// NewInvariantTestCase creates a test case for the given kind in the NOT STARTED status.
func NewInvariantTestCase(kind TestCaseKind) *InvariantTestCase {
	return &InvariantTestCase{
		kind:   kind,
		status: TestCaseStatusNotStarted,
	}
}

// Kind returns the property the test checks.
func (t *InvariantTestCase) Kind() TestCaseKind {
	return t.kind
}

// Status describes the TestCaseStatus used to define the current state of the test.
func (t *InvariantTestCase) Status() TestCaseStatus {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.status
}

// CallSequence describes the calls.CallSequence which violated the property, or nil if it has not failed.
func (t *InvariantTestCase) CallSequence() *calls.CallSequence {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.callSequence
}

// Failure returns the error the violation was reported with, or nil if the test has not failed.
func (t *InvariantTestCase) Failure() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.failure
}

// Reproducer returns the hex-encoded failing call sequence, or an empty string if the test has not failed.
func (t *InvariantTestCase) Reproducer() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.reproducer
}

// Name describes the name of the test case.
func (t *InvariantTestCase) Name() string {
	return fmt.Sprintf("Invariant Test: %s", t.kind)
}

// ID obtains a unique identifier for the test case.
func (t *InvariantTestCase) ID() string {
	return string(t.kind)
}

// LogMessage obtains a logging.LogBuffer that represents the result of the test case.
func (t *InvariantTestCase) LogMessage() *logging.LogBuffer {
	t.lock.Lock()
	defer t.lock.Unlock()

	buffer := logging.NewLogBuffer()
	if t.status != TestCaseStatusFailed {
		return buffer
	}

	buffer.Append(colors.RedBold, fmt.Sprintf("[%s] ", t.status), colors.Bold, t.Name(), colors.Reset, "\n")
	buffer.Append(strings.TrimSpace(t.failure.Error()), "\n")
	if t.callSequence != nil {
		buffer.Append(colors.Bold, "[Call Sequence]", colors.Reset, "\n")
		buffer.Append(t.callSequence.Log().Args()...)
	}
	if t.reproducer != "" {
		buffer.Append(colors.Bold, "[Reproducer]", colors.Reset, "\n", t.reproducer, "\n")
	}
	return buffer
}

// Message obtains a text-based printable message which describes the test result.
func (t *InvariantTestCase) Message() string {
	return t.LogMessage().String()
}

// start moves a test case which has not started into the RUNNING status.
func (t *InvariantTestCase) start() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.status == TestCaseStatusNotStarted {
		t.status = TestCaseStatusRunning
	}
}

// pass moves a running test case into the PASSED status.
func (t *InvariantTestCase) pass() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.status == TestCaseStatusRunning {
		t.status = TestCaseStatusPassed
	}
}

// fail records a violation. Returns false if the test case had already failed, in which case nothing is recorded.
func (t *InvariantTestCase) fail(callSequence calls.CallSequence, failure error) (bool, error) {
	reproducer, err := calls.EncodeCallSequenceHex(callSequence)
	if err != nil {
		return false, err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.status == TestCaseStatusFailed {
		return false, nil
	}
	t.status = TestCaseStatusFailed
	t.callSequence = &callSequence
	t.failure = failure
	t.reproducer = reproducer
	return true, nil
}

// ClassifyFailure maps an error raised while executing or checking a call sequence to the TestCaseKind it violates.
// Returns false if the error is not a property violation, such as a store failure.
func ClassifyFailure(err error) (TestCaseKind, bool) {
	var rejection *handler.UnexpectedRejectionError
	if errors.As(err, &rejection) {
		return TestCaseNoSpuriousRejection, true
	}
	var divergence *handler.ShadowDivergenceError
	if errors.As(err, &divergence) {
		return TestCaseShadowFidelity, true
	}
	var violation *invariants.ViolationError
	if errors.As(err, &violation) {
		return TestCaseKind(violation.Invariant), true
	}
	return "", false
}
