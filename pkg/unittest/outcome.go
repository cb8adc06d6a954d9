package unittest

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neounit/pkg/vm"
)

// Kind is a test outcome kind.
type Kind byte

// Outcome kinds.
const (
	Passed Kind = iota
	// FailedAssertion is a failed assertion or an abort with a code other
	// than expected.
	FailedAssertion
	// Aborted is an explicit abort no one expected.
	Aborted
	// OutOfGas means the test exhausted its execution budget.
	OutOfGas
	// Error is any other VM failure.
	Error
	// UnexpectedSuccess means the test was expected to fail, but it returned
	// normally.
	UnexpectedSuccess
)

var kindNames = map[Kind]string{
	Passed:            "PASS",
	FailedAssertion:   "FAILED ASSERTION",
	Aborted:           "ABORTED",
	OutOfGas:          "OUT OF GAS",
	Error:             "ERROR",
	UnexpectedSuccess: "UNEXPECTED SUCCESS",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Outcome is the result of a single test execution.
type Outcome struct {
	Kind Kind
	// Code is the abort code for FailedAssertion and Aborted.
	Code uint64
	// Expected is the abort code the test expected if any.
	Expected *uint64
	// Reason is the error message for OutOfGas and Error.
	Reason string
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o.Kind {
	case FailedAssertion:
		if o.Expected != nil {
			return fmt.Sprintf("%s (%d != %d)", o.Kind, o.Code, *o.Expected)
		}
		return fmt.Sprintf("%s (code %d)", o.Kind, o.Code)
	case Aborted:
		return fmt.Sprintf("%s (code %d)", o.Kind, o.Code)
	case Error:
		return fmt.Sprintf("%s (%s)", o.Kind, o.Reason)
	case UnexpectedSuccess:
		if o.Expected != nil {
			return fmt.Sprintf("%s (expected abort code %d)", o.Kind, *o.Expected)
		}
		return fmt.Sprintf("%s (expected failure)", o.Kind)
	}
	return o.Kind.String()
}

// reconcile compares the way execution ended with what the test expected.
func reconcile(expect Expectation, err error) Outcome {
	var abort *vm.AbortError
	switch {
	case err == nil:
		if expect.Failure || expect.AbortCode != nil {
			return Outcome{Kind: UnexpectedSuccess, Expected: expect.AbortCode}
		}
		return Outcome{Kind: Passed}

	case errors.Is(err, vm.ErrGasLimitExceeded):
		return Outcome{Kind: OutOfGas, Reason: err.Error()}

	case errors.As(err, &abort):
		switch {
		case expect.AbortCode != nil && abort.Code == *expect.AbortCode:
			return Outcome{Kind: Passed}
		case expect.AbortCode != nil:
			return Outcome{Kind: FailedAssertion, Code: abort.Code, Expected: expect.AbortCode}
		case expect.Failure:
			return Outcome{Kind: Passed}
		case abort.Assertion:
			return Outcome{Kind: FailedAssertion, Code: abort.Code}
		default:
			return Outcome{Kind: Aborted, Code: abort.Code}
		}

	default:
		if expect.Failure && expect.AbortCode == nil {
			return Outcome{Kind: Passed}
		}
		return Outcome{Kind: Error, Reason: err.Error()}
	}
}
