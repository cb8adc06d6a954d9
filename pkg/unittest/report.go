package unittest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neounit/pkg/coverage"
)

// Result is a test outcome with execution details.
type Result struct {
	Test        TestCase
	Outcome     Outcome
	GasConsumed int64
	Duration    time.Duration
	// Logs are System.Runtime.Log messages emitted by the test.
	Logs []string
}

// Passed returns true for passed tests.
func (r Result) Passed() bool {
	return r.Outcome.Kind == Passed
}

// TestError is a failed test.
type TestError struct {
	Test    TestCase
	Outcome Outcome
}

// Error implements the error interface.
func (e *TestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Test, e.Outcome)
}

// Report is the result of a package test run, results are in discovery
// order.
type Report struct {
	RunID   uuid.UUID
	Package string
	Results []Result
	// Coverage is the coverage collected by this run, nil if coverage is
	// disabled.
	Coverage *coverage.Map
}

// NoTests returns true if the package had no tests to run.
func (r *Report) NoTests() bool {
	return len(r.Results) == 0
}

// Failed returns results of all tests that didn't pass.
func (r *Report) Failed() []Result {
	var res []Result
	for _, tr := range r.Results {
		if !tr.Passed() {
			res = append(res, tr)
		}
	}
	return res
}

// Counts returns the number of results of every outcome kind.
func (r *Report) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, tr := range r.Results {
		counts[tr.Outcome.Kind]++
	}
	return counts
}

// Err returns nil if all tests passed and an error listing every failed test
// otherwise.
func (r *Report) Err() error {
	var errs []error
	for _, tr := range r.Failed() {
		errs = append(errs, &TestError{Test: tr.Test, Outcome: tr.Outcome})
	}
	return errors.Join(errs...)
}
