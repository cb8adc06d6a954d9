package unittest

import (
	"strings"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/util"
)

// Expectation is what a test is expected to end with.
type Expectation struct {
	// Failure is set for tests expected to fail somehow.
	Failure bool
	// AbortCode is the exact abort code expected (implies Failure).
	AbortCode *uint64
}

// TestCase is a single test function to run.
type TestCase struct {
	Module   bytecode.ModuleID
	Function string
	// Index is the position of the test in the discovery order.
	Index int
	// Args are signer addresses passed as test function parameters.
	Args   []util.Uint160
	Expect Expectation
}

// String implements fmt.Stringer.
func (tc TestCase) String() string {
	return tc.Module.String() + "::" + tc.Function
}

// Discover returns all test functions of the package ordered by module id
// and then by declaration order. If filter is not empty only tests with
// full names (module::function) containing it are returned.
func Discover(pkg *bytecode.Package, filter string) []TestCase {
	var tests []TestCase
	for _, m := range pkg.Modules() {
		for i := range m.Functions {
			f := &m.Functions[i]
			if !f.IsTest() {
				continue
			}
			tc := TestCase{
				Module:   m.ID(),
				Function: f.Name,
				Args:     f.SignerAddresses(),
				Expect:   Expectation{Failure: f.ExpectedFailure()},
			}
			if code, ok := f.ExpectedAbortCode(); ok {
				tc.Expect.AbortCode = &code
			}
			if filter != "" && !strings.Contains(tc.String(), filter) {
				continue
			}
			tc.Index = len(tests)
			tests = append(tests, tc)
		}
	}
	return tests
}
