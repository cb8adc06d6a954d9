package vm

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
)

var (
	// ErrGasLimitExceeded is returned when execution runs out of its budget.
	ErrGasLimitExceeded = errors.New("gas limit exceeded")
	// ErrArithmetic is returned for integer overflows, underflows and
	// division by zero.
	ErrArithmetic = errors.New("arithmetic error")
)

// AbortError is returned when the code aborts explicitly or an assertion
// fails.
type AbortError struct {
	Code      uint64
	Assertion bool
	Module    bytecode.ModuleID
	Function  string
	Offset    int
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	what := "aborted"
	if e.Assertion {
		what = "assertion failed"
	}
	return fmt.Sprintf("%s with code %d at %s::%s+%d", what, e.Code, e.Module, e.Function, e.Offset)
}

// ExecError is any other execution failure with its location.
type ExecError struct {
	Module   bytecode.ModuleID
	Function string
	Offset   int
	Op       opcode.Opcode
	Err      error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("at %s::%s+%d (%s): %v", e.Module, e.Function, e.Offset, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}
