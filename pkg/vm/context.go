package vm

import (
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
)

// Context represents the current execution context of the VM, that is a
// single function invocation.
type Context struct {
	// Instruction pointer.
	ip int

	// The next instruction pointer.
	nextip int

	module *bytecode.Module
	fn     *bytecode.Function

	static *Slot
	local  *Slot

	// Evaluation stack length at the moment of the call (after the
	// arguments were taken).
	sp int
}

// Next returns the next instruction to execute with its parameter if any.
// The parameter is not copied and shouldn't be written to. After its invocation
// the instruction pointer points to the instruction being returned. Running
// past the end of the code is an implicit RET.
func (c *Context) Next() (opcode.Opcode, []byte, error) {
	c.ip = c.nextip
	if c.ip >= len(c.fn.Code) {
		return opcode.RET, nil, nil
	}
	op, param, next, err := opcode.Decode(c.fn.Code, c.ip)
	if err != nil {
		return op, nil, err
	}
	c.nextip = next
	return op, param, nil
}

// IP returns the current instruction offset.
func (c *Context) IP() int {
	return c.ip
}

// NextIP returns next instruction pointer.
func (c *Context) NextIP() int {
	return c.nextip
}

// Jump unconditionally moves the next instruction pointer to specified location.
func (c *Context) Jump(pos int) {
	c.nextip = pos
}

// ModuleID returns the id of the module being executed.
func (c *Context) ModuleID() bytecode.ModuleID {
	return c.module.ID()
}

// Function returns the name of the function being executed.
func (c *Context) Function() string {
	return c.fn.Name
}
