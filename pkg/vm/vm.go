package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
	"github.com/nspcc-dev/neounit/pkg/vm/vmstate"
)

const (
	// MaxInvocationStackSize is the maximum size of an invocation stack.
	MaxInvocationStackSize = 1024

	// OpcodePrice is the amount of gas every instruction costs.
	OpcodePrice = 1
)

type (
	// OnExecHook is a type for a callback that is called right before an
	// instruction is executed (after its price is paid).
	OnExecHook func(module bytecode.ModuleID, function string, offset int, op opcode.Opcode)

	// OnLogHook is a type for a callback receiving System.Runtime.Log
	// messages.
	OnLogHook func(module bytecode.ModuleID, function string, msg string)
)

// VM represents the virtual machine executing functions of a linked package.
// A VM is single-use: it's created for a single invocation and is not safe
// for concurrent use.
type VM struct {
	state vmstate.State

	pkg     *bytecode.Package
	istack  []*Context
	estack  *Stack
	statics map[bytecode.ModuleID]*Slot

	gasConsumed int64
	// GasLimit is the maximum amount of gas that can be spent, negative
	// means no limit.
	GasLimit int64

	// SyscallHandler handles SYSCALL opcode.
	SyscallHandler func(v *VM, id uint32) error

	onExecHook OnExecHook
	onLogHook  OnLogHook
}

// New returns a new VM object ready to load functions of the given package.
func New(pkg *bytecode.Package) *VM {
	return &VM{
		state:          vmstate.None,
		pkg:            pkg,
		istack:         make([]*Context, 0, 8),
		estack:         NewStack("evaluation"),
		statics:        make(map[bytecode.ModuleID]*Slot),
		GasLimit:       -1,
		SyscallHandler: defaultSyscallHandler,
	}
}

// SetOnExecHook sets the hook called for every executed instruction.
func (v *VM) SetOnExecHook(hook OnExecHook) {
	v.onExecHook = hook
}

// SetOnLogHook sets the hook receiving runtime log messages.
func (v *VM) SetOnLogHook(hook OnLogHook) {
	v.onLogHook = hook
}

// GasConsumed returns the amount of GAS consumed during execution.
func (v *VM) GasConsumed() int64 {
	return v.gasConsumed
}

// AddGas consumes specified amount of gas. It returns true if gas limit wasn't exceeded.
func (v *VM) AddGas(gas int64) bool {
	v.gasConsumed += gas
	return v.GasLimit < 0 || v.gasConsumed <= v.GasLimit
}

// Estack returns the evaluation stack, so interop hooks can utilize this.
func (v *VM) Estack() *Stack {
	return v.estack
}

// Istack returns the number of active invocations.
func (v *VM) Istack() int {
	return len(v.istack)
}

// Context returns the current executed context. Nil if there is no context,
// which implies no program is loaded.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// State returns the state for the VM.
func (v *VM) State() vmstate.State {
	return v.state
}

// Ready returns true if the VM is ready to execute the loaded program.
// Will return false if no program is loaded.
func (v *VM) Ready() bool {
	return len(v.istack) > 0
}

// HasFailed returns whether the VM is in the failed state now. Usually, it's used to
// check status after Run.
func (v *VM) HasFailed() bool {
	return v.state.HasFlag(vmstate.Fault)
}

// HasHalted returns whether the VM is in the Halt state.
func (v *VM) HasHalted() bool {
	return v.state.HasFlag(vmstate.Halt)
}

// LoadFunction loads the function of the given module for execution, args
// are passed as its parameters.
func (v *VM) LoadFunction(id bytecode.ModuleID, name string, args ...stackitem.Item) error {
	m, ok := v.pkg.Module(id)
	if !ok {
		return fmt.Errorf("%w: %s", bytecode.ErrModuleNotFound, id)
	}
	f, ok := m.FunctionByName(name)
	if !ok {
		return fmt.Errorf("function %s::%s not found", id, name)
	}
	if len(args) != int(f.Params) {
		return fmt.Errorf("%s::%s expects %d arguments, got %d", id, name, f.Params, len(args))
	}
	for _, arg := range args {
		v.estack.PushItem(arg)
	}
	v.call(m, f)
	v.state = vmstate.None
	return nil
}

// call creates a new context for the function taking its arguments from the
// evaluation stack, the last argument is on top.
func (v *VM) call(m *bytecode.Module, f *bytecode.Function) {
	if len(v.istack) >= MaxInvocationStackSize {
		panic("invocation stack is too big")
	}
	static, ok := v.statics[m.ID()]
	if !ok {
		static = newSlot(int(m.Statics))
		v.statics[m.ID()] = static
	}
	ctx := &Context{
		module: m,
		fn:     f,
		static: static,
		local:  newSlot(int(f.Params) + int(f.Locals)),
	}
	for i := int(f.Params) - 1; i >= 0; i-- {
		ctx.local.Set(i, v.estack.Pop().Item())
	}
	ctx.sp = v.estack.Len()
	v.istack = append(v.istack, ctx)
}

// Run starts execution of the loaded program and returns the error it
// failed with if any.
func (v *VM) Run() error {
	switch {
	case !v.Ready():
		v.state = vmstate.Fault
		return errors.New("no program loaded")
	case v.state.HasFlag(vmstate.Fault):
		return errors.New("VM has failed")
	case v.state.HasFlag(vmstate.Halt):
		return errors.New("VM has already stopped")
	}
	for {
		if err := v.Step(); err != nil {
			return err
		}
		if v.state.HasFlag(vmstate.Halt) {
			return nil
		}
	}
}

// Step executes the next instruction.
func (v *VM) Step() error {
	ctx := v.Context()
	if ctx == nil {
		return errors.New("no program loaded")
	}
	op, param, err := ctx.Next()
	if err != nil {
		v.state = vmstate.Fault
		return &ExecError{Module: ctx.ModuleID(), Function: ctx.Function(), Offset: ctx.ip, Op: op, Err: err}
	}
	return v.execute(ctx, op, param)
}

// execute performs an instruction cycle in the VM. Acting on the instruction (opcode).
func (v *VM) execute(ctx *Context, op opcode.Opcode, parameter []byte) (err error) {
	// Instead of polluting the whole VM logic with error handling, we will recover
	// each panic at a central point, putting the VM in a fault state and setting error.
	defer func() {
		if errRecover := recover(); errRecover != nil {
			v.state = vmstate.Fault
			var abort *AbortError
			switch e := errRecover.(type) {
			case *AbortError:
				abort = e
			case error:
				err = e
			default:
				err = fmt.Errorf("%v", e)
			}
			if abort != nil {
				err = abort
				return
			}
			err = &ExecError{Module: ctx.ModuleID(), Function: ctx.Function(), Offset: ctx.ip, Op: op, Err: err}
		}
	}()

	// Implicit RET is free and is not an instruction of the code.
	if ctx.ip < len(ctx.fn.Code) {
		if !v.AddGas(OpcodePrice) {
			panic(ErrGasLimitExceeded)
		}
		if v.onExecHook != nil {
			v.onExecHook(ctx.ModuleID(), ctx.Function(), ctx.ip, op)
		}
	}

	if op >= opcode.PUSHINT8 && op <= opcode.PUSHINT256 {
		le := bytes.Clone(parameter)
		v.estack.PushItem(stackitem.NewInteger(new(uint256.Int).SetBytes(util.ArrayReverse(le))))
		return
	}
	if op >= opcode.PUSH0 && op <= opcode.PUSH16 {
		v.estack.PushVal(uint64(op - opcode.PUSH0))
		return
	}

	switch op {
	case opcode.PUSHT, opcode.PUSHF:
		v.estack.PushVal(op == opcode.PUSHT)

	case opcode.PUSHADDR:
		addr, ok := ctx.module.AddressAt(int(parameter[0]))
		if !ok {
			panic("address index is out of range")
		}
		v.estack.PushVal(addr.BytesBE())

	case opcode.PUSHDATA1:
		v.estack.PushVal(bytes.Clone(parameter))

	case opcode.NOP:

	case opcode.JMP, opcode.JMPIF, opcode.JMPIFNOT:
		cond := true
		if op != opcode.JMP {
			cond = v.estack.Pop().Bool() == (op == opcode.JMPIF)
		}
		if cond {
			ctx.Jump(int(binary.LittleEndian.Uint16(parameter)))
		}

	case opcode.CALL:
		idx := int(binary.LittleEndian.Uint16(parameter))
		if idx >= len(ctx.module.Functions) {
			panic("function index is out of range")
		}
		v.call(ctx.module, &ctx.module.Functions[idx])

	case opcode.CALLT:
		imp, ok := ctx.module.ImportAt(int(binary.LittleEndian.Uint16(parameter)))
		if !ok {
			panic("import index is out of range")
		}
		m, ok := v.pkg.Module(imp.Module)
		if !ok {
			panic(fmt.Errorf("%w: %s", bytecode.ErrModuleNotFound, imp.Module))
		}
		f, ok := m.FunctionByName(imp.Function)
		if !ok {
			panic(fmt.Sprintf("function %s::%s not found", imp.Module, imp.Function))
		}
		v.call(m, f)

	case opcode.ABORT:
		panic(v.abort(ctx, false))

	case opcode.ASSERT:
		e := v.abort(ctx, true)
		if !v.estack.Pop().Bool() {
			panic(e)
		}

	case opcode.RET:
		if n := v.estack.Len() - ctx.sp; n != int(ctx.fn.Returns) {
			panic(fmt.Sprintf("invalid return values count: expected %d, got %d", ctx.fn.Returns, n))
		}
		v.istack = v.istack[:len(v.istack)-1]
		if len(v.istack) == 0 {
			v.state = vmstate.Halt
		}

	case opcode.SYSCALL:
		id := binary.LittleEndian.Uint32(parameter)
		if err := v.SyscallHandler(v, id); err != nil {
			panic(fmt.Errorf("failed to invoke syscall %d: %w", id, err))
		}

	case opcode.DROP:
		v.estack.Pop()

	case opcode.DUP:
		v.estack.Push(v.estack.Top())

	case opcode.OVER:
		v.estack.Push(v.estack.Peek(1))

	case opcode.SWAP:
		v.estack.Swap(0)

	case opcode.LDSFLD:
		v.estack.PushItem(ctx.static.Get(int(parameter[0])))

	case opcode.STSFLD:
		ctx.static.Set(int(parameter[0]), v.estack.Pop().Item())

	case opcode.LDLOC:
		v.estack.PushItem(ctx.local.Get(int(parameter[0])))

	case opcode.STLOC:
		ctx.local.Set(int(parameter[0]), v.estack.Pop().Item())

	case opcode.EQUAL, opcode.NOTEQUAL:
		b := v.estack.Pop().Item()
		a := v.estack.Pop().Item()
		v.estack.PushVal(a.Equals(b) == (op == opcode.EQUAL))

	case opcode.NOT:
		v.estack.PushVal(!v.estack.Pop().Bool())

	case opcode.BOOLAND, opcode.BOOLOR:
		b := v.estack.Pop().Bool()
		a := v.estack.Pop().Bool()
		if op == opcode.BOOLAND {
			v.estack.PushVal(a && b)
		} else {
			v.estack.PushVal(a || b)
		}

	case opcode.INC, opcode.DEC:
		a := v.estack.Pop().Int()
		res := new(uint256.Int)
		if op == opcode.INC {
			res.AddUint64(a, 1)
			if res.IsZero() {
				panic(fmt.Errorf("%w: overflow", ErrArithmetic))
			}
		} else {
			if a.IsZero() {
				panic(fmt.Errorf("%w: underflow", ErrArithmetic))
			}
			res.SubUint64(a, 1)
		}
		v.estack.PushItem(stackitem.NewInteger(res))

	case opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV, opcode.MOD:
		b := v.estack.Pop().Int()
		a := v.estack.Pop().Int()
		v.estack.PushItem(stackitem.NewInteger(arith(op, a, b)))

	case opcode.LT, opcode.LE, opcode.GT, opcode.GE:
		b := v.estack.Pop().Int()
		a := v.estack.Pop().Int()
		var res bool
		switch op {
		case opcode.LT:
			res = a.Lt(b)
		case opcode.LE:
			res = !a.Gt(b)
		case opcode.GT:
			res = a.Gt(b)
		case opcode.GE:
			res = !a.Lt(b)
		}
		v.estack.PushVal(res)

	default:
		panic(fmt.Sprintf("unknown opcode %s", op.String()))
	}
	return
}

// abort pops the abort code and makes an error for it.
func (v *VM) abort(ctx *Context, assertion bool) *AbortError {
	code := v.estack.Pop().Int()
	if !code.IsUint64() {
		panic(fmt.Errorf("%w: abort code %s doesn't fit into 64 bits", ErrArithmetic, code.ToBig().String()))
	}
	return &AbortError{
		Code:      code.Uint64(),
		Assertion: assertion,
		Module:    ctx.ModuleID(),
		Function:  ctx.Function(),
		Offset:    ctx.ip,
	}
}

func arith(op opcode.Opcode, a, b *uint256.Int) *uint256.Int {
	res := new(uint256.Int)
	switch op {
	case opcode.ADD:
		res.Add(a, b)
		if res.Lt(a) {
			panic(fmt.Errorf("%w: overflow", ErrArithmetic))
		}
	case opcode.SUB:
		if a.Lt(b) {
			panic(fmt.Errorf("%w: underflow", ErrArithmetic))
		}
		res.Sub(a, b)
	case opcode.MUL:
		res.Mul(a, b)
		if !a.IsZero() && !new(uint256.Int).Div(res, a).Eq(b) {
			panic(fmt.Errorf("%w: overflow", ErrArithmetic))
		}
	case opcode.DIV, opcode.MOD:
		if b.IsZero() {
			panic(fmt.Errorf("%w: division by zero", ErrArithmetic))
		}
		if op == opcode.DIV {
			res.Div(a, b)
		} else {
			res.Mod(a, b)
		}
	}
	return res
}
