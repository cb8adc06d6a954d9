// Package emit implements helpers to write VM instructions into a buffer.
package emit

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/vm/interopnames"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
)

// Instruction emits a VM Instruction with data to the given buffer.
func Instruction(w *io.BinWriter, op opcode.Opcode, b []byte) {
	w.WriteB(byte(op))
	w.WriteBytes(b)
}

// Opcodes emits a single VM Instruction without arguments to the given buffer.
func Opcodes(w *io.BinWriter, ops ...opcode.Opcode) {
	for _, op := range ops {
		w.WriteB(byte(op))
	}
}

// Bool emits a bool type to the given buffer.
func Bool(w *io.BinWriter, ok bool) {
	if ok {
		Opcodes(w, opcode.PUSHT)
		return
	}
	Opcodes(w, opcode.PUSHF)
}

// Int emits an integer using the shortest instruction possible.
func Int(w *io.BinWriter, i uint64) {
	if i <= 16 {
		Opcodes(w, opcode.PUSH0+opcode.Opcode(i))
		return
	}
	BigInt(w, uint256.NewInt(i))
}

// BigInt emits an arbitrary 256-bit integer.
func BigInt(w *io.BinWriter, n *uint256.Int) {
	var (
		size = (n.BitLen() + 7) / 8
		op   opcode.Opcode
	)
	switch {
	case size <= 1:
		op, size = opcode.PUSHINT8, 1
	case size <= 2:
		op, size = opcode.PUSHINT16, 2
	case size <= 4:
		op, size = opcode.PUSHINT32, 4
	case size <= 8:
		op, size = opcode.PUSHINT64, 8
	case size <= 16:
		op, size = opcode.PUSHINT128, 16
	default:
		op, size = opcode.PUSHINT256, 32
	}
	be := n.Bytes32()
	le := make([]byte, size)
	for i := range le {
		le[i] = be[31-i]
	}
	Instruction(w, op, le)
}

// Bytes emits a byte string to the given buffer.
func Bytes(w *io.BinWriter, b []byte) {
	if len(b) > 0xff {
		w.Err = fmt.Errorf("byte string is too long: %d", len(b))
		return
	}
	w.WriteB(byte(opcode.PUSHDATA1))
	w.WriteVarBytes(b)
}

// String emits a string to the given buffer.
func String(w *io.BinWriter, s string) {
	Bytes(w, []byte(s))
}

// Address emits a reference to the module's named address with the given
// index.
func Address(w *io.BinWriter, idx uint8) {
	Instruction(w, opcode.PUSHADDR, []byte{idx})
}

// Jmp emits a jump instruction to the absolute offset within the function.
func Jmp(w *io.BinWriter, op opcode.Opcode, target uint16) {
	if !opcode.IsJump(op) {
		w.Err = fmt.Errorf("opcode %s is not a jump", op)
		return
	}
	Instruction(w, op, u16(target))
}

// Call emits a call of the function with the given index in the current module.
func Call(w *io.BinWriter, fn uint16) {
	Instruction(w, opcode.CALL, u16(fn))
}

// CallT emits a call via the module's import table.
func CallT(w *io.BinWriter, imp uint16) {
	Instruction(w, opcode.CALLT, u16(imp))
}

// Syscall emits the syscall API function id.
func Syscall(w *io.BinWriter, api string) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, interopnames.ToID([]byte(api)))
	Instruction(w, opcode.SYSCALL, buf)
}

// Slot emits a slot access instruction (LDLOC/STLOC/LDSFLD/STSFLD).
func Slot(w *io.BinWriter, op opcode.Opcode, idx uint8) {
	Instruction(w, op, []byte{idx})
}

// Abort emits an abort with the given code.
func Abort(w *io.BinWriter, code uint64) {
	Int(w, code)
	Opcodes(w, opcode.ABORT)
}

// Assert emits an assertion of the boolean on top of the stack, failing
// with the given code.
func Assert(w *io.BinWriter, code uint64) {
	Int(w, code)
	Opcodes(w, opcode.ASSERT)
}

func u16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}
