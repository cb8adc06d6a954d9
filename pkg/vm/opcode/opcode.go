// Package opcode contains the instruction set of the test VM.
package opcode

import "fmt"

// Opcode represents a single operation code for the VM.
type Opcode byte

// Viable list of supported instruction constants.
const (
	// Constants.
	PUSHINT8   Opcode = 0x00
	PUSHINT16  Opcode = 0x01
	PUSHINT32  Opcode = 0x02
	PUSHINT64  Opcode = 0x03
	PUSHINT128 Opcode = 0x04
	PUSHINT256 Opcode = 0x05

	PUSHT Opcode = 0x08
	PUSHF Opcode = 0x09

	PUSHADDR  Opcode = 0x0A
	PUSHDATA1 Opcode = 0x0C

	PUSH0  Opcode = 0x10
	PUSH1  Opcode = 0x11
	PUSH2  Opcode = 0x12
	PUSH3  Opcode = 0x13
	PUSH4  Opcode = 0x14
	PUSH5  Opcode = 0x15
	PUSH6  Opcode = 0x16
	PUSH7  Opcode = 0x17
	PUSH8  Opcode = 0x18
	PUSH9  Opcode = 0x19
	PUSH10 Opcode = 0x1A
	PUSH11 Opcode = 0x1B
	PUSH12 Opcode = 0x1C
	PUSH13 Opcode = 0x1D
	PUSH14 Opcode = 0x1E
	PUSH15 Opcode = 0x1F
	PUSH16 Opcode = 0x20

	// Flow control.
	NOP      Opcode = 0x21
	JMP      Opcode = 0x22
	JMPIF    Opcode = 0x24
	JMPIFNOT Opcode = 0x26
	CALL     Opcode = 0x34
	CALLT    Opcode = 0x37
	ABORT    Opcode = 0x38
	ASSERT   Opcode = 0x39
	RET      Opcode = 0x40
	SYSCALL  Opcode = 0x41

	// Stack.
	DROP Opcode = 0x45
	DUP  Opcode = 0x4A
	OVER Opcode = 0x4B
	SWAP Opcode = 0x50

	// Slots.
	LDSFLD Opcode = 0x58
	STSFLD Opcode = 0x60
	LDLOC  Opcode = 0x68
	STLOC  Opcode = 0x70

	// Bitwise logic.
	EQUAL    Opcode = 0x97
	NOTEQUAL Opcode = 0x98

	// Arithmetic.
	INC     Opcode = 0x9C
	DEC     Opcode = 0x9D
	ADD     Opcode = 0x9E
	SUB     Opcode = 0x9F
	MUL     Opcode = 0xA0
	DIV     Opcode = 0xA1
	MOD     Opcode = 0xA2
	NOT     Opcode = 0xAA
	BOOLAND Opcode = 0xAB
	BOOLOR  Opcode = 0xAC
	LT      Opcode = 0xB5
	LE      Opcode = 0xB6
	GT      Opcode = 0xB7
	GE      Opcode = 0xB8
)

var names = map[Opcode]string{
	PUSHINT8: "PUSHINT8", PUSHINT16: "PUSHINT16", PUSHINT32: "PUSHINT32",
	PUSHINT64: "PUSHINT64", PUSHINT128: "PUSHINT128", PUSHINT256: "PUSHINT256",
	PUSHT: "PUSHT", PUSHF: "PUSHF", PUSHADDR: "PUSHADDR", PUSHDATA1: "PUSHDATA1",
	PUSH0: "PUSH0", PUSH1: "PUSH1", PUSH2: "PUSH2", PUSH3: "PUSH3", PUSH4: "PUSH4",
	PUSH5: "PUSH5", PUSH6: "PUSH6", PUSH7: "PUSH7", PUSH8: "PUSH8", PUSH9: "PUSH9",
	PUSH10: "PUSH10", PUSH11: "PUSH11", PUSH12: "PUSH12", PUSH13: "PUSH13",
	PUSH14: "PUSH14", PUSH15: "PUSH15", PUSH16: "PUSH16",
	NOP: "NOP", JMP: "JMP", JMPIF: "JMPIF", JMPIFNOT: "JMPIFNOT", CALL: "CALL",
	CALLT: "CALLT", ABORT: "ABORT", ASSERT: "ASSERT", RET: "RET", SYSCALL: "SYSCALL",
	DROP: "DROP", DUP: "DUP", OVER: "OVER", SWAP: "SWAP",
	LDSFLD: "LDSFLD", STSFLD: "STSFLD", LDLOC: "LDLOC", STLOC: "STLOC",
	EQUAL: "EQUAL", NOTEQUAL: "NOTEQUAL",
	INC: "INC", DEC: "DEC", ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD",
	NOT: "NOT", BOOLAND: "BOOLAND", BOOLOR: "BOOLOR",
	LT: "LT", LE: "LE", GT: "GT", GE: "GE",
}

// String implements the fmt.Stringer interface.
func (op Opcode) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// IsValid returns true if the opcode passed is valid (defined in the VM).
func IsValid(op Opcode) bool {
	_, ok := names[op]
	return ok
}

// FromString converts a string representation to an opcode.
func FromString(s string) (Opcode, error) {
	for op, name := range names {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown opcode: %s", s)
}

// OperandSize returns the number of fixed operand bytes following op. For
// PUSHDATA1 it's the size of the length prefix, the data itself follows.
func OperandSize(op Opcode) int {
	switch op {
	case PUSHINT8, PUSHADDR, PUSHDATA1, LDSFLD, STSFLD, LDLOC, STLOC:
		return 1
	case PUSHINT16, JMP, JMPIF, JMPIFNOT, CALL, CALLT:
		return 2
	case PUSHINT32, SYSCALL:
		return 4
	case PUSHINT64:
		return 8
	case PUSHINT128:
		return 16
	case PUSHINT256:
		return 32
	}
	return 0
}

// IsJump returns true for the instructions with a jump target operand.
func IsJump(op Opcode) bool {
	return op == JMP || op == JMPIF || op == JMPIFNOT
}
