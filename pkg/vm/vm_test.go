package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/nspcc-dev/neounit/pkg/vm/emit"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

var testID = bytecode.ModuleID{Address: util.Uint160{19: 1}, Name: "m"}

func prog(t *testing.T, f func(w *io.BinWriter)) []byte {
	buf := io.NewBufBinWriter()
	f(buf.BinWriter)
	require.NoError(t, buf.Err)
	return buf.Bytes()
}

func testPackage(t *testing.T, fns ...bytecode.Function) *bytecode.Package {
	m := &bytecode.Module{
		AddressName: "std",
		Name:        "m",
		AddressRefs: []string{"std"},
		Imports:     []bytecode.Import{{AddressName: "std", Module: "m", Function: "inc"}},
		Statics:     2,
		Functions: append([]bytecode.Function{{
			Name:    "inc",
			Params:  1,
			Returns: 1,
			Code: prog(t, func(w *io.BinWriter) {
				emit.Slot(w, opcode.LDLOC, 0)
				emit.Opcodes(w, opcode.INC, opcode.RET)
			}),
		}}, fns...),
	}
	res, err := namedaddr.Resolve(nil, []namedaddr.NamedAddress{{Name: "std", Address: testID.Address}})
	require.NoError(t, err)
	l, err := m.Link(res)
	require.NoError(t, err)
	p, err := bytecode.NewPackage("test", res, []*bytecode.Module{l})
	require.NoError(t, err)
	return p
}

// load creates a VM for the "main" function with the given code.
func load(t *testing.T, returns byte, f func(w *io.BinWriter)) *VM {
	p := testPackage(t, bytecode.Function{Name: "main", Locals: 2, Returns: returns, Code: prog(t, f)})
	v := New(p)
	require.NoError(t, v.LoadFunction(testID, "main"))
	return v
}

func runWithResult(t *testing.T, f func(w *io.BinWriter)) stackitem.Item {
	v := load(t, 1, f)
	require.NoError(t, v.Run())
	require.True(t, v.HasHalted())
	require.Equal(t, 1, v.Estack().Len())
	return v.Estack().Pop().Item()
}

func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func TestArithmetic(t *testing.T) {
	testCases := []struct {
		op       opcode.Opcode
		a, b     uint64
		expected uint64
	}{
		{opcode.ADD, 2, 3, 5},
		{opcode.SUB, 7, 3, 4},
		{opcode.SUB, 3, 3, 0},
		{opcode.MUL, 6, 7, 42},
		{opcode.DIV, 43, 7, 6},
		{opcode.MOD, 43, 7, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.op.String(), func(t *testing.T) {
			res := runWithResult(t, func(w *io.BinWriter) {
				emit.Int(w, tc.a)
				emit.Int(w, tc.b)
				emit.Opcodes(w, tc.op, opcode.RET)
			})
			require.Equal(t, stackitem.NewInt(tc.expected), res)
		})
	}

	t.Run("INC", func(t *testing.T) {
		res := runWithResult(t, func(w *io.BinWriter) {
			emit.Int(w, 41)
			emit.Opcodes(w, opcode.INC)
		})
		require.Equal(t, stackitem.NewInt(42), res)
	})
	t.Run("DEC", func(t *testing.T) {
		res := runWithResult(t, func(w *io.BinWriter) {
			emit.Int(w, 43)
			emit.Opcodes(w, opcode.DEC)
		})
		require.Equal(t, stackitem.NewInt(42), res)
	})
	t.Run("big", func(t *testing.T) {
		big := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
		res := runWithResult(t, func(w *io.BinWriter) {
			emit.BigInt(w, big)
			emit.Int(w, 2)
			emit.Opcodes(w, opcode.MUL)
		})
		require.Equal(t, stackitem.NewInteger(new(uint256.Int).Lsh(uint256.NewInt(1), 201)), res)
	})
}

func TestArithmeticErrors(t *testing.T) {
	testCases := map[string]func(w *io.BinWriter){
		"add overflow": func(w *io.BinWriter) {
			emit.BigInt(w, maxUint256())
			emit.Int(w, 1)
			emit.Opcodes(w, opcode.ADD)
		},
		"sub underflow": func(w *io.BinWriter) {
			emit.Int(w, 1)
			emit.Int(w, 2)
			emit.Opcodes(w, opcode.SUB)
		},
		"mul overflow": func(w *io.BinWriter) {
			emit.BigInt(w, new(uint256.Int).Lsh(uint256.NewInt(1), 255))
			emit.Int(w, 2)
			emit.Opcodes(w, opcode.MUL)
		},
		"div by zero": func(w *io.BinWriter) {
			emit.Int(w, 1)
			emit.Int(w, 0)
			emit.Opcodes(w, opcode.DIV)
		},
		"mod by zero": func(w *io.BinWriter) {
			emit.Int(w, 1)
			emit.Int(w, 0)
			emit.Opcodes(w, opcode.MOD)
		},
		"inc overflow": func(w *io.BinWriter) {
			emit.BigInt(w, maxUint256())
			emit.Opcodes(w, opcode.INC)
		},
		"dec underflow": func(w *io.BinWriter) {
			emit.Int(w, 0)
			emit.Opcodes(w, opcode.DEC)
		},
	}
	for name, f := range testCases {
		t.Run(name, func(t *testing.T) {
			v := load(t, 1, f)
			err := v.Run()
			require.ErrorIs(t, err, ErrArithmetic)
			require.True(t, v.HasFailed())

			var execErr *ExecError
			require.ErrorAs(t, err, &execErr)
			require.Equal(t, testID, execErr.Module)
			require.Equal(t, "main", execErr.Function)
		})
	}
}

func emitArgs(w *io.BinWriter, args ...any) {
	for _, a := range args {
		switch a := a.(type) {
		case int:
			emit.Int(w, uint64(a))
		case bool:
			emit.Bool(w, a)
		case string:
			emit.String(w, a)
		}
	}
}

func TestComparisonAndLogic(t *testing.T) {
	testCases := []struct {
		name     string
		op       opcode.Opcode
		args     []any
		expected bool
	}{
		{"LT", opcode.LT, []any{1, 2}, true},
		{"LE equal", opcode.LE, []any{2, 2}, true},
		{"LE greater", opcode.LE, []any{3, 2}, false},
		{"GT", opcode.GT, []any{1, 2}, false},
		{"GE", opcode.GE, []any{3, 2}, true},
		{"EQUAL ints", opcode.EQUAL, []any{300, 300}, true},
		{"EQUAL types", opcode.EQUAL, []any{1, true}, false},
		{"NOTEQUAL bytes", opcode.NOTEQUAL, []any{"a", "b"}, true},
		{"NOT", opcode.NOT, []any{false}, true},
		{"BOOLAND", opcode.BOOLAND, []any{true, false}, false},
		{"BOOLOR", opcode.BOOLOR, []any{true, false}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := runWithResult(t, func(w *io.BinWriter) {
				emitArgs(w, tc.args...)
				emit.Opcodes(w, tc.op)
			})
			require.Equal(t, stackitem.NewBool(tc.expected), res)
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	v := load(t, 1, func(w *io.BinWriter) {
		emit.Int(w, 1)
		emit.Opcodes(w, opcode.NOT)
	})
	err := v.Run()
	require.ErrorIs(t, err, stackitem.ErrInvalidConversion)
}

func TestStackOps(t *testing.T) {
	res := runWithResult(t, func(w *io.BinWriter) {
		emit.Int(w, 10)
		emit.Int(w, 3)
		emit.Opcodes(w, opcode.SWAP, opcode.OVER, opcode.DROP, opcode.DUP, opcode.DROP, opcode.SWAP, opcode.SUB)
	})
	require.Equal(t, stackitem.NewInt(7), res)

	v := load(t, 0, func(w *io.BinWriter) { emit.Opcodes(w, opcode.DROP) })
	require.Error(t, v.Run())
	require.True(t, v.HasFailed())
}

func TestPushData(t *testing.T) {
	res := runWithResult(t, func(w *io.BinWriter) { emit.String(w, "hello") })
	require.Equal(t, stackitem.NewByteArray([]byte("hello")), res)

	res = runWithResult(t, func(w *io.BinWriter) { emit.Address(w, 0) })
	require.Equal(t, stackitem.NewByteArray(testID.Address.BytesBE()), res)

	res = runWithResult(t, func(w *io.BinWriter) { emit.Int(w, 0x1234567890) })
	require.Equal(t, stackitem.NewInt(0x1234567890), res)
}

func TestJumps(t *testing.T) {
	// Sums 5..1 using a loop over a local counter.
	v := load(t, 1, func(w *io.BinWriter) {
		emit.Int(w, 5)                   // 0
		emit.Slot(w, opcode.STLOC, 0)    // 1
		emit.Slot(w, opcode.LDLOC, 0)    // 3
		emit.Int(w, 0)                   // 5
		emit.Opcodes(w, opcode.GT)       // 6
		emit.Jmp(w, opcode.JMPIFNOT, 26) // 7
		emit.Slot(w, opcode.LDLOC, 1)    // 10
		emit.Slot(w, opcode.LDLOC, 0)    // 12
		emit.Opcodes(w, opcode.ADD)      // 14
		emit.Slot(w, opcode.STLOC, 1)    // 15
		emit.Slot(w, opcode.LDLOC, 0)    // 17
		emit.Opcodes(w, opcode.DEC)      // 19
		emit.Slot(w, opcode.STLOC, 0)    // 20
		emit.Jmp(w, opcode.JMP, 3)       // 22
		emit.Opcodes(w, opcode.NOP)      // 25
		emit.Slot(w, opcode.LDLOC, 1)    // 26
	})
	require.NoError(t, v.Run())
	require.Equal(t, stackitem.NewInt(15), v.Estack().Pop().Item())
}
