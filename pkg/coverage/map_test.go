package coverage

import (
	"math/rand"
	"testing"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/nspcc-dev/neounit/pkg/util/bitfield"
	"github.com/nspcc-dev/neounit/pkg/vm"
	"github.com/nspcc-dev/neounit/pkg/vm/emit"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
	"github.com/stretchr/testify/require"
)

var testID = bytecode.ModuleID{Address: util.Uint160{19: 1}, Name: "m"}

func prog(t *testing.T, f func(w *io.BinWriter)) []byte {
	buf := io.NewBufBinWriter()
	f(buf.BinWriter)
	require.NoError(t, buf.Err)
	return buf.Bytes()
}

// testPackage has a module with "main" (7 instructions, a branch never
// taken) and "unused" (2 instructions).
func testPackage(t *testing.T) *bytecode.Package {
	m := &bytecode.Module{
		AddressName: "std",
		Name:        "m",
		Functions: []bytecode.Function{
			{
				Name: "main",
				Code: prog(t, func(w *io.BinWriter) {
					emit.Bool(w, true)            // 0
					emit.Jmp(w, opcode.JMPIF, 6)  // 1
					emit.Abort(w, 1)              // 4, 5
					emit.Int(w, 1)                // 6
					emit.Int(w, 1)                // 7
					emit.Opcodes(w, opcode.EQUAL) // 8
					emit.Assert(w, 2)             // 9, 10
				}),
			},
			{
				Name: "unused",
				Code: prog(t, func(w *io.BinWriter) {
					emit.Opcodes(w, opcode.NOP, opcode.RET)
				}),
			},
		},
	}
	res, err := namedaddr.Resolve(nil, []namedaddr.NamedAddress{{Name: "std", Address: testID.Address}})
	require.NoError(t, err)
	l, err := m.Link(res)
	require.NoError(t, err)
	p, err := bytecode.NewPackage("test", res, []*bytecode.Module{l})
	require.NoError(t, err)
	return p
}

func runMain(t *testing.T, p *bytecode.Package, r *Recorder) {
	v := vm.New(p)
	v.SetOnExecHook(r.Hook())
	require.NoError(t, v.LoadFunction(testID, "main"))
	require.NoError(t, v.Run())
}

func TestRecorderAndMap(t *testing.T) {
	p := testPackage(t)
	m := NewMap()
	m.AddPackage(p)

	c, total, ok := m.Ratio(testID, "main")
	require.True(t, ok)
	require.Equal(t, 0, c)
	require.Equal(t, 9, total)

	r := NewRecorder()
	runMain(t, p, r)
	require.Equal(t, 7, r.Len())
	require.Equal(t, Event{Module: testID, Function: "main", Offset: 0, Op: opcode.PUSHT}, r.Events()[0])

	// Events are not deduplicated.
	runMain(t, p, r)
	require.Equal(t, 14, r.Len())

	m.Apply(r.Events())
	c, total, ok = m.Ratio(testID, "main")
	require.True(t, ok)
	require.Equal(t, 7, c)
	require.Equal(t, 9, total)

	c, total, ok = m.Ratio(testID, "unused")
	require.True(t, ok)
	require.Equal(t, 0, c)
	require.Equal(t, 2, total)

	c, total, ok = m.ModuleRatio(testID)
	require.True(t, ok)
	require.Equal(t, 7, c)
	require.Equal(t, 11, total)

	_, _, ok = m.Ratio(testID, "missing")
	require.False(t, ok)
	_, _, ok = m.ModuleRatio(bytecode.ModuleID{Name: "missing"})
	require.False(t, ok)

	r.Reset()
	require.Equal(t, 0, r.Len())
}

func TestApplyIgnoresUnknown(t *testing.T) {
	m := NewMap()
	m.AddPackage(testPackage(t))
	before := m.Summary()
	m.Apply([]Event{
		{Module: bytecode.ModuleID{Name: "other"}, Function: "main"},
		{Module: testID, Function: "other"},
		{Module: testID, Function: "main", Offset: 2},
		{Module: testID, Function: "main", Offset: 5000},
		{Module: testID, Function: "main", Offset: -1},
	})
	require.Equal(t, before, m.Summary())
}

func TestAddModuleKeepsCoverage(t *testing.T) {
	p := testPackage(t)
	m := NewMap()
	m.AddPackage(p)
	m.Apply([]Event{{Module: testID, Function: "main", Offset: 0}})

	m.AddPackage(p)
	c, _, _ := m.Ratio(testID, "main")
	require.Equal(t, 1, c)

	// Changed function code invalidates the old data.
	f, _ := m.Function(testID, "main")
	f.Instructions.Set(3)
	m.AddPackage(p)
	c, total, _ := m.Ratio(testID, "main")
	require.Equal(t, 0, c)
	require.Equal(t, 9, total)
}

func TestSummary(t *testing.T) {
	p := testPackage(t)
	m := NewMap()
	m.AddPackage(p)
	r := NewRecorder()
	runMain(t, p, r)
	m.Apply(r.Events())

	s := m.Summary()
	require.Equal(t, Ratio{Covered: 7, Total: 11}, s.Ratio)
	require.Len(t, s.Modules, 1)
	ms, ok := s.Module(testID)
	require.True(t, ok)
	require.Equal(t, []FunctionSummary{
		{Name: "main", Ratio: Ratio{Covered: 7, Total: 9}},
		{Name: "unused", Ratio: Ratio{Covered: 0, Total: 2}},
	}, ms.Functions)
	require.InDelta(t, 77.77, ms.Functions[0].Percent(), 0.01)
	require.EqualValues(t, 100, Ratio{}.Percent())

	_, ok = s.Module(bytecode.ModuleID{})
	require.False(t, ok)
}

func randMap(r *rand.Rand) *Map {
	m := NewMap()
	for i := 0; i < 1+r.Intn(4); i++ {
		id := bytecode.ModuleID{Address: util.Uint160{19: byte(r.Intn(3))}, Name: []string{"a", "b"}[r.Intn(2)]}
		fns := make(map[string]*FunctionCoverage)
		for j := 0; j < r.Intn(4); j++ {
			size := r.Intn(200)
			f := &FunctionCoverage{Size: size, Instructions: bitfield.New(size), Covered: bitfield.New(size)}
			for off := 0; off < size; off++ {
				if r.Intn(3) == 0 {
					f.Instructions.Set(off)
					if r.Intn(2) == 0 {
						f.Covered.Set(off)
					}
				}
			}
			fns[[]string{"f", "g", "h"}[r.Intn(3)]] = f
		}
		m.modules[id] = fns
	}
	return m
}

func merged(maps ...*Map) *Map {
	res := NewMap()
	for _, m := range maps {
		res.Merge(m)
	}
	return res
}

func TestMergeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		a, b, c := randMap(r), randMap(r), randMap(r)

		// Idempotence.
		require.Equal(t, merged(a), merged(a, a))
		// Commutativity.
		require.Equal(t, merged(a, b), merged(b, a))
		// Associativity.
		require.Equal(t, merged(merged(a, b), c), merged(a, merged(b, c)))

		// Merge only adds coverage.
		ab := merged(a, b)
		for _, id := range a.Modules() {
			for _, name := range a.Functions(id) {
				ca, _, _ := a.Ratio(id, name)
				cab, _, ok := ab.Ratio(id, name)
				require.True(t, ok)
				require.GreaterOrEqual(t, cab, ca)
			}
		}
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	a := NewMap()
	a.AddPackage(testPackage(t))
	b := merged(a)
	b.Apply([]Event{{Module: testID, Function: "main", Offset: 0}})
	c, _, _ := a.Ratio(testID, "main")
	require.Equal(t, 0, c)
}
