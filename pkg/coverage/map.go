package coverage

import (
	"sort"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/util/bitfield"
)

// FunctionCoverage is the coverage of a single function. Instructions has a
// bit set for every instruction start offset, Covered for every instruction
// executed at least once. Both are Size bits long.
type FunctionCoverage struct {
	Size         int
	Instructions bitfield.Field
	Covered      bitfield.Field
}

func newFunctionCoverage(size int, offsets []int) *FunctionCoverage {
	f := &FunctionCoverage{
		Size:         size,
		Instructions: bitfield.New(size),
		Covered:      bitfield.New(size),
	}
	for _, off := range offsets {
		f.Instructions.Set(off)
	}
	return f
}

// Ratio returns the number of covered instructions and the total number of
// instructions.
func (f *FunctionCoverage) Ratio() (int, int) {
	return f.Covered.Count(), f.Instructions.Count()
}

func (f *FunctionCoverage) copy() *FunctionCoverage {
	return &FunctionCoverage{
		Size:         f.Size,
		Instructions: f.Instructions.Copy(),
		Covered:      f.Covered.Copy(),
	}
}

func (f *FunctionCoverage) grow(size int) {
	if size <= f.Size {
		return
	}
	n := bitfield.Words(size)
	f.Instructions = append(f.Instructions, make(bitfield.Field, n-len(f.Instructions))...)
	f.Covered = append(f.Covered, make(bitfield.Field, n-len(f.Covered))...)
	f.Size = size
}

// Map is the coverage of a set of modules: module id to function name to
// function coverage. It's not safe for concurrent use.
type Map struct {
	modules map[bytecode.ModuleID]map[string]*FunctionCoverage
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{modules: make(map[bytecode.ModuleID]map[string]*FunctionCoverage)}
}

// AddPackage registers all modules of the package.
func (m *Map) AddPackage(p *bytecode.Package) {
	for _, mod := range p.Modules() {
		m.AddModule(mod)
	}
}

// AddModule registers every function of the linked module with no
// instructions covered. Existing entries of the same shape are kept as is,
// entries for functions that changed since they were recorded are reset.
func (m *Map) AddModule(mod *bytecode.Module) {
	fns, ok := m.modules[mod.ID()]
	if !ok {
		fns = make(map[string]*FunctionCoverage, len(mod.Functions))
		m.modules[mod.ID()] = fns
	}
	for i := range mod.Functions {
		f := &mod.Functions[i]
		fresh := newFunctionCoverage(len(f.Code), f.Offsets())
		if old, ok := fns[f.Name]; ok && old.Size == fresh.Size && old.Instructions.Equals(fresh.Instructions) {
			continue
		}
		fns[f.Name] = fresh
	}
}

// Apply marks instructions from the events as covered. Events referring to
// unknown modules, functions or offsets are ignored.
func (m *Map) Apply(events []Event) {
	for _, ev := range events {
		f, ok := m.Function(ev.Module, ev.Function)
		if !ok || !f.Instructions.IsSet(ev.Offset) {
			continue
		}
		f.Covered.Set(ev.Offset)
	}
}

// Merge adds coverage from the other map to m. The result doesn't depend on
// the order of merges.
func (m *Map) Merge(other *Map) {
	for id, ofns := range other.modules {
		fns, ok := m.modules[id]
		if !ok {
			fns = make(map[string]*FunctionCoverage, len(ofns))
			m.modules[id] = fns
		}
		for name, of := range ofns {
			f, ok := fns[name]
			if !ok {
				fns[name] = of.copy()
				continue
			}
			f.grow(of.Size)
			f.Instructions.Or(of.Instructions)
			f.Covered.Or(of.Covered)
		}
	}
}

// Modules returns ids of all modules in the map in ascending order.
func (m *Map) Modules() []bytecode.ModuleID {
	ids := make([]bytecode.ModuleID, 0, len(m.modules))
	for id := range m.modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// Functions returns names of all functions of the module in ascending
// order.
func (m *Map) Functions(id bytecode.ModuleID) []string {
	fns := m.modules[id]
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Function returns the coverage of the given function.
func (m *Map) Function(id bytecode.ModuleID, name string) (*FunctionCoverage, bool) {
	f, ok := m.modules[id][name]
	return f, ok
}

// Ratio returns the number of covered and total instructions of the
// function, ok is false if there is no such function.
func (m *Map) Ratio(id bytecode.ModuleID, name string) (covered, total int, ok bool) {
	f, ok := m.Function(id, name)
	if !ok {
		return 0, 0, false
	}
	covered, total = f.Ratio()
	return covered, total, true
}

// ModuleRatio returns the number of covered and total instructions of all
// functions of the module.
func (m *Map) ModuleRatio(id bytecode.ModuleID) (covered, total int, ok bool) {
	fns, ok := m.modules[id]
	if !ok {
		return 0, 0, false
	}
	for _, f := range fns {
		c, t := f.Ratio()
		covered += c
		total += t
	}
	return covered, total, true
}

// Len returns the number of modules in the map.
func (m *Map) Len() int {
	return len(m.modules)
}
