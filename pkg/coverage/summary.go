package coverage

import (
	"github.com/nspcc-dev/neounit/pkg/bytecode"
)

// Ratio is a covered/total instruction pair.
type Ratio struct {
	Covered int
	Total   int
}

// Percent returns coverage percentage, empty code is fully covered.
func (r Ratio) Percent() float64 {
	if r.Total == 0 {
		return 100
	}
	return float64(r.Covered) * 100 / float64(r.Total)
}

func (r *Ratio) add(o Ratio) {
	r.Covered += o.Covered
	r.Total += o.Total
}

// FunctionSummary is the coverage of a function.
type FunctionSummary struct {
	Name string
	Ratio
}

// ModuleSummary is the coverage of a module and its functions.
type ModuleSummary struct {
	Module    bytecode.ModuleID
	Functions []FunctionSummary
	Ratio
}

// Summary is the coverage report for the whole map, modules and functions
// are sorted.
type Summary struct {
	Modules []ModuleSummary
	Ratio
}

// Summary builds a coverage report.
func (m *Map) Summary() Summary {
	var s Summary
	for _, id := range m.Modules() {
		ms := ModuleSummary{Module: id}
		for _, name := range m.Functions(id) {
			c, t := m.modules[id][name].Ratio()
			fs := FunctionSummary{Name: name, Ratio: Ratio{Covered: c, Total: t}}
			ms.Functions = append(ms.Functions, fs)
			ms.add(fs.Ratio)
		}
		s.Modules = append(s.Modules, ms)
		s.add(ms.Ratio)
	}
	return s
}

// Module returns the summary for the given module.
func (s Summary) Module(id bytecode.ModuleID) (ModuleSummary, bool) {
	for _, ms := range s.Modules {
		if ms.Module == id {
			return ms, true
		}
	}
	return ModuleSummary{}, false
}
