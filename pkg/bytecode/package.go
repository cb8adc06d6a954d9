package bytecode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nspcc-dev/neounit/pkg/namedaddr"
)

// ErrModuleNotFound is returned when some import refers to a module missing
// from the package.
var ErrModuleNotFound = errors.New("module not found")

// Package is a set of linked modules sharing one named address resolution.
// It's immutable after creation.
type Package struct {
	Name       string
	Resolution *namedaddr.Resolution

	modules []*Module
	byID    map[ModuleID]*Module
}

// NewPackage creates a package from linked modules, every import must refer
// to an existing function of some module in the set.
func NewPackage(name string, res *namedaddr.Resolution, modules []*Module) (*Package, error) {
	p := &Package{
		Name:       name,
		Resolution: res,
		modules:    make([]*Module, len(modules)),
		byID:       make(map[ModuleID]*Module, len(modules)),
	}
	copy(p.modules, modules)
	for _, m := range p.modules {
		if !m.IsLinked() {
			return nil, fmt.Errorf("module %s::%s is not linked", m.AddressName, m.Name)
		}
		if _, ok := p.byID[m.ID()]; ok {
			return nil, fmt.Errorf("%w: duplicate module %s", ErrInvalidModule, m.ID())
		}
		p.byID[m.ID()] = m
	}
	sort.Slice(p.modules, func(i, j int) bool {
		return p.modules[i].ID().Compare(p.modules[j].ID()) < 0
	})
	for _, m := range p.modules {
		for i := range m.imports {
			imp := m.imports[i]
			target, ok := p.byID[imp.Module]
			if !ok {
				return nil, fmt.Errorf("%w: %s imports %s", ErrModuleNotFound, m.ID(), imp.Module)
			}
			if _, ok := target.FunctionByName(imp.Function); !ok {
				return nil, fmt.Errorf("%w: %s imports %s::%s which doesn't exist",
					ErrInvalidModule, m.ID(), imp.Module, imp.Function)
			}
		}
	}
	return p, nil
}

// Modules returns package modules ordered by id.
func (p *Package) Modules() []*Module {
	return p.modules
}

// Module returns the module with the given id.
func (p *Package) Module(id ModuleID) (*Module, bool) {
	m, ok := p.byID[id]
	return m, ok
}
