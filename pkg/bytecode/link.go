package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
)

// ErrInvalidModule is returned for modules that fail verification.
var ErrInvalidModule = errors.New("invalid module")

// Offsets returns instruction offsets of the function code, they're
// computed when the module is linked.
func (f *Function) Offsets() []int {
	return f.offsets
}

// Link returns a copy of the module with all named addresses bound using the
// given resolution. The code of every function is verified in the process.
// The receiver is not modified, so the same decoded module can be linked
// with different resolutions.
func (m *Module) Link(res *namedaddr.Resolution) (*Module, error) {
	lookup := func(name string) (util.Uint160, error) {
		u, ok := res.Lookup(name)
		if !ok {
			return u, &namedaddr.UnresolvedAddressError{Name: name}
		}
		return u, nil
	}

	addr, err := lookup(m.AddressName)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", m.Name, err)
	}
	l := &Module{
		AddressName: m.AddressName,
		Name:        m.Name,
		AddressRefs: m.AddressRefs,
		Imports:     m.Imports,
		Statics:     m.Statics,
		Functions:   make([]Function, len(m.Functions)),

		linked:    true,
		id:        ModuleID{Address: addr, Name: m.Name},
		addresses: make([]util.Uint160, len(m.AddressRefs)),
		imports:   make([]ResolvedImport, len(m.Imports)),
		fnIndex:   make(map[string]int, len(m.Functions)),
	}
	for i, name := range m.AddressRefs {
		if l.addresses[i], err = lookup(name); err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	for i, imp := range m.Imports {
		u, err := lookup(imp.AddressName)
		if err != nil {
			return nil, fmt.Errorf("module %s: import %s: %w", m.Name, imp, err)
		}
		l.imports[i] = ResolvedImport{
			Module:   ModuleID{Address: u, Name: imp.Module},
			Function: imp.Function,
		}
	}
	for i := range m.Functions {
		f := m.Functions[i]
		if _, ok := l.fnIndex[f.Name]; ok {
			return nil, fmt.Errorf("%w: %s: duplicate function %s", ErrInvalidModule, l.id, f.Name)
		}
		l.fnIndex[f.Name] = i
		if f.IsTest() && int(f.Params) != len(f.Signers) {
			return nil, fmt.Errorf("%w: %s::%s: %d parameters, %d signers",
				ErrInvalidModule, l.id, f.Name, f.Params, len(f.Signers))
		}
		f.signers = make([]util.Uint160, len(f.Signers))
		for j, name := range f.Signers {
			if f.signers[j], err = lookup(name); err != nil {
				return nil, fmt.Errorf("module %s: function %s: %w", m.Name, f.Name, err)
			}
		}
		if f.offsets, err = l.verify(&f); err != nil {
			return nil, fmt.Errorf("%w: %s::%s: %v", ErrInvalidModule, l.id, f.Name, err)
		}
		l.Functions[i] = f
	}
	return l, nil
}

// verify checks operands of all instructions against module and function
// tables and returns instruction offsets.
func (m *Module) verify(f *Function) ([]int, error) {
	if int(f.Params)+int(f.Locals) > MaxSlots {
		return nil, fmt.Errorf("too many locals: %d", int(f.Params)+int(f.Locals))
	}
	offsets, err := opcode.Offsets(f.Code)
	if err != nil {
		return nil, err
	}
	for _, off := range offsets {
		op, param, _, _ := opcode.Decode(f.Code, off)
		var (
			idx   int
			limit int
		)
		switch op {
		case opcode.CALL:
			idx, limit = int(binary.LittleEndian.Uint16(param)), len(m.Functions)
		case opcode.CALLT:
			idx, limit = int(binary.LittleEndian.Uint16(param)), len(m.Imports)
		case opcode.PUSHADDR:
			idx, limit = int(param[0]), len(m.AddressRefs)
		case opcode.LDSFLD, opcode.STSFLD:
			idx, limit = int(param[0]), int(m.Statics)
		case opcode.LDLOC, opcode.STLOC:
			idx, limit = int(param[0]), int(f.Params)+int(f.Locals)
		default:
			continue
		}
		if idx >= limit {
			return nil, fmt.Errorf("%s at %d: index %d is out of range [0, %d)", op, off, idx, limit)
		}
	}
	return offsets, nil
}
