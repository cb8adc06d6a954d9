package bytecode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/util"
)

const (
	// Magic is a magic module file header constant ("NVMM").
	Magic uint32 = 0x4d4d564e
	// Version is the only module format version supported.
	Version byte = 1

	// MaxNameLen is the maximum length of module, function and named
	// address names.
	MaxNameLen = 64
	// MaxCodeSize is the maximum function code size, jump targets are 16-bit.
	MaxCodeSize = 0xffff
	// MaxFunctions is the maximum number of functions (and imports) in a
	// module, call indexes are 16-bit.
	MaxFunctions = 0xffff
	// MaxSlots is the maximum number of address references, statics and
	// function locals (including parameters), slot indexes are 8-bit.
	MaxSlots = 0xff
)

var (
	// ErrInvalidMagic is returned when the module file has a wrong header.
	ErrInvalidMagic = errors.New("invalid module magic")
	// ErrInvalidVersion is returned for unknown module format versions.
	ErrInvalidVersion = errors.New("unsupported module version")
)

// Attribute is a set of function annotation flags.
type Attribute byte

// Function attributes.
const (
	// AttrTest marks a test function.
	AttrTest Attribute = 1 << iota
	// AttrExpectedFailure marks a test that is expected to fail.
	AttrExpectedFailure
	// AttrAbortCode marks a test expected to abort with Function.AbortCode,
	// it implies AttrExpectedFailure.
	AttrAbortCode
	// AttrTestOnly marks a helper that exists in test builds only.
	AttrTestOnly

	attrMask = AttrTest | AttrExpectedFailure | AttrAbortCode | AttrTestOnly
)

// Has checks whether all of the given attributes are set.
func (a Attribute) Has(f Attribute) bool {
	return a&f == f
}

// ModuleID identifies a module by its concrete address and name.
type ModuleID struct {
	Address util.Uint160
	Name    string
}

// String implements fmt.Stringer.
func (id ModuleID) String() string {
	return id.Address.StringShort() + "::" + id.Name
}

// Compare orders module ids by address and then by name.
func (id ModuleID) Compare(other ModuleID) int {
	if c := id.Address.Compare(other.Address); c != 0 {
		return c
	}
	return strings.Compare(id.Name, other.Name)
}

// Import is a reference to a function of some (possibly the same) module.
type Import struct {
	AddressName string
	Module      string
	Function    string
}

// String implements fmt.Stringer.
func (i Import) String() string {
	return i.AddressName + "::" + i.Module + "::" + i.Function
}

// Function is a single function of a module. Code offsets are relative to
// the function.
type Function struct {
	Name       string
	Params     byte
	Locals     byte
	Returns    byte
	Attributes Attribute
	// AbortCode is the expected abort code, valid with AttrAbortCode only.
	AbortCode uint64
	// Signers are named addresses passed to a test function as arguments.
	Signers []string
	Code    []byte

	signers []util.Uint160
	offsets []int
}

// IsTest returns true for test functions.
func (f *Function) IsTest() bool {
	return f.Attributes.Has(AttrTest)
}

// ExpectedFailure returns true if the function is expected to fail.
func (f *Function) ExpectedFailure() bool {
	return f.Attributes.Has(AttrExpectedFailure) || f.Attributes.Has(AttrAbortCode)
}

// ExpectedAbortCode returns the abort code the function is expected to fail
// with if there is one.
func (f *Function) ExpectedAbortCode() (uint64, bool) {
	return f.AbortCode, f.Attributes.Has(AttrAbortCode)
}

// SignerAddresses returns resolved signer addresses (available after
// linking).
func (f *Function) SignerAddresses() []util.Uint160 {
	return f.signers
}

// EncodeBinary implements io.Serializable.
func (f *Function) EncodeBinary(w *io.BinWriter) {
	w.WriteString(f.Name)
	w.WriteB(f.Params)
	w.WriteB(f.Locals)
	w.WriteB(f.Returns)
	w.WriteB(byte(f.Attributes))
	if f.Attributes.Has(AttrAbortCode) {
		w.WriteU64LE(f.AbortCode)
	}
	writeStrings(w, f.Signers)
	w.WriteVarBytes(f.Code)
}

// DecodeBinary implements io.Serializable.
func (f *Function) DecodeBinary(r *io.BinReader) {
	f.Name = r.ReadString(MaxNameLen)
	f.Params = r.ReadB()
	f.Locals = r.ReadB()
	f.Returns = r.ReadB()
	f.Attributes = Attribute(r.ReadB())
	if r.Err == nil && f.Attributes&^attrMask != 0 {
		r.Err = fmt.Errorf("function %s: unknown attributes %08b", f.Name, f.Attributes)
		return
	}
	if f.Attributes.Has(AttrAbortCode) {
		f.AbortCode = r.ReadU64LE()
	}
	f.Signers = readStrings(r, MaxSlots)
	f.Code = r.ReadVarBytes(MaxCodeSize)
}

// EncodeBinary implements io.Serializable.
func (i *Import) EncodeBinary(w *io.BinWriter) {
	w.WriteString(i.AddressName)
	w.WriteString(i.Module)
	w.WriteString(i.Function)
}

// DecodeBinary implements io.Serializable.
func (i *Import) DecodeBinary(r *io.BinReader) {
	i.AddressName = r.ReadString(MaxNameLen)
	i.Module = r.ReadString(MaxNameLen)
	i.Function = r.ReadString(MaxNameLen)
}

// Module is a compiled module. Freshly decoded modules refer to addresses
// symbolically, Link binds them to concrete ones.
type Module struct {
	// AddressName is the named address the module is published at.
	AddressName string
	Name        string
	// AddressRefs are named addresses used by PUSHADDR.
	AddressRefs []string
	// Imports are functions called via CALLT.
	Imports   []Import
	Statics   byte
	Functions []Function

	linked    bool
	id        ModuleID
	addresses []util.Uint160
	imports   []ResolvedImport
	fnIndex   map[string]int
}

// ResolvedImport is an Import with the module address bound.
type ResolvedImport struct {
	Module   ModuleID
	Function string
}

// EncodeBinary implements io.Serializable.
func (m *Module) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(Magic)
	w.WriteB(Version)
	w.WriteString(m.AddressName)
	w.WriteString(m.Name)
	writeStrings(w, m.AddressRefs)
	w.WriteVarUint(uint64(len(m.Imports)))
	for i := range m.Imports {
		m.Imports[i].EncodeBinary(w)
	}
	w.WriteB(m.Statics)
	w.WriteVarUint(uint64(len(m.Functions)))
	for i := range m.Functions {
		m.Functions[i].EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (m *Module) DecodeBinary(r *io.BinReader) {
	magic := r.ReadU32LE()
	if r.Err == nil && magic != Magic {
		r.Err = ErrInvalidMagic
		return
	}
	version := r.ReadB()
	if r.Err == nil && version != Version {
		r.Err = fmt.Errorf("%w: %d", ErrInvalidVersion, version)
		return
	}
	m.AddressName = r.ReadString(MaxNameLen)
	m.Name = r.ReadString(MaxNameLen)
	m.AddressRefs = readStrings(r, MaxSlots)
	m.Imports = io.ReadArray[Import](r, MaxFunctions)
	m.Statics = r.ReadB()
	m.Functions = io.ReadArray[Function](r, MaxFunctions)
	if r.Err == nil && (m.AddressName == "" || m.Name == "") {
		r.Err = errors.New("module without a name or address")
	}
}

// Bytes returns the binary representation of the module.
func (m *Module) Bytes() ([]byte, error) {
	w := io.NewBufBinWriter()
	m.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// ModuleFromBytes decodes a module, the whole buffer must be consumed.
func ModuleFromBytes(b []byte) (*Module, error) {
	m := new(Module)
	r := io.NewBinReaderFromBuf(b)
	m.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	// Reading one more byte must fail.
	r.ReadB()
	if r.Err == nil {
		return nil, errors.New("trailing data after module")
	}
	return m, nil
}

// ID returns the module id, it's only valid for linked modules.
func (m *Module) ID() ModuleID {
	return m.id
}

// IsLinked returns true for modules with bound addresses.
func (m *Module) IsLinked() bool {
	return m.linked
}

// AddressAt returns the concrete address for the AddressRefs[i].
func (m *Module) AddressAt(i int) (util.Uint160, bool) {
	if i < 0 || i >= len(m.addresses) {
		return util.Uint160{}, false
	}
	return m.addresses[i], true
}

// ImportAt returns the resolved Imports[i].
func (m *Module) ImportAt(i int) (ResolvedImport, bool) {
	if i < 0 || i >= len(m.imports) {
		return ResolvedImport{}, false
	}
	return m.imports[i], true
}

// FunctionByName returns the function with the given name.
func (m *Module) FunctionByName(name string) (*Function, bool) {
	if m.fnIndex != nil {
		i, ok := m.fnIndex[name]
		if !ok {
			return nil, false
		}
		return &m.Functions[i], true
	}
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}

func writeStrings(w *io.BinWriter, ss []string) {
	w.WriteVarUint(uint64(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

func readStrings(r *io.BinReader, maxSize int) []string {
	n := r.ReadLen(maxSize)
	if r.Err != nil || n == 0 {
		return nil
	}
	ss := make([]string, n)
	for i := range ss {
		ss[i] = r.ReadString(MaxNameLen)
	}
	if r.Err != nil {
		return nil
	}
	return ss
}
