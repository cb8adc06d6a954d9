/*
Package namedaddr resolves symbolic named addresses used by a package (its own
placeholder and the ones of its dependencies) to concrete account
identifiers before the package is linked and executed.
*/
package namedaddr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nspcc-dev/neounit/pkg/encoding/address"
	"github.com/nspcc-dev/neounit/pkg/util"
)

// Unassigned is the manifest value of a placeholder without a default.
const Unassigned = "_"

var (
	// ErrUnresolvedAddress is returned (wrapped into UnresolvedAddressError)
	// when some placeholder declared by a package has no binding.
	ErrUnresolvedAddress = errors.New("unresolved named address")
	// ErrDuplicateAddress is returned when the same name is bound twice.
	ErrDuplicateAddress = errors.New("duplicate named address")
	// ErrConflictingAddress is returned when a binding contradicts the
	// address a package assigns to the placeholder itself.
	ErrConflictingAddress = errors.New("conflicting named address assignment")
	// ErrInvalidBinding is returned for malformed name=address strings.
	ErrInvalidBinding = errors.New("invalid named address binding")
)

// NamedAddress is a symbolic name bound to a concrete address.
type NamedAddress struct {
	Name    string
	Address util.Uint160
}

// Declaration is a named address placeholder declared by a package. Default
// is nil for placeholders that must be bound by the caller.
type Declaration struct {
	Name    string
	Default *util.Uint160
}

// UnresolvedAddressError reports a placeholder that has no address.
type UnresolvedAddressError struct {
	Name string
}

// Error implements the error interface.
func (e *UnresolvedAddressError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedAddress, e.Name)
}

// Is makes UnresolvedAddressError match ErrUnresolvedAddress.
func (e *UnresolvedAddressError) Is(target error) bool {
	return target == ErrUnresolvedAddress
}

// String implements fmt.Stringer.
func (n NamedAddress) String() string {
	return n.Name + "=" + n.Address.StringShort()
}

// ParseAddress parses an address in either 0x-prefixed hex form (left-padded,
// so "0x1" is valid) or base58 Neo address form.
func ParseAddress(s string) (util.Uint160, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return util.Uint160DecodeHex(s)
	}
	return address.StringToUint160(s)
}

// ParseNamedAddress parses a "name=address" binding.
func ParseNamedAddress(s string) (NamedAddress, error) {
	name, addr, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return NamedAddress{}, fmt.Errorf("%w: %q, expected name=address", ErrInvalidBinding, s)
	}
	u, err := ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return NamedAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidBinding, s, err)
	}
	return NamedAddress{Name: name, Address: u}, nil
}

// ParseDeclaration makes a Declaration from a manifest entry, value is either
// Unassigned or an address.
func ParseDeclaration(name, value string) (Declaration, error) {
	d := Declaration{Name: name}
	if value == Unassigned {
		return d, nil
	}
	u, err := ParseAddress(value)
	if err != nil {
		return d, fmt.Errorf("named address %s: %w", name, err)
	}
	d.Default = &u
	return d, nil
}

// Resolution is an immutable set of resolved named addresses.
type Resolution struct {
	addrs map[string]util.Uint160
}

// Resolve binds every declared placeholder to an address. Caller bindings
// are applied on top of the declared defaults, names are unique in both sets
// and the order of either doesn't matter. Bindings for names not declared by
// the package are kept for dependencies to use.
func Resolve(decls []Declaration, bindings []NamedAddress) (*Resolution, error) {
	bound := make(map[string]util.Uint160, len(bindings))
	for _, b := range bindings {
		if _, ok := bound[b.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, b.Name)
		}
		bound[b.Name] = b.Address
	}

	var (
		res      = &Resolution{addrs: make(map[string]util.Uint160, len(decls)+len(bindings))}
		declared = make(map[string]Declaration, len(decls))
		names    = make([]string, 0, len(decls))
	)
	for _, d := range decls {
		if _, ok := declared[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, d.Name)
		}
		declared[d.Name] = d
		names = append(names, d.Name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := declared[name]
		b, hasBinding := bound[name]
		switch {
		case d.Default != nil && hasBinding && !d.Default.Equals(b):
			return nil, fmt.Errorf("%w: %s is %s, got %s", ErrConflictingAddress,
				name, d.Default.StringShort(), b.StringShort())
		case d.Default != nil:
			res.addrs[name] = *d.Default
		case hasBinding:
			res.addrs[name] = b
		default:
			return nil, &UnresolvedAddressError{Name: name}
		}
	}
	for name, addr := range bound {
		if _, ok := res.addrs[name]; !ok {
			res.addrs[name] = addr
		}
	}
	return res, nil
}

// Lookup returns the address bound to the name.
func (r *Resolution) Lookup(name string) (util.Uint160, bool) {
	u, ok := r.addrs[name]
	return u, ok
}

// Len returns the number of resolved names.
func (r *Resolution) Len() int {
	return len(r.addrs)
}

// Addresses returns all resolved names sorted by name.
func (r *Resolution) Addresses() []NamedAddress {
	res := make([]NamedAddress, 0, len(r.addrs))
	for name, addr := range r.addrs {
		res = append(res, NamedAddress{Name: name, Address: addr})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
