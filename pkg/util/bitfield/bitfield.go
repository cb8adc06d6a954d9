/*
Package bitfield provides a simple and efficient arbitrary size bit field implementation.
It doesn't attempt to cover everything that could be done with bit fields,
but when you need a bit field it's cheaper than map[int]bool.
*/
package bitfield

import "math/bits"

// Field is a bit field represented as a slice of uint64 values.
type Field []uint64

// Bits and bytes count in a basic element of Field.
const elemBits = 64

// Words returns the number of uint64 elements required to hold n bits.
func Words(n int) int {
	return (n + elemBits - 1) / elemBits
}

// New creates a new bit field of the specified length. The actual field length
// can be rounded to the next multiple of 64, so it's a responsibility of the
// user to deal with that.
func New(n int) Field {
	return make(Field, Words(n))
}

// Set sets one bit at the specified offset. No bounds checking is done.
func (f Field) Set(i int) {
	addr, offset := (i / elemBits), (i % elemBits)
	f[addr] |= (1 << offset)
}

// IsSet returns true if the bit with the specified offset is set.
// Offsets beyond the field length are reported as unset.
func (f Field) IsSet(i int) bool {
	if i < 0 || i/elemBits >= len(f) {
		return false
	}
	addr, offset := (i / elemBits), (i % elemBits)
	return (f[addr] & (1 << offset)) != 0
}

// Copy makes a copy of the current Field.
func (f Field) Copy() Field {
	fn := make(Field, len(f))
	copy(fn, f)
	return fn
}

// And implements logical AND between f's and m's bits saving the result into f.
func (f Field) And(m Field) {
	l := len(m)
	for i := range f {
		if i >= l {
			f[i] = 0
			continue
		}
		f[i] &= m[i]
	}
}

// Or implements logical OR between f's and m's bits saving the result into f.
// f must be at least as long as m.
func (f Field) Or(m Field) {
	for i := range m {
		f[i] |= m[i]
	}
}

// Equals compares two Fields and returns true if they're equal.
func (f Field) Equals(o Field) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if f[i] != o[i] {
			return false
		}
	}
	return true
}

// IsSubset returns true when f is a subset of o (only has bits set that are
// set in o).
func (f Field) IsSubset(o Field) bool {
	if len(f) > len(o) {
		return false
	}
	for i := range f {
		r := f[i] & o[i]
		if r != f[i] {
			return false
		}
	}
	return true
}

// Count returns the number of bits set.
func (f Field) Count() int {
	var n int
	for i := range f {
		n += bits.OnesCount64(f[i])
	}
	return n
}

// ForEach calls fn for every set bit in ascending order.
func (f Field) ForEach(fn func(i int)) {
	for addr, w := range f {
		for w != 0 {
			offset := bits.TrailingZeros64(w)
			fn(addr*elemBits + offset)
			w &^= 1 << offset
		}
	}
}
