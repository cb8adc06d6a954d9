package stackitem

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// MaxSize is the maximum byte string size allowed in the VM.
const MaxSize = 0xff

// ErrInvalidConversion is returned upon an attempt to make an incorrect
// conversion between item types.
var ErrInvalidConversion = errors.New("invalid conversion")

// Item represents the "real" value that is pushed on the stack.
type Item interface {
	fmt.Stringer
	Value() any
	// TryBool converts Item to a boolean value.
	TryBool() (bool, error)
	// TryBytes converts Item to a byte slice. If the underlying type is a
	// byte slice, it's returned as is without copying.
	TryBytes() ([]byte, error)
	// TryInteger converts Item to an integer.
	TryInteger() (*uint256.Int, error)
	// Equals checks if 2 StackItems are equal.
	Equals(s Item) bool
	// Type returns stack item type.
	Type() Type
}

func mkInvConversion(from Item, to Type) error {
	return fmt.Errorf("%w: %s/%s", ErrInvalidConversion, from.Type(), to)
}

// Make tries to make an appropriate stack item from the provided value.
// It will panic if it's not possible.
func Make(v any) Item {
	switch val := v.(type) {
	case int:
		if val < 0 {
			panic("negative integers are not supported")
		}
		return NewInt(uint64(val))
	case uint64:
		return NewInt(val)
	case uint32:
		return NewInt(uint64(val))
	case *uint256.Int:
		return NewInteger(val)
	case bool:
		return Bool(val)
	case string:
		return NewByteArray([]byte(val))
	case []byte:
		return NewByteArray(val)
	case Item:
		return val
	default:
		panic(fmt.Sprintf("invalid stack item type: %v (%T)", val, val))
	}
}

// Integer represents an unsigned 256-bit integer on the stack. It's
// immutable, all arithmetic produces new items.
type Integer struct {
	value *uint256.Int
}

// NewInteger returns a new Integer object, the value is copied.
func NewInteger(value *uint256.Int) *Integer {
	return &Integer{value: new(uint256.Int).Set(value)}
}

// NewInt returns a new Integer object holding the given value.
func NewInt(value uint64) *Integer {
	return &Integer{value: uint256.NewInt(value)}
}

// Uint256 returns the integer value, it must not be modified.
func (i *Integer) Uint256() *uint256.Int {
	return i.value
}

// TryBool implements the Item interface.
func (i *Integer) TryBool() (bool, error) {
	return false, mkInvConversion(i, BooleanT)
}

// TryBytes implements the Item interface.
func (i *Integer) TryBytes() ([]byte, error) {
	return nil, mkInvConversion(i, ByteArrayT)
}

// TryInteger implements the Item interface.
func (i *Integer) TryInteger() (*uint256.Int, error) {
	return i.value, nil
}

// Equals implements the Item interface.
func (i *Integer) Equals(s Item) bool {
	if i == s {
		return true
	}
	val, ok := s.(*Integer)
	return ok && i.value.Eq(val.value)
}

// Value implements the Item interface.
func (i *Integer) Value() any {
	return i.value
}

// String implements the Item interface.
func (i *Integer) String() string {
	return i.value.ToBig().String()
}

// Type implements the Item interface.
func (i *Integer) Type() Type { return IntegerT }

// Bool represents a boolean Item.
type Bool bool

// NewBool returns an new Bool object.
func NewBool(val bool) Bool {
	return Bool(val)
}

// Value implements the Item interface.
func (i Bool) Value() any {
	return bool(i)
}

// String implements the Item interface.
func (i Bool) String() string {
	if i {
		return "true"
	}
	return "false"
}

// TryBool implements the Item interface.
func (i Bool) TryBool() (bool, error) { return bool(i), nil }

// TryBytes implements the Item interface.
func (i Bool) TryBytes() ([]byte, error) {
	return nil, mkInvConversion(i, ByteArrayT)
}

// TryInteger implements the Item interface.
func (i Bool) TryInteger() (*uint256.Int, error) {
	return nil, mkInvConversion(i, IntegerT)
}

// Equals implements the Item interface.
func (i Bool) Equals(s Item) bool {
	val, ok := s.(Bool)
	return ok && i == val
}

// Type implements the Item interface.
func (i Bool) Type() Type { return BooleanT }

// ByteArray represents a byte string on the stack (addresses are byte
// strings too).
type ByteArray []byte

// NewByteArray returns an new ByteArray object.
func NewByteArray(b []byte) *ByteArray {
	ba := ByteArray(b)
	return &ba
}

// Value implements the Item interface.
func (i *ByteArray) Value() any {
	return []byte(*i)
}

// String implements the Item interface.
func (i *ByteArray) String() string {
	return "0x" + hex.EncodeToString(*i)
}

// TryBool implements the Item interface.
func (i *ByteArray) TryBool() (bool, error) {
	return false, mkInvConversion(i, BooleanT)
}

// TryBytes implements the Item interface.
func (i *ByteArray) TryBytes() ([]byte, error) {
	return *i, nil
}

// TryInteger implements the Item interface.
func (i *ByteArray) TryInteger() (*uint256.Int, error) {
	return nil, mkInvConversion(i, IntegerT)
}

// Equals implements the Item interface.
func (i *ByteArray) Equals(s Item) bool {
	if i == s {
		return true
	}
	val, ok := s.(*ByteArray)
	return ok && bytes.Equal(*i, *val)
}

// Type implements the Item interface.
func (i *ByteArray) Type() Type { return ByteArrayT }
