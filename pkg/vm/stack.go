package vm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
)

// MaxStackSize is the maximum number of items on the evaluation stack.
const MaxStackSize = 2 * 1024

var errStackUnderflow = errors.New("stack is too small")

// Element represents an element on the stack, technically it's a wrapper around
// stackitem.Item interface to provide some API simplification for VM.
type Element struct {
	value stackitem.Item
}

// NewElement returns a new Element object, with its underlying value inferred
// to the corresponding type.
func NewElement(v any) Element {
	return Element{stackitem.Make(v)}
}

// Item returns Item contained in the element.
func (e Element) Item() stackitem.Item {
	return e.value
}

// Value returns value of the Item contained in the element.
func (e Element) Value() any {
	return e.value.Value()
}

// Int attempts to get the underlying value of the element as an integer.
// Will panic if the assertion failed which will be caught by the VM.
func (e Element) Int() *uint256.Int {
	val, err := e.value.TryInteger()
	if err != nil {
		panic(err)
	}
	return val
}

// Bool converts an underlying value of the element to a boolean if it's
// possible to do so, it will panic otherwise.
func (e Element) Bool() bool {
	b, err := e.value.TryBool()
	if err != nil {
		panic(err)
	}
	return b
}

// Bytes attempts to get the underlying value of the element as a byte array.
// Will panic if the assertion failed which will be caught by the VM.
func (e Element) Bytes() []byte {
	bs, err := e.value.TryBytes()
	if err != nil {
		panic(err)
	}
	return bs
}

// Stack represents a Stack backed by a slice of Elements. The top of the
// stack is the last element of the slice.
type Stack struct {
	elems []Element
	name  string
}

// NewStack returns a new stack name by the given name.
func NewStack(n string) *Stack {
	return &Stack{
		elems: make([]Element, 0, 16),
		name:  n,
	}
}

// Len returns the number of elements that are on the stack.
func (s *Stack) Len() int {
	return len(s.elems)
}

// Clear clears all elements on the stack and set its length to 0.
func (s *Stack) Clear() {
	s.elems = s.elems[:0]
}

// Push pushes the given element on the stack.
func (s *Stack) Push(e Element) {
	if len(s.elems) >= MaxStackSize {
		panic(fmt.Errorf("%s stack overflow", s.name))
	}
	s.elems = append(s.elems, e)
}

// PushItem pushes an Item to the stack.
func (s *Stack) PushItem(i stackitem.Item) {
	s.Push(Element{i})
}

// PushVal pushes the given value on the stack. It will infer the
// underlying Item to its corresponding type.
func (s *Stack) PushVal(v any) {
	s.Push(NewElement(v))
}

// Pop removes and returns the element on top of the stack. Panics if stack
// is empty.
func (s *Stack) Pop() Element {
	l := len(s.elems)
	if l == 0 {
		panic(fmt.Errorf("%w: %s is empty", errStackUnderflow, s.name))
	}
	e := s.elems[l-1]
	s.elems = s.elems[:l-1]
	return e
}

// Top returns the element on top of the stack.
func (s *Stack) Top() Element {
	return s.Peek(0)
}

// Peek returns the element (n) far in the stack beginning from
// the top of the stack. Panics if there is no such element.
func (s *Stack) Peek(n int) Element {
	l := len(s.elems)
	if n < 0 || n >= l {
		panic(fmt.Errorf("%w: %s has %d items, want %d", errStackUnderflow, s.name, l, n+1))
	}
	return s.elems[l-n-1]
}

// Swap swaps the elements (n) and (n+1) counting from the top.
func (s *Stack) Swap(n int) {
	l := len(s.elems)
	if n < 0 || n+1 >= l {
		panic(fmt.Errorf("%w: %s has %d items, want %d", errStackUnderflow, s.name, l, n+2))
	}
	s.elems[l-n-1], s.elems[l-n-2] = s.elems[l-n-2], s.elems[l-n-1]
}

// ToArray returns all stack items from the bottom to the top.
func (s *Stack) ToArray() []stackitem.Item {
	items := make([]stackitem.Item, 0, len(s.elems))
	for i := range s.elems {
		items = append(items, s.elems[i].value)
	}
	return items
}
