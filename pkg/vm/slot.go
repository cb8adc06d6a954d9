package vm

import (
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
)

// Slot is a fixed-size slice of stack items. Slots are zero-initialised,
// every item is Integer 0 until something else is stored.
type Slot struct {
	storage []stackitem.Item
}

// newSlot returns new slot of n items.
func newSlot(n int) *Slot {
	s := &Slot{storage: make([]stackitem.Item, n)}
	for i := range s.storage {
		s.storage[i] = stackitem.NewInt(0)
	}
	return s
}

// Set sets i-th storage slot.
func (s *Slot) Set(i int, item stackitem.Item) {
	s.storage[i] = item
}

// Get returns item contained in i-th slot.
func (s *Slot) Get(i int) stackitem.Item {
	return s.storage[i]
}

// Size returns slot size.
func (s *Slot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.storage)
}
