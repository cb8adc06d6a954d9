/*
Package coverage collects instruction-level coverage of test runs and keeps
it in a mergeable map that can be stored between runs.
*/
package coverage

import (
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/vm"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
)

// Event is a single executed instruction.
type Event struct {
	Module   bytecode.ModuleID
	Function string
	Offset   int
	Op       opcode.Opcode
}

// Recorder accumulates execution events. It's not safe for concurrent use,
// every worker running tests owns a separate one.
type Recorder struct {
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return new(Recorder)
}

// Hook returns the VM hook appending events to the recorder.
func (r *Recorder) Hook() vm.OnExecHook {
	return func(module bytecode.ModuleID, function string, offset int, op opcode.Opcode) {
		r.events = append(r.events, Event{
			Module:   module,
			Function: function,
			Offset:   offset,
			Op:       op,
		})
	}
}

// Events returns all events recorded so far in execution order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}
