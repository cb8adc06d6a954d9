// Package interopnames contains names and IDs of the natives available to
// test code via SYSCALL.
package interopnames

// Names of all used interops.
const (
	SystemRuntimeGasLeft = "System.Runtime.GasLeft"
	SystemRuntimeLog     = "System.Runtime.Log"
)

var names = []string{
	SystemRuntimeGasLeft,
	SystemRuntimeLog,
}
