package vm

import (
	"errors"
	"sort"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neounit/pkg/vm/interopnames"
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
)

// interopIDFuncPrice adds an ID to the InteropFuncPrice.
type interopIDFuncPrice struct {
	ID    uint32
	Func  func(vm *VM) error
	Price int64
}

var defaultVMInterops = []interopIDFuncPrice{
	{ID: interopnames.ToID([]byte(interopnames.SystemRuntimeGasLeft)),
		Func: runtimeGasLeft, Price: 1 << 2},
	{ID: interopnames.ToID([]byte(interopnames.SystemRuntimeLog)),
		Func: runtimeLog, Price: 1 << 4},
}

func init() {
	sort.Slice(defaultVMInterops, func(i, j int) bool { return defaultVMInterops[i].ID < defaultVMInterops[j].ID })
}

func defaultSyscallHandler(v *VM, id uint32) error {
	n := sort.Search(len(defaultVMInterops), func(i int) bool {
		return defaultVMInterops[i].ID >= id
	})
	if n >= len(defaultVMInterops) || defaultVMInterops[n].ID != id {
		return errors.New("syscall not found")
	}
	d := defaultVMInterops[n]
	if !v.AddGas(d.Price) {
		return ErrGasLimitExceeded
	}
	return d.Func(v)
}

// runtimeLog handles the syscall "System.Runtime.Log", the message is passed
// to the log hook.
func runtimeLog(v *VM) error {
	msg := v.Estack().Pop().Bytes()
	if v.onLogHook != nil {
		ctx := v.Context()
		v.onLogHook(ctx.ModuleID(), ctx.Function(), string(msg))
	}
	return nil
}

// runtimeGasLeft handles the syscall "System.Runtime.GasLeft".
func runtimeGasLeft(v *VM) error {
	if v.GasLimit < 0 {
		v.Estack().PushItem(stackitem.NewInteger(new(uint256.Int).SetAllOne()))
		return nil
	}
	v.Estack().PushVal(uint64(v.GasLimit - v.gasConsumed))
	return nil
}
