package builtins

import (
	"time"

	"skink/pkg/vm"
)

// Timers builds the timers module.
func Timers(v *vm.VM) *Module {
	return &Module{
		Name: "timers",
		Exports: map[string]vm.Value{
			"createTimeout": v.NewBuiltinFunction(createTimeout),
		},
	}
}

// createTimeout(callback, ms) schedules callback to run once, ms
// milliseconds from now. There is no cancellation handle; it returns
// null.
func createTimeout(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	callback := vm.Null
	if len(args) > 0 {
		callback = args[0]
	}
	if !vm.IsCallable(callback) {
		return vm.Null, vm.Throw(v.NewError("callback must be a function"))
	}
	duration := vm.Null
	if len(args) > 1 {
		duration = args[1]
	}
	if duration.Type() != vm.TypeNumber {
		return vm.Null, vm.Throw(v.NewError("duration must be a number"))
	}

	tok, rd := v.Reactor().Register()
	v.RegisterTimer(tok, callback)
	deadline := time.Now().Add(time.Duration(duration.AsNumber() * float64(time.Millisecond)))
	v.Reactor().InsertTimer(deadline, rd)
	return vm.Null, nil
}
