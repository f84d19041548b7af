package builtins

import (
	"testing"

	"skink/pkg/vm"
)

func TestCreateTimeoutFires(t *testing.T) {
	v := newTestVM(t)
	m := Timers(v)
	fired := 0
	cb := v.NewBuiltinFunction(func(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
		fired++
		return vm.Null, nil
	})

	got, err := callExport(t, v, m, "createTimeout", cb, vm.IntegerValue(5))
	if err != nil {
		t.Fatalf("createTimeout failed: %v", err)
	}
	if !got.IsNull() {
		t.Errorf("Expected null, got %s", v.Inspect(got))
	}
	if v.PendingOps() != 1 {
		t.Fatalf("PendingOps mismatch. Expected 1, got %d", v.PendingOps())
	}

	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fired != 1 {
		t.Errorf("Fire count mismatch. Expected 1, got %d", fired)
	}
	if v.PendingOps() != 0 {
		t.Errorf("Expected no pending operations, got %d", v.PendingOps())
	}
}

func TestCreateTimeoutOrdering(t *testing.T) {
	v := newTestVM(t)
	m := Timers(v)
	var order []string
	tag := func(name string) vm.Value {
		return v.NewBuiltinFunction(func(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
			order = append(order, name)
			return vm.Null, nil
		})
	}

	// Registered slow-first; durations decide.
	if _, err := callExport(t, v, m, "createTimeout", tag("slow"), vm.IntegerValue(60)); err != nil {
		t.Fatalf("createTimeout failed: %v", err)
	}
	if _, err := callExport(t, v, m, "createTimeout", tag("fast"), vm.IntegerValue(10)); err != nil {
		t.Fatalf("createTimeout failed: %v", err)
	}

	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "fast" || order[1] != "slow" {
		t.Errorf("Firing order mismatch, got %v", order)
	}
}

func TestCreateTimeoutEqualDurations(t *testing.T) {
	v := newTestVM(t)
	m := Timers(v)
	fired := map[string]bool{}
	tag := func(name string) vm.Value {
		return v.NewBuiltinFunction(func(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
			fired[name] = true
			return vm.Null, nil
		})
	}

	for _, name := range []string{"a", "b"} {
		if _, err := callExport(t, v, m, "createTimeout", tag(name), vm.IntegerValue(10)); err != nil {
			t.Fatalf("createTimeout failed: %v", err)
		}
	}
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !fired["a"] || !fired["b"] {
		t.Errorf("Expected both callbacks to fire, got %v", fired)
	}
}

func TestCreateTimeoutValidation(t *testing.T) {
	v := newTestVM(t)
	m := Timers(v)
	cb := v.NewBuiltinFunction(func(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
		return vm.Null, nil
	})

	_, err := callExport(t, v, m, "createTimeout")
	expectThrown(t, v, err, "callback must be a function")

	_, err = callExport(t, v, m, "createTimeout", vm.NewString("later"), vm.IntegerValue(1))
	expectThrown(t, v, err, "callback must be a function")

	_, err = callExport(t, v, m, "createTimeout", cb)
	expectThrown(t, v, err, "duration must be a number")

	_, err = callExport(t, v, m, "createTimeout", cb, vm.NewString("soon"))
	expectThrown(t, v, err, "duration must be a number")

	if v.PendingOps() != 0 {
		t.Errorf("Expected no pending operations, got %d", v.PendingOps())
	}
}

func TestCreateTimeoutZeroDuration(t *testing.T) {
	v := newTestVM(t)
	m := Timers(v)
	fired := false
	cb := v.NewBuiltinFunction(func(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
		fired = true
		if len(args) != 0 {
			t.Errorf("Expected the callback to receive no arguments, got %d", len(args))
		}
		return vm.Null, nil
	})

	if _, err := callExport(t, v, m, "createTimeout", cb, vm.IntegerValue(0)); err != nil {
		t.Fatalf("createTimeout failed: %v", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !fired {
		t.Errorf("Expected an immediate deadline to fire")
	}
}
