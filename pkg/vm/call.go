package vm

import "fmt"

// Call invokes v as a function. `this` is boxed for non-arrow callees;
// Null stays Null. Missing arguments bind as Null.
func (v Value) Call(vm *VM, this Value, args []Value) (Value, error) {
	if v.typ != TypeObject {
		return Null, vm.ThrowError("%s is not a function", vm.Inspect(v))
	}
	o := v.AsObject()
	switch o.kind {
	case KindBuiltin:
		boxed, err := boxThis(vm, this)
		if err != nil {
			return Null, err
		}
		return o.native(vm, args, &CallContext{Function: v, This: boxed})
	case KindFunction:
		return vm.callFunction(v, o.fn, this, args)
	}
	return Null, vm.ThrowError("%s is not a function", vm.Inspect(v))
}

func boxThis(vm *VM, this Value) (Value, error) {
	if this.typ == TypeNull {
		return Null, nil
	}
	return this.ToObject(vm)
}

func (vm *VM) callFunction(fn Value, fd *FunctionData, this Value, args []Value) (Value, error) {
	scope := NewScope(fd.Scope)
	if !fd.Arrow {
		boxed, err := boxThis(vm, this)
		if err != nil {
			return Null, err
		}
		scope.SetThis(boxed)
	}
	for i, name := range fd.Params {
		scope.Declare(name, true)
		scope.Initialize(name, argOrNull(args, i))
	}
	fr := &Frame{Function: fn, Scope: scope, Args: args}
	return vm.evaluateBody(fn, fd, fr)
}

// evaluateBody dispatches an activation on its discipline. Normal bodies
// run to completion. Generator bodies are not entered: the caller gets a
// generator object wrapping the parked activation. Async bodies start
// immediately and hand back a promise that settles on their terminal
// outcome.
func (vm *VM) evaluateBody(fn Value, fd *FunctionData, fr *Frame) (Value, error) {
	switch fd.Discipline {
	case DisciplineNormal:
		out := fd.Body.Start(vm, fr)
		switch out.Kind {
		case OutcomeReturn:
			return out.Value, nil
		case OutcomeThrow:
			return Null, Throw(out.Value)
		}
		panic("normal function suspended")
	case DisciplineGenerator:
		c := &Continuation{state: ContStart, function: fn, frame: fr, body: fd.Body, promise: Null}
		return vm.newGeneratorObject(c), nil
	case DisciplineAsync:
		capability, err := vm.NewPromiseCapability(vm.Intrinsics.Promise)
		if err != nil {
			return Null, err
		}
		out := fd.Body.Start(vm, fr)
		return vm.settleAsyncStep(capability, out, fn, fr)
	}
	panic(fmt.Sprintf("unknown discipline %d", fd.Discipline))
}

// Construct invokes v as a constructor. The fresh instance's prototype
// comes from newTarget's `prototype` property when object-typed, else the
// intrinsic object prototype; an object-typed body result replaces the
// instance.
func (v Value) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	if v.typ != TypeObject {
		return Null, vm.ThrowError("%s is not a constructor", vm.Inspect(v))
	}
	o := v.AsObject()
	switch o.kind {
	case KindFunction:
		if o.fn.Arrow || o.fn.Discipline != DisciplineNormal {
			return Null, vm.ThrowError("%s is not a constructor", vm.Inspect(v))
		}
	case KindBuiltin:
	default:
		return Null, vm.ThrowError("%s is not a constructor", vm.Inspect(v))
	}

	proto, err := newTarget.Get(vm, StringKey("prototype"))
	if err != nil {
		return Null, err
	}
	if proto.typ != TypeObject {
		proto = vm.Intrinsics.ObjectPrototype
	}
	this := NewObject(proto)

	var result Value
	if o.kind == KindBuiltin {
		result, err = o.native(vm, args, &CallContext{Function: v, This: this})
	} else {
		result, err = vm.callFunction(v, o.fn, this, args)
	}
	if err != nil {
		return Null, err
	}
	if result.typ == TypeObject {
		return result, nil
	}
	return this, nil
}
