package vm

// initIntrinsics wires the bootstrap object graph. Order matters: the
// object prototype is the chain root, and builtin creation needs the
// function prototype in place.
func (vm *VM) initIntrinsics() {
	objectProto := NewObject(Null)
	vm.Intrinsics.ObjectPrototype = objectProto
	vm.Intrinsics.FunctionPrototype = NewObject(objectProto)

	vm.Intrinsics.ErrorPrototype = vm.createErrorPrototype()
	vm.Intrinsics.BooleanPrototype = NewObject(objectProto)
	vm.Intrinsics.NumberPrototype = NewObject(objectProto)
	vm.Intrinsics.StringPrototype = NewObject(objectProto)
	vm.Intrinsics.ArrayPrototype = NewObject(objectProto)
	vm.Intrinsics.RegexPrototype = NewObject(objectProto)

	vm.Intrinsics.IteratorPrototype = vm.createIteratorPrototype()
	vm.Intrinsics.AsyncIteratorPrototype = vm.createAsyncIteratorPrototype()
	vm.Intrinsics.GeneratorPrototype = vm.createGeneratorPrototype()

	constructor, prototype := vm.createPromiseIntrinsic()
	vm.Intrinsics.Promise = constructor
	vm.Intrinsics.PromisePrototype = prototype
}

func (vm *VM) createErrorPrototype() Value {
	proto := NewObject(vm.Intrinsics.ObjectPrototype)
	po := proto.AsObject()
	po.DefineOwn(StringKey("name"), NewString("Error"))
	po.DefineOwn(StringKey("message"), NewString(""))
	po.DefineOwn(StringKey("toString"), vm.NewBuiltinFunction(errorToString))
	return proto
}

// errorToString renders "Name: message", dropping whichever half is empty.
func errorToString(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	this := ctx.This
	if this.typ != TypeObject {
		return Null, vm.ThrowError("toString called on a non-object")
	}
	name, err := this.Get(vm, StringKey("name"))
	if err != nil {
		return Null, err
	}
	msg, err := this.Get(vm, StringKey("message"))
	if err != nil {
		return Null, err
	}
	nameText := "Error"
	if name.typ == TypeString {
		nameText = name.AsString()
	}
	msgText := ""
	if msg.typ == TypeString {
		msgText = msg.AsString()
	}
	switch {
	case msgText == "":
		return NewString(nameText), nil
	case nameText == "":
		return NewString(msgText), nil
	}
	return NewString(nameText + ": " + msgText), nil
}

func (vm *VM) createIteratorPrototype() Value {
	proto := NewObject(vm.Intrinsics.ObjectPrototype)
	proto.AsObject().DefineOwn(SymbolKey(vm.WellKnownSymbol("iterator")), vm.NewBuiltinFunction(returnThis))
	return proto
}

func (vm *VM) createAsyncIteratorPrototype() Value {
	proto := NewObject(vm.Intrinsics.ObjectPrototype)
	proto.AsObject().DefineOwn(SymbolKey(vm.WellKnownSymbol("asyncIterator")), vm.NewBuiltinFunction(returnThis))
	return proto
}

func returnThis(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return ctx.This, nil
}

// createGeneratorPrototype wires the driver methods generators inherit.
// They are thin shims over ResumeContinuation.
func (vm *VM) createGeneratorPrototype() Value {
	proto := NewObject(vm.Intrinsics.IteratorPrototype)
	po := proto.AsObject()
	po.DefineOwn(StringKey("next"), vm.NewBuiltinFunction(generatorNext))
	po.DefineOwn(StringKey("throw"), vm.NewBuiltinFunction(generatorThrow))
	po.DefineOwn(StringKey("return"), vm.NewBuiltinFunction(generatorReturn))
	return proto
}

func generatorNext(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return generatorStep(vm, ctx, ResumeNext, argOrNull(args, 0))
}

func generatorThrow(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return generatorStep(vm, ctx, ResumeThrow, argOrNull(args, 0))
}

// generatorStep drives the generator's continuation one step and wraps the
// outcome as an iteration result. A finished generator answers done
// without re-entering the body.
func generatorStep(vm *VM, ctx *CallContext, mode ResumeMode, v Value) (Value, error) {
	if !IsGenerator(ctx.This) {
		return Null, vm.ThrowError("generator method called on a non-generator")
	}
	c := GeneratorContinuation(ctx.This)
	if c.state == ContDone {
		return vm.newIterResult(Null, true), nil
	}
	out := vm.ResumeContinuation(c, mode, v)
	switch out.Kind {
	case OutcomeSuspend:
		return vm.newIterResult(out.Value, false), nil
	case OutcomeReturn:
		return vm.newIterResult(out.Value, true), nil
	}
	return Null, Throw(out.Value)
}

// generatorReturn finishes the generator with the given value. The body is
// not re-entered.
func generatorReturn(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	if !IsGenerator(ctx.This) {
		return Null, vm.ThrowError("generator method called on a non-generator")
	}
	c := GeneratorContinuation(ctx.This)
	c.state = ContDone
	return vm.newIterResult(argOrNull(args, 0), true), nil
}

func (vm *VM) newIterResult(v Value, done bool) Value {
	o := NewObject(vm.Intrinsics.ObjectPrototype)
	oo := o.AsObject()
	oo.DefineOwn(StringKey("value"), v)
	oo.DefineOwn(StringKey("done"), BooleanValue(done))
	return o
}
