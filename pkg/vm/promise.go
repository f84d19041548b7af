package vm

// PromiseState is the settlement state of a promise.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	}
	return "PromiseState(?)"
}

// ReactionKind routes a reaction: fulfill-side reactions pass a missing
// handler's value to the derived promise's resolve, reject-side ones to
// its reject.
type ReactionKind uint8

const (
	ReactionResolve ReactionKind = iota
	ReactionReject
)

// PromiseReaction is one registration made by then: which side it serves,
// the derived promise it settles, and the handler (Null passes through).
type PromiseReaction struct {
	Kind       ReactionKind
	Capability Value
	Handler    Value
}

// PromiseData is the payload of a promise object. The reaction queues are
// FIFO and cleared on settlement; ResolveFn/RejectFn hold the capability
// pair when the promise was built through NewPromiseCapability.
type PromiseData struct {
	State            PromiseState
	Result           Value
	FulfillReactions []*PromiseReaction
	RejectReactions  []*PromiseReaction
	ResolveFn        Value
	RejectFn         Value
}

// NewPromise creates a pending promise object.
func (vm *VM) NewPromise() Value {
	o := newObjectInfo(KindPromise, vm.Intrinsics.PromisePrototype)
	o.promise = &PromiseData{State: PromisePending, Result: Null, ResolveFn: Null, RejectFn: Null}
	return ObjectValue(o)
}

// PromiseDataOf returns the payload of a promise object, or nil.
func PromiseDataOf(v Value) *PromiseData {
	if v.typ != TypeObject {
		return nil
	}
	o := v.AsObject()
	if o.kind != KindPromise {
		return nil
	}
	return o.promise
}

// IsPromise reports whether v carries promise state.
func IsPromise(v Value) bool { return PromiseDataOf(v) != nil }

const (
	slotPromise         = "promise"
	slotAlreadyResolved = "already resolved"
	slotResolvedFlag    = "resolved"
	slotResolve         = "resolve"
	slotReject          = "reject"
	slotConstructor     = "constructor"
	slotOnFinally       = "on finally"
	slotValue           = "value"
)

// createResolvingFunctions builds the one-shot resolve/reject pair for
// promise. Both share a guard object, so whichever runs first retires the
// pair.
func (vm *VM) createResolvingFunctions(promise Value) (resolve, reject Value) {
	guard := NewCustomObject(Null)
	guard.AsObject().SetSlot(slotResolvedFlag, False)

	resolve = vm.NewBuiltinFunction(promiseResolveFunction)
	ro := resolve.AsObject()
	ro.SetSlot(slotPromise, promise)
	ro.SetSlot(slotAlreadyResolved, guard)

	reject = vm.NewBuiltinFunction(promiseRejectFunction)
	jo := reject.AsObject()
	jo.SetSlot(slotPromise, promise)
	jo.SetSlot(slotAlreadyResolved, guard)
	return resolve, reject
}

func promiseResolveFunction(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	f := ctx.Function.AsObject()
	guard := f.GetSlot(slotAlreadyResolved).AsObject()
	if guard.GetSlot(slotResolvedFlag).Equals(True) {
		return Null, nil
	}
	guard.SetSlot(slotResolvedFlag, True)

	promise := f.GetSlot(slotPromise)
	resolution := argOrNull(args, 0)

	if resolution.Equals(promise) {
		vm.rejectPromise(promise, vm.NewError("cannot resolve a promise with itself"))
		return Null, nil
	}
	if IsPromise(resolution) {
		// Adopt the resolution's eventual state through its then.
		resolveNext, rejectNext := vm.createResolvingFunctions(promise)
		then, err := resolution.Get(vm, StringKey("then"))
		if err == nil {
			_, err = then.Call(vm, resolution, []Value{resolveNext, rejectNext})
		}
		if err != nil {
			tv, ok := ThrownValue(err)
			if !ok {
				return Null, err
			}
			if _, rerr := rejectNext.Call(vm, Null, []Value{tv}); rerr != nil {
				return Null, rerr
			}
		}
		return Null, nil
	}
	vm.fulfillPromise(promise, resolution)
	return Null, nil
}

func promiseRejectFunction(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	f := ctx.Function.AsObject()
	guard := f.GetSlot(slotAlreadyResolved).AsObject()
	if guard.GetSlot(slotResolvedFlag).Equals(True) {
		return Null, nil
	}
	guard.SetSlot(slotResolvedFlag, True)
	vm.rejectPromise(f.GetSlot(slotPromise), argOrNull(args, 0))
	return Null, nil
}

func (vm *VM) fulfillPromise(promise, value Value) {
	data := PromiseDataOf(promise)
	reactions := data.FulfillReactions
	data.Result = value
	data.State = PromiseFulfilled
	data.FulfillReactions, data.RejectReactions = nil, nil
	vm.triggerPromiseReactions(reactions, value)
}

func (vm *VM) rejectPromise(promise, reason Value) {
	data := PromiseDataOf(promise)
	reactions := data.RejectReactions
	data.Result = reason
	data.State = PromiseRejected
	data.FulfillReactions, data.RejectReactions = nil, nil
	vm.triggerPromiseReactions(reactions, reason)
}

// triggerPromiseReactions schedules each reaction as its own job, in
// queue order.
func (vm *VM) triggerPromiseReactions(reactions []*PromiseReaction, arg Value) {
	for _, r := range reactions {
		vm.EnqueueJob("promise-reaction", func(vm *VM) error {
			return vm.promiseReactionJob(r, arg)
		})
	}
}

// promiseReactionJob runs one settled reaction: the handler's return
// resolves the derived promise, its throw rejects it, and a Null handler
// passes the settlement through along the reaction's kind.
func (vm *VM) promiseReactionJob(r *PromiseReaction, arg Value) error {
	var result Value
	var herr error
	if r.Handler.Equals(Null) {
		if r.Kind == ReactionReject {
			herr = Throw(arg)
		} else {
			result = arg
		}
	} else {
		result, herr = r.Handler.Call(vm, Null, []Value{arg})
	}

	if r.Capability.Equals(Null) {
		return nil
	}
	if herr != nil {
		tv, ok := ThrownValue(herr)
		if !ok {
			return herr
		}
		_, err := capabilityReject(r.Capability).Call(vm, Null, []Value{tv})
		return err
	}
	_, err := capabilityResolve(r.Capability).Call(vm, Null, []Value{result})
	return err
}

// promiseThen implements the prototype's then.
func promiseThen(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	promise := ctx.This
	data := PromiseDataOf(promise)
	if data == nil {
		return Null, vm.ThrowError("then called on a non-promise")
	}
	constructor, err := promise.Get(vm, StringKey("constructor"))
	if err != nil {
		return Null, err
	}
	capability, err := vm.NewPromiseCapability(constructor)
	if err != nil {
		return Null, err
	}

	fulfillReaction := &PromiseReaction{Kind: ReactionResolve, Capability: capability, Handler: callableOrNull(argOrNull(args, 0))}
	rejectReaction := &PromiseReaction{Kind: ReactionReject, Capability: capability, Handler: callableOrNull(argOrNull(args, 1))}

	switch data.State {
	case PromisePending:
		data.FulfillReactions = append(data.FulfillReactions, fulfillReaction)
		data.RejectReactions = append(data.RejectReactions, rejectReaction)
	case PromiseFulfilled:
		vm.triggerPromiseReactions([]*PromiseReaction{fulfillReaction}, data.Result)
	case PromiseRejected:
		vm.triggerPromiseReactions([]*PromiseReaction{rejectReaction}, data.Result)
	}
	return capability, nil
}

func callableOrNull(v Value) Value {
	if IsCallable(v) {
		return v
	}
	return Null
}

// promiseCatch delegates to this.then so overridden thens are honored.
func promiseCatch(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	then, err := ctx.This.Get(vm, StringKey("then"))
	if err != nil {
		return Null, err
	}
	return then.Call(vm, ctx.This, []Value{Null, argOrNull(args, 0)})
}

// promiseFinally registers a callback that observes settlement without
// changing it: the original value or reason flows on, but a throwing
// callback wins.
func promiseFinally(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	promise := ctx.This
	if PromiseDataOf(promise) == nil {
		return Null, vm.ThrowError("finally called on a non-promise")
	}
	constructor, err := promise.Get(vm, StringKey("constructor"))
	if err != nil {
		return Null, err
	}

	onFinally := argOrNull(args, 0)
	thenArgs := []Value{onFinally, onFinally}
	if IsCallable(onFinally) {
		thenFinally := vm.NewBuiltinFunction(finallyThen)
		tf := thenFinally.AsObject()
		tf.SetSlot(slotConstructor, constructor)
		tf.SetSlot(slotOnFinally, onFinally)

		catchFinally := vm.NewBuiltinFunction(finallyCatch)
		cf := catchFinally.AsObject()
		cf.SetSlot(slotConstructor, constructor)
		cf.SetSlot(slotOnFinally, onFinally)

		thenArgs = []Value{thenFinally, catchFinally}
	}
	then, err := promise.Get(vm, StringKey("then"))
	if err != nil {
		return Null, err
	}
	return then.Call(vm, promise, thenArgs)
}

func finallyThen(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	f := ctx.Function.AsObject()
	result, err := f.GetSlot(slotOnFinally).Call(vm, Null, nil)
	if err != nil {
		return Null, err
	}
	promise, err := vm.promiseResolve(f.GetSlot(slotConstructor), result)
	if err != nil {
		return Null, err
	}
	thunk := vm.NewBuiltinFunction(valueThunk)
	thunk.AsObject().SetSlot(slotValue, argOrNull(args, 0))
	then, err := promise.Get(vm, StringKey("then"))
	if err != nil {
		return Null, err
	}
	return then.Call(vm, promise, []Value{thunk})
}

func finallyCatch(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	f := ctx.Function.AsObject()
	result, err := f.GetSlot(slotOnFinally).Call(vm, Null, nil)
	if err != nil {
		return Null, err
	}
	promise, err := vm.promiseResolve(f.GetSlot(slotConstructor), result)
	if err != nil {
		return Null, err
	}
	thrower := vm.NewBuiltinFunction(valueThrower)
	thrower.AsObject().SetSlot(slotValue, argOrNull(args, 0))
	then, err := promise.Get(vm, StringKey("then"))
	if err != nil {
		return Null, err
	}
	return then.Call(vm, promise, []Value{thrower})
}

func valueThunk(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return ctx.Function.AsObject().GetSlot(slotValue), nil
}

func valueThrower(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return Null, Throw(ctx.Function.AsObject().GetSlot(slotValue))
}

// getCapabilitiesExecutor captures the resolve/reject pair a constructor
// hands its executor. Capturing twice is a script-level error.
func getCapabilitiesExecutor(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	f := ctx.Function.AsObject()
	if !f.GetSlot(slotResolve).Equals(Null) || !f.GetSlot(slotReject).Equals(Null) {
		return Null, vm.ThrowError("promise capability already captured")
	}
	f.SetSlot(slotResolve, argOrNull(args, 0))
	f.SetSlot(slotReject, argOrNull(args, 1))
	return Null, nil
}

// NewPromiseCapability constructs a pending promise through constructor
// and returns it with its resolve/reject pair attached. It fails when the
// constructor does not hand its executor two callables.
func (vm *VM) NewPromiseCapability(constructor Value) (Value, error) {
	if !IsCallable(constructor) {
		return Null, vm.ThrowError("promise constructor must be callable")
	}
	executor := vm.NewBuiltinFunction(getCapabilitiesExecutor)
	eo := executor.AsObject()
	eo.SetSlot(slotResolve, Null)
	eo.SetSlot(slotReject, Null)

	promise, err := constructor.Construct(vm, []Value{executor}, constructor)
	if err != nil {
		return Null, err
	}
	resolve := eo.GetSlot(slotResolve)
	reject := eo.GetSlot(slotReject)
	if !IsCallable(resolve) || !IsCallable(reject) {
		return Null, vm.ThrowError("promise constructor did not capture resolving functions")
	}

	if data := PromiseDataOf(promise); data != nil {
		data.ResolveFn, data.RejectFn = resolve, reject
	} else if promise.typ == TypeObject && (promise.AsObject().kind == KindBuiltin || promise.AsObject().kind == KindCustom) {
		po := promise.AsObject()
		po.SetSlot(slotResolve, resolve)
		po.SetSlot(slotReject, reject)
	} else {
		return Null, vm.ThrowError("promise constructor did not produce a promise-like object")
	}
	return promise, nil
}

func capabilityResolve(capability Value) Value {
	o := capability.AsObject()
	if o.kind == KindPromise {
		return o.promise.ResolveFn
	}
	return o.GetSlot(slotResolve)
}

func capabilityReject(capability Value) Value {
	o := capability.AsObject()
	if o.kind == KindPromise {
		return o.promise.RejectFn
	}
	return o.GetSlot(slotReject)
}

// ResolveCapability invokes the resolve half of a capability promise.
func (vm *VM) ResolveCapability(promise, value Value) error {
	_, err := capabilityResolve(promise).Call(vm, Null, []Value{value})
	return err
}

// RejectCapability invokes the reject half of a capability promise.
func (vm *VM) RejectCapability(promise, reason Value) error {
	_, err := capabilityReject(promise).Call(vm, Null, []Value{reason})
	return err
}

// promiseConstructor implements `new Promise(executor)`.
func promiseConstructor(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	executor := argOrNull(args, 0)
	if !IsCallable(executor) {
		return Null, vm.ThrowError("executor must be a function")
	}
	promise := vm.NewPromise()
	resolve, reject := vm.createResolvingFunctions(promise)
	if _, err := executor.Call(vm, Null, []Value{resolve, reject}); err != nil {
		tv, ok := ThrownValue(err)
		if !ok {
			return Null, err
		}
		if _, rerr := reject.Call(vm, Null, []Value{tv}); rerr != nil {
			return Null, rerr
		}
	}
	return promise, nil
}

// promiseResolve coerces value to a promise of constructor, passing
// existing instances of it through untouched.
func (vm *VM) promiseResolve(constructor, value Value) (Value, error) {
	if IsPromise(value) {
		vc, err := value.Get(vm, StringKey("constructor"))
		if err != nil {
			return Null, err
		}
		if vc.Equals(constructor) {
			return value, nil
		}
	}
	capability, err := vm.NewPromiseCapability(constructor)
	if err != nil {
		return Null, err
	}
	if err := vm.ResolveCapability(capability, value); err != nil {
		return Null, err
	}
	return capability, nil
}

func promiseResolveStatic(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	return vm.promiseResolve(ctx.This, argOrNull(args, 0))
}

func promiseRejectStatic(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	capability, err := vm.NewPromiseCapability(ctx.This)
	if err != nil {
		return Null, err
	}
	if err := vm.RejectCapability(capability, argOrNull(args, 0)); err != nil {
		return Null, err
	}
	return capability, nil
}

// createPromiseIntrinsic builds the Promise constructor/prototype pair.
func (vm *VM) createPromiseIntrinsic() (constructor, prototype Value) {
	prototype = NewObject(vm.Intrinsics.ObjectPrototype)
	constructor = vm.NewBuiltinFunction(promiseConstructor)

	po := prototype.AsObject()
	po.DefineOwn(StringKey("constructor"), constructor)
	po.DefineOwn(StringKey("then"), vm.NewBuiltinFunction(promiseThen))
	po.DefineOwn(StringKey("catch"), vm.NewBuiltinFunction(promiseCatch))
	po.DefineOwn(StringKey("finally"), vm.NewBuiltinFunction(promiseFinally))

	co := constructor.AsObject()
	co.DefineOwn(StringKey("name"), NewString("Promise"))
	co.DefineOwn(StringKey("prototype"), prototype)
	co.DefineOwn(StringKey("resolve"), vm.NewBuiltinFunction(promiseResolveStatic))
	co.DefineOwn(StringKey("reject"), vm.NewBuiltinFunction(promiseRejectStatic))
	return constructor, prototype
}
