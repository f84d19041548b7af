package vm

const slotAwaitContinuation = "awaited continuation"

// settleAsyncStep routes one async body step: terminal outcomes settle the
// outer promise before the caller sees it, a suspension parks the body
// behind an await. The caller always receives the outer promise.
func (vm *VM) settleAsyncStep(promise Value, out Outcome, fn Value, fr *Frame) (Value, error) {
	switch out.Kind {
	case OutcomeReturn:
		if err := vm.ResolveCapability(promise, out.Value); err != nil {
			return Null, err
		}
	case OutcomeThrow:
		if err := vm.RejectCapability(promise, out.Value); err != nil {
			return Null, err
		}
	case OutcomeSuspend:
		c := &Continuation{
			state:    ContSuspended,
			function: fn,
			frame:    fr,
			resumer:  out.Resumer,
			promise:  promise,
		}
		if err := vm.performAwait(c, out.Value); err != nil {
			return Null, err
		}
	}
	return promise, nil
}

// performAwait parks c until value, coerced to a promise, settles. The
// settlement handlers carry the continuation in a slot and re-drive the
// body on the job queue's schedule.
func (vm *VM) performAwait(c *Continuation, value Value) error {
	inner, err := vm.promiseResolve(vm.Intrinsics.Promise, value)
	if err != nil {
		return err
	}
	onFulfilled := vm.NewBuiltinFunction(awaitFulfilled)
	onFulfilled.AsObject().SetSlot(slotAwaitContinuation, ContinuationValue(c))
	onRejected := vm.NewBuiltinFunction(awaitRejected)
	onRejected.AsObject().SetSlot(slotAwaitContinuation, ContinuationValue(c))

	then, err := inner.Get(vm, StringKey("then"))
	if err != nil {
		return err
	}
	_, err = then.Call(vm, inner, []Value{onFulfilled, onRejected})
	return err
}

func awaitFulfilled(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	c := ctx.Function.AsObject().GetSlot(slotAwaitContinuation).AsContinuation()
	return Null, vm.resumeAsync(c, ResumeNext, argOrNull(args, 0))
}

func awaitRejected(vm *VM, args []Value, ctx *CallContext) (Value, error) {
	c := ctx.Function.AsObject().GetSlot(slotAwaitContinuation).AsContinuation()
	return Null, vm.resumeAsync(c, ResumeThrow, argOrNull(args, 0))
}

// resumeAsync drives an async body one step: a further suspension awaits
// again, a terminal outcome settles the outer promise exactly once.
func (vm *VM) resumeAsync(c *Continuation, mode ResumeMode, v Value) error {
	out := vm.ResumeContinuation(c, mode, v)
	switch out.Kind {
	case OutcomeReturn:
		return vm.ResolveCapability(c.promise, out.Value)
	case OutcomeThrow:
		return vm.RejectCapability(c.promise, out.Value)
	}
	return vm.performAwait(c, out.Value)
}
