package vm

import "fmt"

// ContinuationState tracks where a suspendable body is in its lifecycle.
type ContinuationState uint8

const (
	ContStart ContinuationState = iota // created, body not yet entered
	ContSuspended
	ContRunning
	ContDone
)

func (s ContinuationState) String() string {
	switch s {
	case ContStart:
		return "start"
	case ContSuspended:
		return "suspended"
	case ContRunning:
		return "running"
	case ContDone:
		return "done"
	}
	return fmt.Sprintf("ContinuationState(%d)", uint8(s))
}

// Continuation is a parked function body: everything needed to enter or
// re-enter it, plus, for async bodies, the outer promise its terminal
// outcome settles.
type Continuation struct {
	state    ContinuationState
	function Value
	frame    *Frame
	body     FunctionBody // entry point while in ContStart
	resumer  Resumer      // set after the first suspension
	promise  Value        // async: the outer capability promise; Null otherwise
}

// ContinuationValue wraps c as an internal value so it can ride in slots
// and generator payloads.
func ContinuationValue(c *Continuation) Value {
	return Value{typ: TypeContinuation, ref: c}
}

// State returns the continuation's lifecycle state.
func (c *Continuation) State() ContinuationState { return c.state }

// Function returns the function object the continuation belongs to.
func (c *Continuation) Function() Value { return c.function }

// ResumeContinuation drives one step of a parked body and reports its
// outcome. Driving a running or completed continuation is a contract
// violation and panics; a throw into a never-started body completes it
// without entering it.
func (vm *VM) ResumeContinuation(c *Continuation, mode ResumeMode, v Value) Outcome {
	switch c.state {
	case ContRunning:
		panic("continuation re-entered while running")
	case ContDone:
		panic("continuation already completed")
	}
	entering := c.state == ContStart
	c.state = ContRunning

	var out Outcome
	if entering {
		if mode == ResumeThrow {
			c.state = ContDone
			return Outcome{Kind: OutcomeThrow, Value: v}
		}
		out = c.body.Start(vm, c.frame)
	} else {
		out = c.resumer.Resume(vm, mode, v)
	}

	if out.Kind == OutcomeSuspend {
		c.state = ContSuspended
		c.resumer = out.Resumer
	} else {
		c.state = ContDone
	}
	return out
}

// GeneratorData is the payload of a generator object.
type GeneratorData struct {
	Context Value // the wrapped continuation
}

func (vm *VM) newGeneratorObject(c *Continuation) Value {
	o := newObjectInfo(KindGenerator, vm.Intrinsics.GeneratorPrototype)
	o.generator = &GeneratorData{Context: ContinuationValue(c)}
	return ObjectValue(o)
}

// IsGenerator reports whether v is a generator object.
func IsGenerator(v Value) bool {
	return v.typ == TypeObject && v.AsObject().kind == KindGenerator
}

// GeneratorContinuation extracts the continuation of a generator object.
func GeneratorContinuation(v Value) *Continuation {
	return v.AsObject().generator.Context.AsContinuation()
}
