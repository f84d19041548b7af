package vm

// OutcomeKind classifies how a body step ended.
type OutcomeKind uint8

const (
	OutcomeReturn OutcomeKind = iota
	OutcomeThrow
	OutcomeSuspend
)

// Outcome is one step of a function body: a normal return, a thrown value,
// or a suspension carrying the yielded/awaited value and the Resumer that
// re-enters the body.
type Outcome struct {
	Kind    OutcomeKind
	Value   Value
	Resumer Resumer
}

// ResumeMode selects how a suspended body continues: with a value, or with
// a value thrown at the suspension point.
type ResumeMode uint8

const (
	ResumeNext ResumeMode = iota
	ResumeThrow
)

// FunctionBody is the engine's contract with the front end: the compiled
// or interpreted body of a function. Start is called at most once per
// activation; after a Suspend outcome the body is re-entered only through
// the Resumer it handed back.
type FunctionBody interface {
	Start(vm *VM, fr *Frame) Outcome
}

// Resumer re-enters a suspended body.
type Resumer interface {
	Resume(vm *VM, mode ResumeMode, v Value) Outcome
}

// Frame is the per-invocation activation: the function object, its scope
// with `this` and parameters bound, and the raw argument list.
type Frame struct {
	Function Value
	Scope    *Scope
	Args     []Value
}

// NativeBody adapts a plain Go function as a run-to-completion body.
type NativeBody func(vm *VM, fr *Frame) (Value, error)

func (f NativeBody) Start(vm *VM, fr *Frame) Outcome {
	v, err := f(vm, fr)
	return outcomeFromResult(vm, v, err)
}

func outcomeFromResult(vm *VM, v Value, err error) Outcome {
	if err != nil {
		if tv, ok := ThrownValue(err); ok {
			return Outcome{Kind: OutcomeThrow, Value: tv}
		}
		return Outcome{Kind: OutcomeThrow, Value: vm.NewError(err.Error())}
	}
	return Outcome{Kind: OutcomeReturn, Value: v}
}

// GoBody adapts fn as a suspendable body. The body runs on its own
// goroutine in strict lockstep with the engine: exactly one of the two is
// running at any moment, so the body may use the engine freely while
// active. A body abandoned mid-suspension keeps its goroutine parked;
// drive it to completion to release it.
func GoBody(fn func(in *Invocation) (Value, error)) FunctionBody {
	return goBody{fn: fn}
}

type goBody struct {
	fn func(in *Invocation) (Value, error)
}

// Invocation is the view a GoBody function has of its activation.
type Invocation struct {
	VM    *VM
	Frame *Frame

	steps   chan Outcome
	resumes chan resumeMsg
}

type resumeMsg struct {
	mode ResumeMode
	v    Value
}

func (b goBody) Start(vm *VM, fr *Frame) Outcome {
	in := &Invocation{
		VM:      vm,
		Frame:   fr,
		steps:   make(chan Outcome),
		resumes: make(chan resumeMsg),
	}
	go func() {
		v, err := b.fn(in)
		in.steps <- outcomeFromResult(vm, v, err)
	}()
	return <-in.steps
}

// Yield suspends the body with v and parks until the engine resumes it.
// It returns the resumption value, or the thrown value as an error when
// the engine re-enters with a throw. For async bodies this is the await
// point.
func (in *Invocation) Yield(v Value) (Value, error) {
	in.steps <- Outcome{Kind: OutcomeSuspend, Value: v, Resumer: goResumer{in: in}}
	msg := <-in.resumes
	if msg.mode == ResumeThrow {
		return Null, Throw(msg.v)
	}
	return msg.v, nil
}

// Await is Yield under its async-discipline name.
func (in *Invocation) Await(v Value) (Value, error) { return in.Yield(v) }

type goResumer struct {
	in *Invocation
}

func (r goResumer) Resume(vm *VM, mode ResumeMode, v Value) Outcome {
	r.in.resumes <- resumeMsg{mode: mode, v: v}
	return <-r.in.steps
}
