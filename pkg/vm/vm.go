package vm

import (
	"go.uber.org/zap"

	"skink/pkg/runtime"
)

// VM is the execution engine: the intrinsic object graph, the job queue,
// the pending-operation table, and the bridge to the async runtime. A VM
// is single-threaded; only reactor workers run concurrently with it, and
// they communicate exclusively through response tables and readiness.
type VM struct {
	Intrinsics Intrinsics

	jobs    []Job
	reactor *runtime.Reactor
	pending map[runtime.Token]pendingOp
	log     *zap.Logger

	wellKnown   map[string]Value
	ownsReactor bool
}

// Intrinsics is the bootstrap object graph every engine owns.
type Intrinsics struct {
	ObjectPrototype        Value
	FunctionPrototype      Value
	ErrorPrototype         Value
	ArrayPrototype         Value
	BooleanPrototype       Value
	NumberPrototype        Value
	StringPrototype        Value
	RegexPrototype         Value
	IteratorPrototype      Value
	AsyncIteratorPrototype Value
	GeneratorPrototype     Value
	PromisePrototype       Value
	Promise                Value
}

// Option configures a VM.
type Option func(*VM)

// WithLogger routes engine logging to l. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(vm *VM) { vm.log = l }
}

// WithReactor shares an existing reactor instead of owning a fresh one.
// A shared reactor is not closed by Close.
func WithReactor(r *runtime.Reactor) Option {
	return func(vm *VM) { vm.reactor = r }
}

// NewVM builds an engine with its intrinsics initialized and, unless one
// was supplied, a reactor of its own.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		pending:   make(map[runtime.Token]pendingOp),
		wellKnown: make(map[string]Value),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.reactor == nil {
		vm.reactor = runtime.New(runtime.WithLogger(vm.log))
		vm.ownsReactor = true
	}
	vm.initIntrinsics()
	return vm
}

// Reactor exposes the async runtime for builtin modules.
func (vm *VM) Reactor() *runtime.Reactor { return vm.reactor }

// Logger returns the engine's logger.
func (vm *VM) Logger() *zap.Logger { return vm.log }

// Close releases the reactor if the engine owns it.
func (vm *VM) Close() error {
	if vm.ownsReactor {
		return vm.reactor.Close()
	}
	return nil
}

// WellKnownSymbol returns the engine-wide symbol for name, minting it on
// first use.
func (vm *VM) WellKnownSymbol(name string) Value {
	if s, ok := vm.wellKnown[name]; ok {
		return s
	}
	s := NewSymbol(name)
	vm.wellKnown[name] = s
	return s
}

type pendingKind uint8

const (
	pendingTimer pendingKind = iota
	pendingPromise
)

// pendingOp is what a readiness token redeems into: a timer callback to
// invoke, or a promise plus the delivery that settles it.
type pendingOp struct {
	kind    pendingKind
	value   Value
	deliver func(*VM, Value) error
}

// RegisterTimer parks callback until the reactor reports tok ready.
func (vm *VM) RegisterTimer(tok runtime.Token, callback Value) {
	vm.pending[tok] = pendingOp{kind: pendingTimer, value: callback}
}

// RegisterPromiseOp parks promise with the delivery that settles it once
// tok is ready.
func (vm *VM) RegisterPromiseOp(tok runtime.Token, promise Value, deliver func(*VM, Value) error) {
	vm.pending[tok] = pendingOp{kind: pendingPromise, value: promise, deliver: deliver}
}

// PendingOps returns the number of registered, undelivered operations.
func (vm *VM) PendingOps() int { return len(vm.pending) }

// Run drives the engine until no jobs or pending operations remain: drain
// every job, then block for readiness, dispatch what completed, repeat.
// Jobs always drain fully between reactor polls, so settled reactions run
// before any later completion is observed.
func (vm *VM) Run() error {
	for {
		if err := vm.RunJobs(); err != nil {
			return err
		}
		if len(vm.pending) == 0 {
			return nil
		}
		for _, tok := range vm.reactor.Wait() {
			if err := vm.dispatchReady(tok); err != nil {
				return err
			}
		}
	}
}

func (vm *VM) dispatchReady(tok runtime.Token) error {
	op, ok := vm.pending[tok]
	if !ok {
		vm.log.Warn("readiness for unknown token", zap.Uint64("token", uint64(tok)))
		return nil
	}
	delete(vm.pending, tok)
	if op.kind == pendingTimer {
		if _, err := op.value.Call(vm, Null, nil); err != nil {
			tv, thrownOK := ThrownValue(err)
			if !thrownOK {
				return err
			}
			vm.log.Warn("timer callback raised", zap.String("exception", vm.Inspect(tv)))
		}
		return nil
	}
	return op.deliver(vm, op.value)
}
