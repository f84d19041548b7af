package vm

import "fmt"

// Discipline selects the invocation protocol of a function body.
type Discipline uint8

const (
	DisciplineNormal Discipline = iota
	DisciplineGenerator
	DisciplineAsync
)

func (d Discipline) String() string {
	switch d {
	case DisciplineNormal:
		return "normal"
	case DisciplineGenerator:
		return "generator"
	case DisciplineAsync:
		return "async"
	}
	return fmt.Sprintf("Discipline(%d)", uint8(d))
}

// FuncInfo describes a function the front end hands to NewFunction.
type FuncInfo struct {
	Name       string
	Discipline Discipline
	Arrow      bool
	Params     []string
	Body       FunctionBody
}

// FunctionData is the payload of a function object: the description plus
// the captured environment.
type FunctionData struct {
	FuncInfo
	Scope *Scope
}

// BuiltinFunc is the native function shape: the engine, the positional
// arguments, and the call context carrying the callee and its `this`.
type BuiltinFunc func(vm *VM, args []Value, ctx *CallContext) (Value, error)

// CallContext is what a builtin sees of its activation.
type CallContext struct {
	Function Value
	This     Value
}

// NewFunction creates a callable object closing over scope. Plain normal
// functions get a fresh `prototype` object for construction; arrows,
// generators and async functions do not construct and get none.
func (vm *VM) NewFunction(info FuncInfo, scope *Scope) Value {
	o := newObjectInfo(KindFunction, vm.Intrinsics.FunctionPrototype)
	o.fn = &FunctionData{FuncInfo: info, Scope: scope}
	fn := ObjectValue(o)
	if info.Name != "" {
		o.DefineOwn(StringKey("name"), NewString(info.Name))
	}
	if !info.Arrow && info.Discipline == DisciplineNormal {
		proto := NewObject(vm.Intrinsics.ObjectPrototype)
		proto.AsObject().DefineOwn(StringKey("constructor"), fn)
		o.DefineOwn(StringKey("prototype"), proto)
	}
	return fn
}

// NewBuiltinFunction wraps a native Go function as a callable object.
func (vm *VM) NewBuiltinFunction(fn BuiltinFunc) Value {
	o := newObjectInfo(KindBuiltin, vm.Intrinsics.FunctionPrototype)
	o.native = fn
	o.slots = make(map[string]Value)
	return ObjectValue(o)
}

// FunctionDataOf returns the payload of a function object, or nil.
func FunctionDataOf(v Value) *FunctionData {
	if v.typ != TypeObject {
		return nil
	}
	return v.AsObject().fn
}

func argOrNull(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Null
}
