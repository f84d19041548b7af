package vm

import "fmt"

type binding struct {
	value   Value
	mutable bool
}

// Scope is one lexical environment in the chain the front end maintains.
// Bindings move from declared (Empty) to initialized; `this` is bound per
// function frame and inherited by arrow bodies through the parent chain.
type Scope struct {
	parent   *Scope
	bindings map[string]*binding
	this     *Value
}

// NewScope creates a scope chained to parent (nil for a root scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]*binding)}
}

// Declare introduces name in the uninitialized state.
func (s *Scope) Declare(name string, mutable bool) {
	s.bindings[name] = &binding{value: Empty, mutable: mutable}
}

// Initialize gives a binding declared in this scope its first value.
// Initializing an undeclared name is a front-end bug.
func (s *Scope) Initialize(name string, v Value) {
	b, ok := s.bindings[name]
	if !ok {
		panic(fmt.Sprintf("initialize of undeclared binding %q", name))
	}
	b.value = v
}

// Lookup resolves name through the chain. An Empty result means the
// binding was declared but never initialized.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[name]; ok {
			return b.value, true
		}
	}
	return Null, false
}

// Assign writes to an existing binding through the chain.
func (s *Scope) Assign(vm *VM, name string, v Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		b, ok := cur.bindings[name]
		if !ok {
			continue
		}
		if !b.mutable {
			return vm.ThrowError("assignment to constant %q", name)
		}
		if b.value.typ == TypeEmpty {
			return vm.ThrowError("%q used before initialization", name)
		}
		b.value = v
		return nil
	}
	return vm.ThrowError("%q is not defined", name)
}

// SetThis binds `this` for this scope and everything nested under it.
func (s *Scope) SetThis(v Value) { s.this = &v }

// GetThis resolves `this` through the chain.
func (s *Scope) GetThis() (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.this != nil {
			return *cur.this, true
		}
	}
	return Null, false
}
