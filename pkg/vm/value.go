package vm

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ValueType identifies the runtime type stored in a Value.
type ValueType uint8

const (
	TypeNull ValueType = iota // the zero Value is Null
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
	TypeTuple

	// Internal variants. Scripts never observe these: TypeOf and ToBoolean
	// treat them as contract violations.
	TypeEmpty
	TypeList
	TypeContinuation
	TypeIterator
)

func (vt ValueType) String() string {
	switch vt {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeObject:
		return "object"
	case TypeTuple:
		return "tuple"
	case TypeEmpty:
		return "empty"
	case TypeList:
		return "list"
	case TypeContinuation:
		return "continuation"
	case TypeIterator:
		return "iterator"
	}
	return fmt.Sprintf("ValueType(%d)", uint8(vt))
}

// Value is the universal value representation: a small tagged struct copied
// by value. The zero Value is Null. Reference kinds (symbols, objects,
// lists, continuations, iterators) share an allocation through ref, so
// copying a Value never copies the thing it points at.
type Value struct {
	typ ValueType
	num float64
	str string
	ref any // *Symbol, *ObjectInfo, []Value, *List, *Continuation, *Iterator
}

var (
	Null  = Value{typ: TypeNull}
	True  = Value{typ: TypeBoolean, num: 1}
	False = Value{typ: TypeBoolean}

	// Empty marks declared-but-uninitialized bindings and absent engine
	// state. It never reaches script code.
	Empty = Value{typ: TypeEmpty}
)

// BooleanValue returns True or False.
func BooleanValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{typ: TypeNumber, num: n} }

// IntegerValue wraps an int as a number value.
func IntegerValue(n int) Value { return NumberValue(float64(n)) }

// NewString wraps a string.
func NewString(s string) Value { return Value{typ: TypeString, str: s} }

// NewTuple builds an immutable fixed-size grouping. Tuples compare by
// element, unlike objects.
func NewTuple(items ...Value) Value { return Value{typ: TypeTuple, ref: items} }

var symbolIDs atomic.Uint64

// Symbol is a unique symbol allocation. Two symbol values are the same
// symbol only when they share the allocation; descriptions are labels, not
// identity.
type Symbol struct {
	id      uint64
	desc    string
	private bool
}

// ID returns the creation-ordered id, used for deterministic enumeration.
func (s *Symbol) ID() uint64 { return s.id }

// Description returns the label the symbol was created with.
func (s *Symbol) Description() string { return s.desc }

// Private reports whether the symbol is private. Private symbols are
// invisible to prototype lookup and key enumeration.
func (s *Symbol) Private() bool { return s.private }

func (s *Symbol) displayString() string {
	if s.private {
		return "PrivateSymbol(" + s.desc + ")"
	}
	return "Symbol(" + s.desc + ")"
}

func newSymbol(desc string, private bool) Value {
	return Value{typ: TypeSymbol, ref: &Symbol{id: symbolIDs.Add(1), desc: desc, private: private}}
}

// NewSymbol mints a fresh public symbol.
func NewSymbol(desc string) Value { return newSymbol(desc, false) }

// NewPrivateSymbol mints a fresh private symbol.
func NewPrivateSymbol(desc string) Value { return newSymbol(desc, true) }

// List is a mutable FIFO of values used by engine plumbing. Never
// script-visible.
type List struct {
	items []Value
}

// NewList wraps items as a list value.
func NewList(items ...Value) Value { return Value{typ: TypeList, ref: &List{items: items}} }

func (l *List) Len() int { return len(l.items) }

func (l *List) PushBack(v Value) { l.items = append(l.items, v) }

func (l *List) PopFront() (Value, bool) {
	if len(l.items) == 0 {
		return Null, false
	}
	v := l.items[0]
	l.items = l.items[1:]
	return v, true
}

func (l *List) At(i int) Value { return l.items[i] }

// Iterator pairs an iteration target with its next method; the front end
// threads it through for-of style loops.
type Iterator struct {
	Target Value
	Next   Value
}

// NewIteratorValue wraps a target/next pair as an iterator value.
func NewIteratorValue(target, next Value) Value {
	return Value{typ: TypeIterator, ref: &Iterator{Target: target, Next: next}}
}

// Type returns the value's runtime type tag.
func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNull() bool   { return v.typ == TypeNull }
func (v Value) IsObject() bool { return v.typ == TypeObject }
func (v Value) IsEmpty() bool  { return v.typ == TypeEmpty }

// AsNumber returns the float64 payload of a number value.
func (v Value) AsNumber() float64 {
	if v.typ != TypeNumber {
		panic(fmt.Sprintf("AsNumber on %s value", v.typ))
	}
	return v.num
}

// AsString returns the string payload of a string value.
func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("AsString on %s value", v.typ))
	}
	return v.str
}

// AsBoolean returns the payload of a boolean value.
func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic(fmt.Sprintf("AsBoolean on %s value", v.typ))
	}
	return v.num != 0
}

// AsSymbol returns the symbol allocation behind a symbol value.
func (v Value) AsSymbol() *Symbol { return v.ref.(*Symbol) }

// AsObject returns the object behind an object value.
func (v Value) AsObject() *ObjectInfo { return v.ref.(*ObjectInfo) }

// AsTuple returns the element slice of a tuple value.
func (v Value) AsTuple() []Value { return v.ref.([]Value) }

// AsList returns the list behind a list value.
func (v Value) AsList() *List { return v.ref.(*List) }

// AsIterator returns the pair behind an iterator value.
func (v Value) AsIterator() *Iterator { return v.ref.(*Iterator) }

// AsContinuation returns the continuation behind a continuation value.
func (v Value) AsContinuation() *Continuation { return v.ref.(*Continuation) }

// Equals implements the language's equality: structural for primitives and
// tuples, identity for symbols, objects and the internal reference kinds.
// NaN is not equal to itself.
func (v Value) Equals(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNull, TypeEmpty:
		return true
	case TypeBoolean, TypeNumber:
		return v.num == o.num
	case TypeString:
		return v.str == o.str
	case TypeTuple:
		a, b := v.AsTuple(), o.AsTuple()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equals(b[i]) {
				return false
			}
		}
		return true
	}
	return v.ref == o.ref
}

// TypeOf returns the script-visible type name. Internal kinds have no
// script-visible type; asking for one is an engine bug.
func (v Value) TypeOf() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeTuple:
		return "tuple"
	case TypeObject:
		if v.AsObject().Callable() {
			return "function"
		}
		return "object"
	}
	panic(fmt.Sprintf("TypeOf on internal %s value", v.typ))
}

// ToBoolean returns the value's truthiness: Null, False, 0, NaN and ""
// are false, everything script-visible is true.
func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeBoolean:
		return v.num != 0
	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TypeString:
		return v.str != ""
	case TypeSymbol, TypeObject, TypeTuple:
		return true
	}
	panic(fmt.Sprintf("ToBoolean on internal %s value", v.typ))
}

// ToObject boxes a primitive into its wrapper object; objects pass
// through. Null and the internal kinds cannot be boxed.
func (v Value) ToObject(vm *VM) (Value, error) {
	switch v.typ {
	case TypeObject:
		return v, nil
	case TypeBoolean:
		return vm.newBoxedObject(KindBoolean, vm.Intrinsics.BooleanPrototype, v), nil
	case TypeNumber:
		return vm.newBoxedObject(KindNumber, vm.Intrinsics.NumberPrototype, v), nil
	case TypeString:
		return vm.newBoxedObject(KindString, vm.Intrinsics.StringPrototype, v), nil
	}
	return Null, vm.ThrowError("cannot convert %s to an object", v.typ)
}
