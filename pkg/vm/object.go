package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dlclark/regexp2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ObjectKind selects which payload fields of an ObjectInfo are meaningful.
type ObjectKind uint8

const (
	KindOrdinary ObjectKind = iota
	KindArray
	KindBoolean
	KindString
	KindNumber
	KindRegex
	KindBuffer
	KindFunction
	KindBuiltin
	KindPromise
	KindGenerator
	KindCustom
)

func (k ObjectKind) String() string {
	switch k {
	case KindOrdinary:
		return "ordinary"
	case KindArray:
		return "array"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindRegex:
		return "regex"
	case KindBuffer:
		return "buffer"
	case KindFunction:
		return "function"
	case KindBuiltin:
		return "builtin"
	case KindPromise:
		return "promise"
	case KindGenerator:
		return "generator"
	case KindCustom:
		return "custom"
	}
	return fmt.Sprintf("ObjectKind(%d)", uint8(k))
}

type keyKind uint8

const (
	keyIndex keyKind = iota
	keyString
	keySymbol
)

// ObjectKey is a property key: an array index, a string, or a symbol.
// String and number forms canonicalize at construction, so "7" and 7
// produce the same index key while negative or fractional numbers fall
// back to their decimal string. Keys are comparable with ==.
type ObjectKey struct {
	kind  keyKind
	index int
	str   string
	sym   *Symbol
}

// IndexKey returns the key for an array index. Negative indexes become
// string keys, matching the number canonicalization.
func IndexKey(i int) ObjectKey {
	if i < 0 {
		return ObjectKey{kind: keyString, str: strconv.Itoa(i)}
	}
	return ObjectKey{kind: keyIndex, index: i}
}

// StringKey canonicalizes s: canonical base-10 index text ("0", "7", but
// not "07" or "-1") becomes an index key, everything else stays a string.
func StringKey(s string) ObjectKey {
	if i, ok := canonicalIndex(s); ok {
		return ObjectKey{kind: keyIndex, index: i}
	}
	return ObjectKey{kind: keyString, str: s}
}

func canonicalIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil || i > math.MaxInt32 {
		return 0, false // keep the index range aligned with NumberKey
	}
	return i, true
}

// NumberKey canonicalizes a numeric key: non-negative integers become
// index keys, anything else uses its decimal formatting as a string key.
func NumberKey(n float64) ObjectKey {
	if n == math.Trunc(n) && n >= 0 && n <= float64(math.MaxInt32) {
		return ObjectKey{kind: keyIndex, index: int(n)}
	}
	return ObjectKey{kind: keyString, str: formatNumber(n)}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// SymbolKey returns the key for a symbol value.
func SymbolKey(v Value) ObjectKey {
	return ObjectKey{kind: keySymbol, sym: v.AsSymbol()}
}

// IsPrivate reports whether the key is a private symbol key.
func (k ObjectKey) IsPrivate() bool { return k.kind == keySymbol && k.sym.private }

// Value returns the script value form of the key.
func (k ObjectKey) Value() Value {
	switch k.kind {
	case keyIndex:
		return IntegerValue(k.index)
	case keyString:
		return NewString(k.str)
	}
	return Value{typ: TypeSymbol, ref: k.sym}
}

func (k ObjectKey) String() string {
	switch k.kind {
	case keyIndex:
		return strconv.Itoa(k.index)
	case keyString:
		return k.str
	}
	return k.sym.displayString()
}

// less orders keys for enumeration: indexes before strings before symbols,
// ascending within each class (symbols by creation order).
func (k ObjectKey) less(o ObjectKey) bool {
	if k.kind != o.kind {
		return k.kind < o.kind
	}
	switch k.kind {
	case keyIndex:
		return k.index < o.index
	case keyString:
		return k.str < o.str
	}
	return k.sym.id < o.sym.id
}

// ToObjectKey converts a value used in key position. Only strings, numbers
// and symbols are valid keys.
func (v Value) ToObjectKey(vm *VM) (ObjectKey, error) {
	switch v.typ {
	case TypeString:
		return StringKey(v.str), nil
	case TypeNumber:
		return NumberKey(v.num), nil
	case TypeSymbol:
		return ObjectKey{kind: keySymbol, sym: v.AsSymbol()}, nil
	}
	return ObjectKey{}, vm.ThrowError("cannot convert %s to an object key", v.typ)
}

// ObjectInfo is the heap representation of every object. The kind selects
// which payload fields are in use; the property table is insertion-ordered
// so enumeration is deterministic.
type ObjectInfo struct {
	kind       ObjectKind
	properties *orderedmap.OrderedMap[ObjectKey, Value]
	prototype  Value

	primitive Value            // Boolean, Number, String boxes
	regex     *regexp2.Regexp  // Regex
	regexSrc  string           // Regex
	buffer    []byte           // Buffer
	fn        *FunctionData    // Function
	native    BuiltinFunc      // Builtin
	slots     map[string]Value // Builtin, Custom
	promise   *PromiseData     // Promise
	generator *GeneratorData   // Generator
}

func newObjectInfo(kind ObjectKind, proto Value) *ObjectInfo {
	return &ObjectInfo{
		kind:       kind,
		properties: orderedmap.New[ObjectKey, Value](),
		prototype:  proto,
	}
}

// ObjectValue wraps o as a value.
func ObjectValue(o *ObjectInfo) Value { return Value{typ: TypeObject, ref: o} }

// NewObject creates a plain object with the given prototype.
func NewObject(proto Value) Value { return ObjectValue(newObjectInfo(KindOrdinary, proto)) }

// NewCustomObject creates a slot-capable object for engine bookkeeping
// (resolution guards, reaction state and the like).
func NewCustomObject(proto Value) Value {
	o := newObjectInfo(KindCustom, proto)
	o.slots = make(map[string]Value)
	return ObjectValue(o)
}

func (o *ObjectInfo) Kind() ObjectKind { return o.kind }

func (o *ObjectInfo) Prototype() Value { return o.prototype }

func (o *ObjectInfo) SetPrototype(p Value) { o.prototype = p }

// Callable reports whether the object can be invoked.
func (o *ObjectInfo) Callable() bool { return o.kind == KindFunction || o.kind == KindBuiltin }

// IsCallable reports whether v is a callable object.
func IsCallable(v Value) bool { return v.typ == TypeObject && v.AsObject().Callable() }

// DefineOwn writes an own property without consulting the prototype chain.
func (o *ObjectInfo) DefineOwn(key ObjectKey, v Value) { o.properties.Set(key, v) }

func (o *ObjectInfo) hasOwn(key ObjectKey) bool {
	_, ok := o.properties.Get(key)
	return ok
}

// get walks the prototype chain. Private symbol keys never consult the
// chain: an own miss is Null immediately.
func (o *ObjectInfo) get(key ObjectKey) Value {
	if v, ok := o.properties.Get(key); ok {
		return v
	}
	if key.IsPrivate() {
		return Null
	}
	if o.prototype.typ != TypeObject {
		return Null
	}
	return o.prototype.AsObject().get(key)
}

// set walks the chain only to decide where the search stops; the write
// always lands on receiver. Private keys and own hits stop immediately.
func (o *ObjectInfo) set(key ObjectKey, value Value, receiver *ObjectInfo) {
	if key.IsPrivate() || o.hasOwn(key) {
		receiver.properties.Set(key, value)
		return
	}
	if o.prototype.typ == TypeObject {
		o.prototype.AsObject().set(key, value, receiver)
		return
	}
	receiver.properties.Set(key, value)
}

// keys lists own enumerable keys: private symbols excluded, indexes before
// strings before symbols, ascending within each class.
func (o *ObjectInfo) keys() []ObjectKey {
	out := make([]ObjectKey, 0, o.properties.Len())
	for p := o.properties.Oldest(); p != nil; p = p.Next() {
		if p.Key.IsPrivate() {
			continue
		}
		out = append(out, p.Key)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Get reads key from v, boxing primitives as needed. Tuples answer index
// keys and "length" directly.
func (v Value) Get(vm *VM, key ObjectKey) (Value, error) {
	switch v.typ {
	case TypeObject:
		return v.AsObject().get(key), nil
	case TypeTuple:
		items := v.AsTuple()
		if key.kind == keyIndex {
			if key.index < len(items) {
				return items[key.index], nil
			}
			return Null, nil
		}
		if key.kind == keyString && key.str == "length" {
			return IntegerValue(len(items)), nil
		}
		return Null, nil
	}
	boxed, err := v.ToObject(vm)
	if err != nil {
		return Null, err
	}
	return boxed.AsObject().get(key), nil
}

// Set writes key on v. Only objects accept writes.
func (v Value) Set(vm *VM, key ObjectKey, value Value) error {
	if v.typ != TypeObject {
		return vm.ThrowError("cannot set properties of a %s value", v.typ)
	}
	o := v.AsObject()
	o.set(key, value, o)
	return nil
}

// Keys enumerates own keys, boxing primitives first.
func (v Value) Keys(vm *VM) ([]ObjectKey, error) {
	boxed, err := v.ToObject(vm)
	if err != nil {
		return nil, err
	}
	return boxed.AsObject().keys(), nil
}

// GetSlot reads an internal slot. Only Builtin and Custom objects carry
// slots; other kinds, and absent slot names, are engine bugs.
func (o *ObjectInfo) GetSlot(name string) Value {
	v, ok := o.slotTable()[name]
	if !ok {
		panic(fmt.Sprintf("missing internal slot %q on %s object", name, o.kind))
	}
	return v
}

// SetSlot writes an internal slot.
func (o *ObjectInfo) SetSlot(name string, v Value) {
	o.slotTable()[name] = v
}

// HasSlot reports whether the slot is present.
func (o *ObjectInfo) HasSlot(name string) bool {
	_, ok := o.slotTable()[name]
	return ok
}

func (o *ObjectInfo) slotTable() map[string]Value {
	if o.kind != KindBuiltin && o.kind != KindCustom {
		panic(fmt.Sprintf("internal slot access on %s object", o.kind))
	}
	if o.slots == nil {
		o.slots = make(map[string]Value)
	}
	return o.slots
}

// Primitive returns the boxed primitive of a wrapper object.
func (o *ObjectInfo) Primitive() Value {
	switch o.kind {
	case KindBoolean, KindNumber, KindString:
		return o.primitive
	}
	panic(fmt.Sprintf("Primitive on %s object", o.kind))
}

// Bytes returns the payload of a buffer object.
func (o *ObjectInfo) Bytes() []byte {
	if o.kind != KindBuffer {
		panic(fmt.Sprintf("Bytes on %s object", o.kind))
	}
	return o.buffer
}

// RegexSource returns the source text of a regex object.
func (o *ObjectInfo) RegexSource() string {
	if o.kind != KindRegex {
		panic(fmt.Sprintf("RegexSource on %s object", o.kind))
	}
	return o.regexSrc
}

// Pattern returns the compiled pattern of a regex object.
func (o *ObjectInfo) Pattern() *regexp2.Regexp {
	if o.kind != KindRegex {
		panic(fmt.Sprintf("Pattern on %s object", o.kind))
	}
	return o.regex
}

func (vm *VM) newBoxedObject(kind ObjectKind, proto Value, primitive Value) Value {
	o := newObjectInfo(kind, proto)
	o.primitive = primitive
	return ObjectValue(o)
}

// NewArray creates an array object holding items at ascending indexes.
func (vm *VM) NewArray(items ...Value) Value {
	o := newObjectInfo(KindArray, vm.Intrinsics.ArrayPrototype)
	for i, it := range items {
		o.properties.Set(IndexKey(i), it)
	}
	o.properties.Set(StringKey("length"), IntegerValue(len(items)))
	return ObjectValue(o)
}

// NewError creates an error-prototyped object carrying message.
func (vm *VM) NewError(msg string) Value {
	o := newObjectInfo(KindOrdinary, vm.Intrinsics.ErrorPrototype)
	o.properties.Set(StringKey("message"), NewString(msg))
	return ObjectValue(o)
}

// NewErrorf creates an error object with a formatted message.
func (vm *VM) NewErrorf(format string, args ...any) Value {
	return vm.NewError(fmt.Sprintf(format, args...))
}

// NewRegex compiles pattern and wraps it as a regex object. A pattern that
// does not compile is a script-level error.
func (vm *VM) NewRegex(pattern string) (Value, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return Null, vm.ThrowError("invalid regular expression: %v", err)
	}
	o := newObjectInfo(KindRegex, vm.Intrinsics.RegexPrototype)
	o.regex = re
	o.regexSrc = pattern
	return ObjectValue(o), nil
}

// NewBuffer wraps b as a buffer object. The slice is not copied.
func (vm *VM) NewBuffer(b []byte) Value {
	o := newObjectInfo(KindBuffer, vm.Intrinsics.ObjectPrototype)
	o.buffer = b
	return ObjectValue(o)
}
