package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Inspect renders v for diagnostics: quoted strings, recursive object
// literals with cycle protection, and dedicated forms for the non-plain
// kinds. Error-prototyped objects render through their own toString.
func (vm *VM) Inspect(v Value) string {
	return vm.inspect(v, make(map[*ObjectInfo]bool))
}

func (vm *VM) inspect(v Value, seen map[*ObjectInfo]bool) string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return strconv.Quote(v.str)
	case TypeSymbol:
		return v.AsSymbol().displayString()
	case TypeTuple:
		items := v.AsTuple()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = vm.inspect(it, seen)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TypeEmpty:
		return "<empty>"
	case TypeList:
		return fmt.Sprintf("<list %d>", v.AsList().Len())
	case TypeContinuation:
		return "<continuation " + v.AsContinuation().state.String() + ">"
	case TypeIterator:
		return "<iterator>"
	case TypeObject:
		return vm.inspectObject(v, seen)
	}
	return "<unknown>"
}

func (vm *VM) inspectObject(v Value, seen map[*ObjectInfo]bool) string {
	o := v.AsObject()
	if seen[o] {
		return "[Circular]"
	}
	seen[o] = true
	defer delete(seen, o)

	switch o.kind {
	case KindFunction:
		if o.fn.Name != "" {
			return "[Function " + o.fn.Name + "]"
		}
		return "[Function]"
	case KindBuiltin:
		return "[Function]"
	case KindRegex:
		return "/" + o.regexSrc + "/"
	case KindBuffer:
		return fmt.Sprintf("[Buffer %d]", len(o.buffer))
	case KindBoolean:
		return "[Boolean: " + vm.inspect(o.primitive, seen) + "]"
	case KindNumber:
		return "[Number: " + vm.inspect(o.primitive, seen) + "]"
	case KindString:
		return "[String: " + vm.inspect(o.primitive, seen) + "]"
	case KindPromise:
		return "[Promise " + o.promise.State.String() + "]"
	case KindGenerator:
		return "[Generator " + o.generator.Context.AsContinuation().state.String() + "]"
	case KindArray:
		parts := []string{}
		for _, key := range o.keys() {
			if key.kind != keyIndex {
				continue
			}
			el, _ := o.properties.Get(key)
			parts = append(parts, vm.inspect(el, seen))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}

	if vm.isErrorObject(v) {
		if s, err := vm.errorText(v); err == nil {
			return s
		}
	}

	keys := o.keys()
	if len(keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		val, _ := o.properties.Get(key)
		parts[i] = key.String() + ": " + vm.inspect(val, seen)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// isErrorObject walks the prototype chain looking for the intrinsic error
// prototype.
func (vm *VM) isErrorObject(v Value) bool {
	errProto := vm.Intrinsics.ErrorPrototype.AsObject()
	for cur := v; cur.typ == TypeObject; cur = cur.AsObject().prototype {
		if cur.AsObject() == errProto {
			return true
		}
	}
	return false
}

func (vm *VM) errorText(v Value) (string, error) {
	toString, err := v.Get(vm, StringKey("toString"))
	if err != nil {
		return "", err
	}
	s, err := toString.Call(vm, v, nil)
	if err != nil {
		return "", err
	}
	if s.typ != TypeString {
		return "", fmt.Errorf("toString returned a %s", s.typ)
	}
	return s.AsString(), nil
}

// describe is the engine-free shallow rendering used where no VM is at
// hand (thrown error text).
func describe(v Value) string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return strconv.Quote(v.str)
	case TypeSymbol:
		return v.AsSymbol().displayString()
	case TypeTuple:
		return fmt.Sprintf("<tuple %d>", len(v.AsTuple()))
	case TypeObject:
		return "<" + v.AsObject().kind.String() + ">"
	}
	return "<" + v.typ.String() + ">"
}
