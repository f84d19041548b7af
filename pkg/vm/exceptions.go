package vm

import "errors"

// thrown carries a script-level exception value through Go error returns.
// Engine-contract violations panic instead; the two channels never mix.
type thrown struct {
	value Value
}

func (t *thrown) Error() string {
	if t.value.typ == TypeObject {
		if msg := t.value.AsObject().get(StringKey("message")); msg.typ == TypeString {
			return "uncaught exception: " + msg.AsString()
		}
	}
	return "uncaught exception: " + describe(t.value)
}

// Throw wraps a script value for transport through an error return.
func Throw(v Value) error { return &thrown{value: v} }

// ThrownValue unwraps an error produced by Throw. The second return is
// false for plain Go errors, which signal engine-level failures.
func ThrownValue(err error) (Value, bool) {
	var t *thrown
	if errors.As(err, &t) {
		return t.value, true
	}
	return Null, false
}

// ThrowError builds an error object with a formatted message and wraps it
// for throwing.
func (vm *VM) ThrowError(format string, args ...any) error {
	return Throw(vm.NewErrorf(format, args...))
}
