// Package builtins provides the host modules a script environment
// imports. Each module is a named bag of builtin functions wired to one
// engine; the embedder's import machinery decides how they surface.
package builtins

import "skink/pkg/vm"

// Module is one named export set.
type Module struct {
	Name    string
	Exports map[string]vm.Value
}

// All builds every module against v, keyed by module name.
func All(v *vm.VM) map[string]*Module {
	modules := []*Module{FS(v), Timers(v)}
	out := make(map[string]*Module, len(modules))
	for _, m := range modules {
		out[m.Name] = m
	}
	return out
}
