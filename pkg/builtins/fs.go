package builtins

import (
	"fmt"
	"io"
	"os"
	"time"

	"skink/pkg/runtime"
	"skink/pkg/vm"
)

type fsResponseKind uint8

const (
	fsData fsResponseKind = iota
	fsMetadata
	fsExists
	fsSuccess
	fsFailure
)

// fsResponse carries one completed filesystem operation back to the run
// loop.
type fsResponse struct {
	kind   fsResponseKind
	data   string
	info   os.FileInfo
	exists bool
	errMsg string
}

// fsModule owns the response table its pool workers write into.
type fsModule struct {
	vm        *vm.VM
	responses *runtime.ResponseTable[fsResponse]
}

// FS builds the filesystem module. Every operation validates its
// arguments synchronously, then runs the blocking work on the reactor's
// worker pool and settles a promise on delivery.
func FS(v *vm.VM) *Module {
	m := &fsModule{vm: v, responses: runtime.NewResponseTable[fsResponse]()}
	return &Module{
		Name: "fs",
		Exports: map[string]vm.Value{
			"readFile":           v.NewBuiltinFunction(m.readFile),
			"writeFile":          v.NewBuiltinFunction(m.writeFile),
			"removeFile":         v.NewBuiltinFunction(m.removeFile),
			"getMetadata":        v.NewBuiltinFunction(m.getMetadata),
			"copy":               v.NewBuiltinFunction(m.copyFile),
			"move":               v.NewBuiltinFunction(m.move),
			"createSymbolicLink": v.NewBuiltinFunction(m.createSymbolicLink),
			"exists":             v.NewBuiltinFunction(m.exists),
			"createDirectory":    v.NewBuiltinFunction(m.createDirectory),
			"removeDirectory":    v.NewBuiltinFunction(m.removeDirectory),
		},
	}
}

// dispatch registers a token, hands work to the pool, and returns the
// promise the response settles. The worker stores its response before
// signaling readiness; delivery consumes it exactly once.
func (m *fsModule) dispatch(work func() fsResponse) (vm.Value, error) {
	promise, err := m.vm.NewPromiseCapability(m.vm.Intrinsics.Promise)
	if err != nil {
		return vm.Null, err
	}
	tok, rd := m.vm.Reactor().Register()
	m.vm.RegisterPromiseOp(tok, promise, func(v *vm.VM, p vm.Value) error {
		return m.settle(tok, p)
	})
	if err := m.vm.Reactor().Submit(func() {
		m.responses.Put(tok, work())
		rd.Ready()
	}); err != nil {
		return vm.Null, fmt.Errorf("fs: submit: %w", err)
	}
	return promise, nil
}

func (m *fsModule) settle(tok runtime.Token, promise vm.Value) error {
	response, ok := m.responses.Take(tok)
	if !ok {
		panic(fmt.Sprintf("fs: readiness for token %d with no response", tok))
	}
	v := m.vm
	switch response.kind {
	case fsData:
		return v.ResolveCapability(promise, vm.NewString(response.data))
	case fsMetadata:
		return v.ResolveCapability(promise, m.metadataObject(response.info))
	case fsExists:
		return v.ResolveCapability(promise, vm.BooleanValue(response.exists))
	case fsSuccess:
		return v.ResolveCapability(promise, vm.Null)
	case fsFailure:
		return v.RejectCapability(promise, v.NewError(response.errMsg))
	}
	panic(fmt.Sprintf("fs: unknown response kind %d", response.kind))
}

func (m *fsModule) stringArg(args []vm.Value, i int, what string) (string, error) {
	if i < len(args) && args[i].Type() == vm.TypeString {
		return args[i].AsString(), nil
	}
	return "", vm.Throw(m.vm.NewError(what + " must be a string"))
}

func failure(err error) fsResponse {
	return fsResponse{kind: fsFailure, errMsg: err.Error()}
}

// readFile(filename) resolves with the file's contents as a string.
func (m *fsModule) readFile(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	filename, err := m.stringArg(args, 0, "filename")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		data, err := os.ReadFile(filename)
		if err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsData, data: string(data)}
	})
}

// writeFile(filename, contents) resolves with null once written.
func (m *fsModule) writeFile(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	filename, err := m.stringArg(args, 0, "filename")
	if err != nil {
		return vm.Null, err
	}
	contents, err := m.stringArg(args, 1, "contents")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.WriteFile(filename, []byte(contents), 0o644); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// removeFile(filename) resolves with null once removed.
func (m *fsModule) removeFile(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	filename, err := m.stringArg(args, 0, "filename")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.Remove(filename); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// getMetadata(filename) resolves with a metadata object. Symlinks are
// inspected, not followed.
func (m *fsModule) getMetadata(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	filename, err := m.stringArg(args, 0, "filename")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		info, err := os.Lstat(filename)
		if err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsMetadata, info: info}
	})
}

// copy(from, to) copies contents and permissions.
func (m *fsModule) copyFile(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	from, err := m.stringArg(args, 0, "from")
	if err != nil {
		return vm.Null, err
	}
	to, err := m.stringArg(args, 1, "to")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := copyContents(from, to); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

func copyContents(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// move(from, to) renames the file.
func (m *fsModule) move(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	from, err := m.stringArg(args, 0, "from")
	if err != nil {
		return vm.Null, err
	}
	to, err := m.stringArg(args, 1, "to")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.Rename(from, to); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// createSymbolicLink(from, to) links to → from.
func (m *fsModule) createSymbolicLink(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	from, err := m.stringArg(args, 0, "from")
	if err != nil {
		return vm.Null, err
	}
	to, err := m.stringArg(args, 1, "to")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.Symlink(from, to); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// exists(filename) resolves with a boolean and never rejects.
func (m *fsModule) exists(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	filename, err := m.stringArg(args, 0, "filename")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		_, err := os.Lstat(filename)
		return fsResponse{kind: fsExists, exists: err == nil}
	})
}

// createDirectory(dirname) creates a single directory level.
func (m *fsModule) createDirectory(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	dirname, err := m.stringArg(args, 0, "dirname")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.Mkdir(dirname, 0o755); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// removeDirectory(dirname) removes an empty directory.
func (m *fsModule) removeDirectory(v *vm.VM, args []vm.Value, ctx *vm.CallContext) (vm.Value, error) {
	dirname, err := m.stringArg(args, 0, "dirname")
	if err != nil {
		return vm.Null, err
	}
	return m.dispatch(func() fsResponse {
		if err := os.Remove(dirname); err != nil {
			return failure(err)
		}
		return fsResponse{kind: fsSuccess}
	})
}

// metadataObject mirrors a stat result into a script object.
func (m *fsModule) metadataObject(info os.FileInfo) vm.Value {
	v := m.vm
	kind := "file"
	switch {
	case info.IsDir():
		kind = "directory"
	case info.Mode()&os.ModeSymlink != 0:
		kind = "symlink"
	}
	atime, mtime, ctime := statTimes(info)

	permissions := vm.NewObject(v.Intrinsics.ObjectPrototype)
	permissions.AsObject().DefineOwn(vm.StringKey("read"), vm.BooleanValue(info.Mode().Perm()&0o400 != 0))

	md := vm.NewObject(v.Intrinsics.ObjectPrototype)
	mo := md.AsObject()
	mo.DefineOwn(vm.StringKey("type"), vm.NewString(kind))
	mo.DefineOwn(vm.StringKey("size"), vm.NumberValue(float64(info.Size())))
	mo.DefineOwn(vm.StringKey("modifiedAt"), msValue(mtime))
	mo.DefineOwn(vm.StringKey("accessedAt"), msValue(atime))
	mo.DefineOwn(vm.StringKey("createdAt"), msValue(ctime))
	mo.DefineOwn(vm.StringKey("permissions"), permissions)
	return md
}

func msValue(t time.Time) vm.Value {
	return vm.NumberValue(float64(t.UnixMilli()))
}
