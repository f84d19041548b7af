package builtins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skink/pkg/vm"
)

func TestReadWriteRoundtrip(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	path := filepath.Join(t.TempDir(), "note.txt")

	p, err := callExport(t, v, m, "writeFile", vm.NewString(path), vm.NewString("hello fs"))
	if err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}
	if got := resolved(t, v, p); !got.IsNull() {
		t.Errorf("Expected null from writeFile, got %s", v.Inspect(got))
	}

	p, err = callExport(t, v, m, "readFile", vm.NewString(path))
	if err != nil {
		t.Fatalf("readFile failed: %v", err)
	}
	got := resolved(t, v, p)
	if !got.Equals(vm.NewString("hello fs")) {
		t.Errorf("Contents mismatch, got %s", v.Inspect(got))
	}
}

func TestReadFileMissingRejects(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	path := filepath.Join(t.TempDir(), "nope.txt")

	p, err := callExport(t, v, m, "readFile", vm.NewString(path))
	if err != nil {
		t.Fatalf("readFile failed: %v", err)
	}
	msg := rejectedMessage(t, v, p)
	if !strings.Contains(msg, "no such file") {
		t.Errorf("Rejection message mismatch, got %q", msg)
	}
}

func TestArgumentValidationIsSynchronous(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	str := vm.NewString("some-path")

	tests := []struct {
		name string
		op   string
		args []vm.Value
		want string
	}{
		{"ReadFileNoArgs", "readFile", nil, "filename must be a string"},
		{"ReadFileNumber", "readFile", []vm.Value{vm.IntegerValue(1)}, "filename must be a string"},
		{"WriteFileNoArgs", "writeFile", nil, "filename must be a string"},
		{"WriteFileNoContents", "writeFile", []vm.Value{str}, "contents must be a string"},
		{"RemoveFileNoArgs", "removeFile", nil, "filename must be a string"},
		{"MetadataNoArgs", "getMetadata", nil, "filename must be a string"},
		{"CopyNoArgs", "copy", nil, "from must be a string"},
		{"CopyNoTarget", "copy", []vm.Value{str}, "to must be a string"},
		{"MoveNoArgs", "move", nil, "from must be a string"},
		{"MoveNoTarget", "move", []vm.Value{str}, "to must be a string"},
		{"SymlinkNoTarget", "createSymbolicLink", []vm.Value{str}, "to must be a string"},
		{"ExistsNoArgs", "exists", nil, "filename must be a string"},
		{"CreateDirectoryNoArgs", "createDirectory", nil, "dirname must be a string"},
		{"RemoveDirectoryNoArgs", "removeDirectory", nil, "dirname must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callExport(t, v, m, tt.op, tt.args...)
			expectThrown(t, v, err, tt.want)
		})
	}
	// Validation happens before anything reaches the reactor.
	if v.PendingOps() != 0 {
		t.Errorf("Expected no pending operations, got %d", v.PendingOps())
	}
}

func TestExistsNeverRejects(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()
	present := filepath.Join(dir, "here.txt")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := callExport(t, v, m, "exists", vm.NewString(present))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if got := resolved(t, v, p); !got.Equals(vm.True) {
		t.Errorf("Expected true for an existing file, got %s", v.Inspect(got))
	}

	p, err = callExport(t, v, m, "exists", vm.NewString(filepath.Join(dir, "absent.txt")))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if got := resolved(t, v, p); !got.Equals(vm.False) {
		t.Errorf("Expected false for a missing file, got %s", v.Inspect(got))
	}
}

func TestMetadataFields(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	path := filepath.Join(t.TempDir(), "meta.txt")
	if err := os.WriteFile(path, []byte("twelve bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	p, cerr := callExport(t, v, m, "getMetadata", vm.NewString(path))
	if cerr != nil {
		t.Fatalf("getMetadata failed: %v", cerr)
	}
	md := resolved(t, v, p)

	field := func(name string) vm.Value {
		got, gerr := md.Get(v, vm.StringKey(name))
		if gerr != nil {
			t.Fatalf("Reading %s failed: %v", name, gerr)
		}
		return got
	}
	if got := field("type"); !got.Equals(vm.NewString("file")) {
		t.Errorf("type mismatch, got %s", v.Inspect(got))
	}
	if got := field("size"); !got.Equals(vm.IntegerValue(12)) {
		t.Errorf("size mismatch, got %s", v.Inspect(got))
	}
	if got := field("modifiedAt"); !got.Equals(vm.NumberValue(float64(info.ModTime().UnixMilli()))) {
		t.Errorf("modifiedAt mismatch, got %s", v.Inspect(got))
	}
	for _, name := range []string{"accessedAt", "createdAt"} {
		if got := field(name); got.Type() != vm.TypeNumber || got.AsNumber() <= 0 {
			t.Errorf("%s mismatch, got %s", name, v.Inspect(got))
		}
	}
	perms := field("permissions")
	read, gerr := perms.Get(v, vm.StringKey("read"))
	if gerr != nil {
		t.Fatalf("Reading read failed: %v", gerr)
	}
	if !read.Equals(vm.True) {
		t.Errorf("Expected a readable mode, got %s", v.Inspect(read))
	}
}

func TestMetadataReportsUnreadableMode(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	path := filepath.Join(t.TempDir(), "locked.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Chmod(path, 0o200); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	p, err := callExport(t, v, m, "getMetadata", vm.NewString(path))
	if err != nil {
		t.Fatalf("getMetadata failed: %v", err)
	}
	md := resolved(t, v, p)
	perms, gerr := md.Get(v, vm.StringKey("permissions"))
	if gerr != nil {
		t.Fatalf("Reading permissions failed: %v", gerr)
	}
	read, gerr := perms.Get(v, vm.StringKey("read"))
	if gerr != nil {
		t.Fatalf("Reading read failed: %v", gerr)
	}
	if !read.Equals(vm.False) {
		t.Errorf("Expected read to mirror the owner bit, got %s", v.Inspect(read))
	}
}

func TestMetadataKinds(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(file, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	kinds := []struct {
		path string
		want string
	}{
		{dir, "directory"},
		{file, "file"},
		{link, "symlink"},
	}
	for _, k := range kinds {
		p, err := callExport(t, v, m, "getMetadata", vm.NewString(k.path))
		if err != nil {
			t.Fatalf("getMetadata failed: %v", err)
		}
		md := resolved(t, v, p)
		got, gerr := md.Get(v, vm.StringKey("type"))
		if gerr != nil {
			t.Fatalf("Reading type failed: %v", gerr)
		}
		if !got.Equals(vm.NewString(k.want)) {
			t.Errorf("type mismatch for %s. Expected %q, got %s", k.path, k.want, v.Inspect(got))
		}
	}
}

func TestCopyPreservesContentsAndMode(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := callExport(t, v, m, "copy", vm.NewString(src), vm.NewString(dst))
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	resolved(t, v, p)

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Contents mismatch, got %q", data)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Mode mismatch. Expected 0600, got %o", info.Mode().Perm())
	}
}

func TestMoveRenames(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()
	src := filepath.Join(dir, "old.txt")
	dst := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(src, []byte("moving"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := callExport(t, v, m, "move", vm.NewString(src), vm.NewString(dst))
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	resolved(t, v, p)

	if _, err := os.Lstat(src); !os.IsNotExist(err) {
		t.Errorf("Expected the source to be gone, got %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "moving" {
		t.Errorf("Contents mismatch, got %q", data)
	}
}

func TestRemoveFile(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	path := filepath.Join(t.TempDir(), "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := callExport(t, v, m, "removeFile", vm.NewString(path))
	if err != nil {
		t.Fatalf("removeFile failed: %v", err)
	}
	resolved(t, v, p)
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("Expected the file to be gone, got %v", err)
	}
}

func TestDirectoryLifecycle(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := filepath.Join(t.TempDir(), "sub")

	p, err := callExport(t, v, m, "createDirectory", vm.NewString(dir))
	if err != nil {
		t.Fatalf("createDirectory failed: %v", err)
	}
	resolved(t, v, p)
	info, serr := os.Stat(dir)
	if serr != nil || !info.IsDir() {
		t.Fatalf("Expected a directory, got %v (err %v)", info, serr)
	}

	// A populated directory refuses removal.
	blocker := filepath.Join(dir, "blocker.txt")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	p, err = callExport(t, v, m, "removeDirectory", vm.NewString(dir))
	if err != nil {
		t.Fatalf("removeDirectory failed: %v", err)
	}
	if msg := rejectedMessage(t, v, p); !strings.Contains(msg, "not empty") {
		t.Errorf("Rejection message mismatch, got %q", msg)
	}

	if err := os.Remove(blocker); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	p, err = callExport(t, v, m, "removeDirectory", vm.NewString(dir))
	if err != nil {
		t.Fatalf("removeDirectory failed: %v", err)
	}
	resolved(t, v, p)
	if _, err := os.Lstat(dir); !os.IsNotExist(err) {
		t.Errorf("Expected the directory to be gone, got %v", err)
	}
}

func TestCreateSymbolicLink(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	link := filepath.Join(dir, "alias")
	if err := os.WriteFile(target, []byte("through the link"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := callExport(t, v, m, "createSymbolicLink", vm.NewString(target), vm.NewString(link))
	if err != nil {
		t.Fatalf("createSymbolicLink failed: %v", err)
	}
	resolved(t, v, p)

	dest, rerr := os.Readlink(link)
	if rerr != nil {
		t.Fatalf("Readlink failed: %v", rerr)
	}
	if dest != target {
		t.Errorf("Link destination mismatch. Expected %q, got %q", target, dest)
	}

	p, err = callExport(t, v, m, "readFile", vm.NewString(link))
	if err != nil {
		t.Fatalf("readFile failed: %v", err)
	}
	if got := resolved(t, v, p); !got.Equals(vm.NewString("through the link")) {
		t.Errorf("Expected reads to follow the link, got %s", v.Inspect(got))
	}
}

func TestConcurrentOperationsSettleInOneRun(t *testing.T) {
	v := newTestVM(t)
	m := FS(v)
	dir := t.TempDir()

	var promises []vm.Value
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p, err := callExport(t, v, m, "writeFile",
			vm.NewString(filepath.Join(dir, name)), vm.NewString(name))
		if err != nil {
			t.Fatalf("writeFile failed: %v", err)
		}
		promises = append(promises, p)
	}

	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, p := range promises {
		data := vm.PromiseDataOf(p)
		if data.State != vm.PromiseFulfilled {
			t.Errorf("Promise %d not fulfilled: %v", i, data.State)
		}
	}
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || string(data) != name {
			t.Errorf("File %s mismatch: %q (err %v)", name, data, err)
		}
	}
}
