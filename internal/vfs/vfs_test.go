package vfs_test

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
	"github.com/sparrowkernel/sparrow/internal/vfs"
	"github.com/sparrowkernel/sparrow/internal/vfs/vfsmock"
)

// mutableOps wraps a MockFSOps and adds the namespace-mutation methods, so
// it satisfies Unlinker/Mkdirer/Rmdirer/Creater/Symlinker in addition to
// FSOps, the way ramfsFS does for a real driver.
type mutableOps struct {
	*vfsmock.MockFSOps

	unlinkCalled  bool
	mkdirCalled   bool
	rmdirCalled   bool
	createCalled  bool
	symlinkCalled bool
}

func (m *mutableOps) Unlink(dir vfs.Inode, name string) error {
	m.unlinkCalled = true
	return nil
}

func (m *mutableOps) Mkdir(dir vfs.Inode, name string) (vfs.Inode, error) {
	m.mkdirCalled = true
	return "new-dir", nil
}

func (m *mutableOps) Rmdir(dir vfs.Inode, name string) error {
	m.rmdirCalled = true
	return nil
}

func (m *mutableOps) Create(dir vfs.Inode, name string, mode uint32) (vfs.Inode, error) {
	m.createCalled = true
	return "new-file", nil
}

func (m *mutableOps) Symlink(dir vfs.Inode, name, target string) (vfs.Inode, error) {
	m.symlinkCalled = true
	return "new-link", nil
}

func (m *mutableOps) Readlink(ino vfs.Inode) (string, error) {
	return "target", nil
}

// TestMutatorsRejectReadOnlyFS covers the case where the mounted FS itself
// carries no vfs.FSReadWrite flag: every mutator must fail with EROFS before
// ever reaching the driver, the same policy Handle.Write already enforces.
func TestMutatorsRejectReadOnlyFS(t *testing.T) {
	ctrl := gomock.NewController(t)
	ops := &mutableOps{MockFSOps: vfsmock.NewMockFSOps(ctrl)}
	fsys := vfs.New("ro", 0, 1, ops, nil)

	if err := fsys.Unlink(nil, "x"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Unlink on read-only FS = %v, want EROFS", err)
	}

	if _, err := fsys.Mkdir(nil, "x"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Mkdir on read-only FS = %v, want EROFS", err)
	}

	if err := fsys.Rmdir(nil, "x"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Rmdir on read-only FS = %v, want EROFS", err)
	}

	if _, err := fsys.Create(nil, "x", 0o644); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Create on read-only FS = %v, want EROFS", err)
	}

	if _, err := fsys.Symlink(nil, "x", "y"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Symlink on read-only FS = %v, want EROFS", err)
	}

	if ops.unlinkCalled || ops.mkdirCalled || ops.rmdirCalled || ops.createCalled || ops.symlinkCalled {
		t.Fatalf("driver mutator invoked despite read-only FS")
	}
}

// TestMutatorsRejectUnsupportedDriver covers a writable FS whose driver
// implements none of the optional mutator interfaces (the FAT driver's
// situation): every mutator must fail with EROFS via the type-assertion
// miss, not panic or silently no-op.
func TestMutatorsRejectUnsupportedDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	ops := vfsmock.NewMockFSOps(ctrl)
	fsys := vfs.New("rw-readonly-driver", vfs.FSReadWrite, 1, ops, nil)

	if err := fsys.Unlink(nil, "x"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Unlink against a driver with no Unlinker = %v, want EROFS", err)
	}

	if _, err := fsys.Mkdir(nil, "x"); !errors.Is(err, kerrno.EROFS) {
		t.Fatalf("Mkdir against a driver with no Mkdirer = %v, want EROFS", err)
	}
}

// TestMutatorsDispatchToDriver covers the success path: a writable FS whose
// driver implements the optional mutator interfaces reaches the driver
// method under the filesystem-level exclusive lock.
func TestMutatorsDispatchToDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	ops := &mutableOps{MockFSOps: vfsmock.NewMockFSOps(ctrl)}
	fsys := vfs.New("rw", vfs.FSReadWrite, 1, ops, nil)

	if err := fsys.Unlink(nil, "a"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if !ops.unlinkCalled {
		t.Fatalf("Unlink did not reach the driver")
	}

	ino, err := fsys.Mkdir(nil, "b")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if !ops.mkdirCalled || ino != "new-dir" {
		t.Fatalf("Mkdir did not reach the driver, got ino=%v", ino)
	}

	if err := fsys.Rmdir(nil, "b"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
	if !ops.rmdirCalled {
		t.Fatalf("Rmdir did not reach the driver")
	}

	ino, err = fsys.Create(nil, "c", 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ops.createCalled || ino != "new-file" {
		t.Fatalf("Create did not reach the driver, got ino=%v", ino)
	}

	ino, err = fsys.Symlink(nil, "d", "target")
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if !ops.symlinkCalled || ino != "new-link" {
		t.Fatalf("Symlink did not reach the driver, got ino=%v", ino)
	}

	target, err := fsys.Readlink("d")
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "target" {
		t.Fatalf("Readlink = %q, want %q", target, "target")
	}
}
