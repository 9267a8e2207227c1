// Package vfs implements the virtual-filesystem backbone: path resolution
// across a uniform fsops/file_ops table, per-filesystem and per-handle
// shared/exclusive locks, and the fstat/stat call paths built on them.
package vfs

import (
	"sync"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

// Inode is an opaque per-driver inode identity — a *fat.Entry for the FAT
// driver, a *ramfs.Inode for ramfs. The core only ever threads it back
// through FSOps; it never inspects one directly.
type Inode = any

// FileOps is the per-handle operation set a file handle exposes: read,
// write, seek, ioctl, fcntl. Both *fat.Handle and *ramfs.Handle implement it
// directly, with no adapter needed.
type FileOps interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(off int64, whence int) (int64, error)
	Ioctl(req uint32, arg uintptr) error
	Fcntl(cmd int, arg uintptr) (int, error)
}

// FSFlag is the fs-level bit flag set a mounted filesystem accepts.
type FSFlag uint32

const (
	// FSReadWrite marks a filesystem as mutable. Its absence means every
	// Write call fails with EROFS regardless of what the driver itself
	// would do.
	FSReadWrite FSFlag = 1 << 0
	// FSSkipDotEntries is RQ_DE_SKIP (the FAT mount sets it). GetDents64
	// does not read it: it never adds "." or ".." records of its own for
	// any filesystem, and passes through whatever entries the driver
	// reports.
	FSSkipDotEntries FSFlag = 1 << 1
)

// FSOps is the per-filesystem operation table: entry resolution,
// open/close/dup, directory iteration, and stat. Mutators (unlink, mkdir,
// …) are optional and discovered via the Unlinker/Mkdirer/… interfaces
// below, so a driver that doesn't support a given mutation need not
// implement a stub method for it.
type FSOps interface {
	GetEntry(parent Inode, name string) (Inode, error)
	Open(ino Inode) (FileOps, error)
	Close(h FileOps) error
	Dup(h FileOps) (FileOps, error)
	GetDents(dir Inode, cb func(ino uint64, dtype uint8, name string) bool) error
	Stat(ino Inode) (Stat64, error)
}

// Unlinker, Mkdirer and Rmdirer are the optional namespace-mutation fsops.
// A driver that implements none of them is read-only at the namespace
// level even if FSReadWrite is set on data it already holds.
type Unlinker interface {
	Unlink(dir Inode, name string) error
}

type Mkdirer interface {
	Mkdir(dir Inode, name string) (Inode, error)
}

type Rmdirer interface {
	Rmdir(dir Inode, name string) error
}

// Creater and Symlinker extend the mutator set to regular-file and
// symlink creation, for drivers (ramfs) that support a full writable
// namespace rather than just directory add/remove.
type Creater interface {
	Create(dir Inode, name string, mode uint32) (Inode, error)
}

type Symlinker interface {
	Symlink(dir Inode, name, target string) (Inode, error)
	Readlink(ino Inode) (string, error)
}

// FS is a mounted filesystem record: name, flags, device id, the fsops
// table, and the fs-level shared/exclusive lock pair.
type FS struct {
	Name     string
	Flags    FSFlag
	DeviceID uint64
	Ops      FSOps
	Root     Inode

	lock sync.RWMutex
}

// New constructs a mounted FS. Callers that register a filesystem into a
// namespace should bracket that registration with ExLock/ExUnlock
// themselves; New does not take the lock since there is nothing else that
// could yet be racing a freshly constructed FS.
func New(name string, flags FSFlag, deviceID uint64, ops FSOps, root Inode) *FS {
	return &FS{Name: name, Flags: flags, DeviceID: deviceID, Ops: ops, Root: root}
}

func (fs *FS) ReadOnly() bool { return fs.Flags&FSReadWrite == 0 }

// ExLock/ExUnlock and ShLock/ShUnlock are the filesystem-level exclusive and
// shared locks. For a read-only FS these still serialize concurrent
// mounts/lookups: taking a real RWMutex here costs nothing observable and
// keeps `go test -race` clean across goroutine tasks.
func (fs *FS) ExLock()   { fs.lock.Lock() }
func (fs *FS) ExUnlock() { fs.lock.Unlock() }
func (fs *FS) ShLock()   { fs.lock.RLock() }
func (fs *FS) ShUnlock() { fs.lock.RUnlock() }

// Handle is an open file/directory handle: back-pointer to fs, the resolved
// inode, the driver's file_ops, mutable flags, and (for directories) the
// getdents64 cursor.
type Handle struct {
	FS    *FS
	Inode Inode
	Ops   FileOps
	Flags int
	Pos   uint32 // getdents64 cursor; meaningless for a file handle

	fileLock sync.RWMutex
}

func (h *Handle) ExLock()   { h.fileLock.Lock() }
func (h *Handle) ExUnlock() { h.fileLock.Unlock() }
func (h *Handle) ShLock()   { h.fileLock.RLock() }
func (h *Handle) ShUnlock() { h.fileLock.RUnlock() }

// Read acquires the per-file shared lock.
func (h *Handle) Read(buf []byte) (int, error) {
	h.ShLock()
	defer h.ShUnlock()

	return h.Ops.Read(buf)
}

// Write acquires the per-file exclusive lock, after checking the
// filesystem-level read-only flag up front: a read-only FS refuses the
// write before ever reaching the driver.
func (h *Handle) Write(buf []byte) (int, error) {
	if h.FS.ReadOnly() {
		return 0, kerrno.Wrap(kerrno.EROFS, "vfs.Handle.Write", nil)
	}

	h.ExLock()
	defer h.ExUnlock()

	return h.Ops.Write(buf)
}

func (h *Handle) Seek(off int64, whence int) (int64, error) { return h.Ops.Seek(off, whence) }
func (h *Handle) Ioctl(req uint32, arg uintptr) error       { return h.Ops.Ioctl(req, arg) }
func (h *Handle) Fcntl(cmd int, arg uintptr) (int, error)   { return h.Ops.Fcntl(cmd, arg) }

// resolve walks path components from root via GetEntry under the caller's
// chosen fs lock discipline.
func (fs *FS) resolve(path []string) (Inode, error) {
	ino := fs.Root

	for _, comp := range path {
		if comp == "" {
			continue
		}

		var err error

		ino, err = fs.Ops.GetEntry(ino, comp)
		if err != nil {
			return nil, err
		}
	}

	return ino, nil
}

// Open resolves path and opens the terminal inode, taking the shared lock
// around the pure lookup: metadata lookups use the shared lock since the
// open itself does not mutate the namespace.
func (fs *FS) Open(path []string) (*Handle, error) {
	fs.ShLock()
	ino, err := fs.resolve(path)
	fs.ShUnlock()

	if err != nil {
		return nil, err
	}

	ops, err := fs.Ops.Open(ino)
	if err != nil {
		return nil, err
	}

	return &Handle{FS: fs, Inode: ino, Ops: ops}, nil
}

// Close releases a handle's driver-level resources.
func (fs *FS) Close(h *Handle) error { return fs.Ops.Close(h.Ops) }

// Unlink dispatches to the driver's Unlinker, if it implements one, under
// the filesystem-level exclusive lock: namespace mutation always takes
// fs_exlock, the same discipline mount/unmount use. A driver with no
// Unlinker (or an FS not marked FSReadWrite) reports EROFS.
func (fs *FS) Unlink(dir Inode, name string) error {
	if fs.ReadOnly() {
		return kerrno.Wrap(kerrno.EROFS, "vfs.Unlink", nil)
	}

	u, ok := fs.Ops.(Unlinker)
	if !ok {
		return kerrno.Wrap(kerrno.EROFS, "vfs.Unlink", nil)
	}

	fs.ExLock()
	defer fs.ExUnlock()

	return u.Unlink(dir, name)
}

// Mkdir dispatches to the driver's Mkdirer, if it implements one, under the
// filesystem-level exclusive lock.
func (fs *FS) Mkdir(dir Inode, name string) (Inode, error) {
	if fs.ReadOnly() {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Mkdir", nil)
	}

	m, ok := fs.Ops.(Mkdirer)
	if !ok {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Mkdir", nil)
	}

	fs.ExLock()
	defer fs.ExUnlock()

	return m.Mkdir(dir, name)
}

// Rmdir dispatches to the driver's Rmdirer, if it implements one, under the
// filesystem-level exclusive lock.
func (fs *FS) Rmdir(dir Inode, name string) error {
	if fs.ReadOnly() {
		return kerrno.Wrap(kerrno.EROFS, "vfs.Rmdir", nil)
	}

	r, ok := fs.Ops.(Rmdirer)
	if !ok {
		return kerrno.Wrap(kerrno.EROFS, "vfs.Rmdir", nil)
	}

	fs.ExLock()
	defer fs.ExUnlock()

	return r.Rmdir(dir, name)
}

// Create dispatches to the driver's Creater, if it implements one, under
// the filesystem-level exclusive lock.
func (fs *FS) Create(dir Inode, name string, mode uint32) (Inode, error) {
	if fs.ReadOnly() {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Create", nil)
	}

	c, ok := fs.Ops.(Creater)
	if !ok {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Create", nil)
	}

	fs.ExLock()
	defer fs.ExUnlock()

	return c.Create(dir, name, mode)
}

// Symlink dispatches to the driver's Symlinker, if it implements one, under
// the filesystem-level exclusive lock.
func (fs *FS) Symlink(dir Inode, name, target string) (Inode, error) {
	if fs.ReadOnly() {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Symlink", nil)
	}

	s, ok := fs.Ops.(Symlinker)
	if !ok {
		return nil, kerrno.Wrap(kerrno.EROFS, "vfs.Symlink", nil)
	}

	fs.ExLock()
	defer fs.ExUnlock()

	return s.Symlink(dir, name, target)
}

// Readlink dispatches to the driver's Symlinker, if it implements one,
// under the filesystem-level shared lock: reading a link target does not
// mutate the namespace.
func (fs *FS) Readlink(ino Inode) (string, error) {
	s, ok := fs.Ops.(Symlinker)
	if !ok {
		return "", kerrno.Wrap(kerrno.EINVAL, "vfs.Readlink", nil)
	}

	fs.ShLock()
	defer fs.ShUnlock()

	return s.Readlink(ino)
}

// FStat implements the fstat path: fs_shlock → driver fstat → fs_shunlock.
func (fs *FS) FStat(h *Handle) (Stat64, error) {
	fs.ShLock()
	defer fs.ShUnlock()

	return fs.Ops.Stat(h.Inode)
}

// Stat implements the stat path: open(O_RDONLY) → fstat → close. It
// deliberately returns the fstat result even if Close fails afterward,
// matching POSIX stat's resilience to close errors.
func (fs *FS) Stat(path []string) (Stat64, error) {
	h, err := fs.Open(path)
	if err != nil {
		return Stat64{}, err
	}

	st, statErr := fs.FStat(h)
	_ = fs.Close(h)

	if statErr != nil {
		return Stat64{}, statErr
	}

	return st, nil
}
