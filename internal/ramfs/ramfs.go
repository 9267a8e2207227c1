// Package ramfs implements a writable in-memory filesystem over the
// inode/entry/block data model named in the core's ramfs module: directory
// entries and file blocks each live in their own balanced tree per inode,
// keyed by name and by page offset respectively.
package ramfs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

// PageSize is the block granularity ramfs allocates file content in; block
// offsets are always a multiple of it.
const PageSize = 4096

// Type is an inode's kind.
type Type int

const (
	FileType Type = iota
	DirType
	SymlinkType
)

// block is a ramfs_block: a page-sized region of a file's content, keyed by
// its offset in the blocks tree.
type block struct {
	data []byte
}

// Inode is a ramfs_inode: ref-counted, with a type-dependent payload (a
// blocks tree for files, an entries tree for directories, or a bare path
// string for symlinks) guarded by a write-preferring reader/writer lock.
type Inode struct {
	fs   *FS
	ino  uint64
	typ  Type
	mode uint32

	lock *rwLock

	refcount int32
	nlink    int32

	size   uint64
	blocks *rbTree[uint64, *block] // FileType

	entries *rbTree[string, *Inode] // DirType
	parent  *Inode

	symlink string // SymlinkType

	ctime time.Time
	mtime time.Time
}

// Type reports the inode's kind.
func (n *Inode) Type() Type { return n.typ }

// Ino reports the inode's logical number.
func (n *Inode) Ino() uint64 { return n.ino }

// Retain increments the inode's live-handle count.
func (n *Inode) Retain() { atomic.AddInt32(&n.refcount, 1) }

// Release decrements the inode's live-handle count, freeing its blocks and
// detaching it once both nlink and refcount reach zero.
func (n *Inode) Release() {
	if atomic.AddInt32(&n.refcount, -1) != 0 {
		return
	}

	if atomic.LoadInt32(&n.nlink) == 0 {
		n.blocks = nil
	}
}

// FS is a mounted ramfs instance: an inode-number allocator plus the root
// directory inode, with a filesystem-level lock for mount/unmount and
// namespace-wide mutation per the VFS core's fs_exlock/shlock pair.
type FS struct {
	fsLock sync.RWMutex

	nextIno  uint64
	deviceID uint64
	root     *Inode
}

// New mounts an empty ramfs instance.
func New(deviceID uint64) *FS {
	fs := &FS{deviceID: deviceID, nextIno: 1}

	now := time.Now()
	fs.root = &Inode{
		fs: fs, ino: fs.nextIno, typ: DirType, mode: 0o755,
		lock: newRWLock(), nlink: 1,
		entries: newRBTree[string, *Inode](),
		ctime:   now, mtime: now,
	}
	fs.nextIno++

	return fs
}

// Root returns the root directory inode.
func (fs *FS) Root() *Inode { return fs.root }

// DeviceID returns the opaque device id stamped into stat results.
func (fs *FS) DeviceID() uint64 { return fs.deviceID }

// FSExLock acquires the filesystem-level exclusive lock (mount/unmount,
// namespace mutation).
func (fs *FS) FSExLock() { fs.fsLock.Lock() }

// FSExUnlock releases the filesystem-level exclusive lock.
func (fs *FS) FSExUnlock() { fs.fsLock.Unlock() }

// FSShLock acquires the filesystem-level shared lock (metadata lookups).
func (fs *FS) FSShLock() { fs.fsLock.RLock() }

// FSShUnlock releases the filesystem-level shared lock.
func (fs *FS) FSShUnlock() { fs.fsLock.RUnlock() }

func (fs *FS) allocIno() uint64 { return atomic.AddUint64(&fs.nextIno, 1) - 1 }

// GetEntry resolves name under parent, defaulting to the root when parent
// is nil. Lookup takes the filesystem-wide shared lock plus parent's own
// shared lock: the former serializes against any concurrent namespace
// mutation anywhere in the tree, the latter against concurrent inserts
// into this specific directory.
func (fs *FS) GetEntry(parent *Inode, name string) (*Inode, error) {
	if parent == nil {
		parent = fs.root
	}

	if parent.typ != DirType {
		return nil, kerrno.Wrap(kerrno.ENOTDIR, "ramfs.GetEntry", nil)
	}

	fs.FSShLock()
	defer fs.FSShUnlock()

	parent.lock.RLock()
	defer parent.lock.RUnlock()

	child, ok := parent.entries.Get(name)
	if !ok {
		return nil, kerrno.Wrap(kerrno.ENOENT, "ramfs.GetEntry", map[string]any{"name": name})
	}

	return child, nil
}

// insert adds name → child under parent in exclusive mode, looking up first
// and rejecting a duplicate with an already-exists error.
func (fs *FS) insert(parent *Inode, name string, child *Inode) error {
	parent.lock.Lock()
	defer parent.lock.Unlock()

	if _, exists := parent.entries.Get(name); exists {
		return kerrno.Wrap(kerrno.EEXIST, "ramfs.insert", map[string]any{"name": name})
	}

	parent.entries.Insert(name, child)
	parent.mtime = time.Now()

	return nil
}

// Create makes a new regular file named name under parent.
func (fs *FS) Create(parent *Inode, name string, mode uint32) (*Inode, error) {
	if parent.typ != DirType {
		return nil, kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Create", nil)
	}

	fs.FSExLock()
	defer fs.FSExUnlock()

	now := time.Now()
	child := &Inode{
		fs: fs, ino: fs.allocIno(), typ: FileType, mode: mode,
		lock: newRWLock(), nlink: 1, parent: parent,
		blocks: newRBTree[uint64, *block](),
		ctime:  now, mtime: now,
	}

	if err := fs.insert(parent, name, child); err != nil {
		return nil, err
	}

	return child, nil
}

// Mkdir makes a new empty directory named name under parent.
func (fs *FS) Mkdir(parent *Inode, name string, mode uint32) (*Inode, error) {
	if parent.typ != DirType {
		return nil, kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Mkdir", nil)
	}

	fs.FSExLock()
	defer fs.FSExUnlock()

	now := time.Now()
	child := &Inode{
		fs: fs, ino: fs.allocIno(), typ: DirType, mode: mode,
		lock: newRWLock(), nlink: 1, parent: parent,
		entries: newRBTree[string, *Inode](),
		ctime:   now, mtime: now,
	}

	if err := fs.insert(parent, name, child); err != nil {
		return nil, err
	}

	return child, nil
}

// Symlink makes a new symlink named name under parent, pointing at target.
func (fs *FS) Symlink(parent *Inode, name, target string) (*Inode, error) {
	if parent.typ != DirType {
		return nil, kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Symlink", nil)
	}

	fs.FSExLock()
	defer fs.FSExUnlock()

	now := time.Now()
	child := &Inode{
		fs: fs, ino: fs.allocIno(), typ: SymlinkType, mode: 0o777,
		lock: newRWLock(), nlink: 1, parent: parent,
		symlink: target,
		ctime:   now, mtime: now,
	}

	if err := fs.insert(parent, name, child); err != nil {
		return nil, err
	}

	return child, nil
}

// Readlink returns a symlink inode's target path.
func (fs *FS) Readlink(n *Inode) (string, error) {
	if n.typ != SymlinkType {
		return "", kerrno.Wrap(kerrno.EINVAL, "ramfs.Readlink", nil)
	}

	return n.symlink, nil
}

// Unlink removes name from parent, decrementing nlink; blocks and the
// inode itself are only released once nlink and refcount both reach zero
// (Release handles the refcount side).
func (fs *FS) Unlink(parent *Inode, name string) error {
	if parent.typ != DirType {
		return kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Unlink", nil)
	}

	fs.FSExLock()
	defer fs.FSExUnlock()

	parent.lock.Lock()
	defer parent.lock.Unlock()

	child, ok := parent.entries.Get(name)
	if !ok {
		return kerrno.Wrap(kerrno.ENOENT, "ramfs.Unlink", map[string]any{"name": name})
	}

	if child.typ == DirType {
		return kerrno.Wrap(kerrno.EINVAL, "ramfs.Unlink", map[string]any{"name": name, "reason": "is a directory"})
	}

	parent.entries.Delete(name)
	parent.mtime = time.Now()

	if atomic.AddInt32(&child.nlink, -1) == 0 && atomic.LoadInt32(&child.refcount) == 0 {
		child.blocks = nil
	}

	return nil
}

// Rmdir removes the empty directory named name from parent.
func (fs *FS) Rmdir(parent *Inode, name string) error {
	if parent.typ != DirType {
		return kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Rmdir", nil)
	}

	fs.FSExLock()
	defer fs.FSExUnlock()

	parent.lock.Lock()
	defer parent.lock.Unlock()

	child, ok := parent.entries.Get(name)
	if !ok {
		return kerrno.Wrap(kerrno.ENOENT, "ramfs.Rmdir", map[string]any{"name": name})
	}

	if child.typ != DirType {
		return kerrno.Wrap(kerrno.ENOTDIR, "ramfs.Rmdir", map[string]any{"name": name})
	}

	if child.entries.Size() > 0 {
		return kerrno.Wrap(kerrno.EINVAL, "ramfs.Rmdir", map[string]any{"name": name, "reason": "not empty"})
	}

	parent.entries.Delete(name)
	parent.mtime = time.Now()
	atomic.StoreInt32(&child.nlink, 0)

	return nil
}

// GetDents walks dir's entries in lexicographic order, reporting each to
// cb as {ino, dtype, name}. dtype follows the same DT_* encoding the FAT
// driver uses (DT_DIR = 4, DT_REG = 8, DT_LNK = 10).
func (fs *FS) GetDents(dir *Inode, cb func(ino uint64, dtype uint8, name string) bool) error {
	if dir.typ != DirType {
		return kerrno.Wrap(kerrno.ENOTDIR, "ramfs.GetDents", nil)
	}

	fs.FSShLock()
	defer fs.FSShUnlock()

	dir.lock.RLock()
	defer dir.lock.RUnlock()

	dir.entries.Range(func(name string, child *Inode) bool {
		return cb(child.ino, dtypeOf(child.typ), name)
	})

	return nil
}

func dtypeOf(t Type) uint8 {
	switch t {
	case DirType:
		return 4
	case SymlinkType:
		return 10
	default:
		return 8
	}
}

// Stat64 mirrors vfs.Stat64's field shapes, the same Linux-compatible
// layout the FAT driver's Stat64 uses.
type Stat64 struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	UID     uint32
	GID     uint32
	Size    int64
	Blksize int32
	Blocks  int64
	Mtime   time.Time
	Ctime   time.Time
	Atime   time.Time
}

const (
	sIFDIR = 0o040000
	sIFREG = 0o100000
	sIFLNK = 0o120000
)

// Stat populates a Stat64 for n.
func (fs *FS) Stat(n *Inode) Stat64 {
	var ifmt uint32

	switch n.typ {
	case DirType:
		ifmt = sIFDIR
	case SymlinkType:
		ifmt = sIFLNK
	default:
		ifmt = sIFREG
	}

	return Stat64{
		Dev:     fs.deviceID,
		Ino:     n.ino,
		Mode:    ifmt | n.mode,
		Nlink:   uint32(n.nlink),
		Size:    int64(n.size),
		Blksize: PageSize,
		Blocks:  int64(n.size+511) / 512,
		Mtime:   n.mtime,
		Ctime:   n.ctime,
		Atime:   n.mtime,
	}
}
