package vfs

import "github.com/sparrowkernel/sparrow/internal/ramfs"

// ramfsFS adapts *ramfs.FS to FSOps plus the mutator interfaces, the
// writable counterpart of fatFS. Like fatFS, *ramfs.Handle already
// implements FileOps directly, so Open only needs to retain and wrap it.
type ramfsFS struct {
	fs *ramfs.FS
}

func (r *ramfsFS) RequiredCoreVersion() string { return ">= 1.0.0, < 2.0.0" }

func (r *ramfsFS) GetEntry(parent Inode, name string) (Inode, error) {
	var p *ramfs.Inode
	if parent != nil {
		p = parent.(*ramfs.Inode)
	}

	return r.fs.GetEntry(p, name)
}

func (r *ramfsFS) Open(ino Inode) (FileOps, error) {
	return ramfs.OpenHandle(ino.(*ramfs.Inode)), nil
}

func (r *ramfsFS) Close(h FileOps) error {
	h.(*ramfs.Handle).Close()
	return nil
}

func (r *ramfsFS) Dup(h FileOps) (FileOps, error) {
	orig := h.(*ramfs.Handle)
	dup := ramfs.OpenHandle(orig.Inode())

	if _, err := dup.Seek(int64(orig.Pos()), ramfs.SeekSet); err != nil {
		return nil, err
	}

	return dup, nil
}

func (r *ramfsFS) GetDents(dir Inode, cb func(ino uint64, dtype uint8, name string) bool) error {
	return r.fs.GetDents(dir.(*ramfs.Inode), cb)
}

func (r *ramfsFS) Stat(ino Inode) (Stat64, error) {
	st := r.fs.Stat(ino.(*ramfs.Inode))

	return Stat64{
		Dev:     st.Dev,
		Ino:     st.Ino,
		Mode:    st.Mode,
		Nlink:   st.Nlink,
		Size:    st.Size,
		Blksize: st.Blksize,
		Blocks:  st.Blocks,
		Mtime:   st.Mtime,
		Ctime:   st.Ctime,
		Atime:   st.Atime,
	}, nil
}

func (r *ramfsFS) Unlink(dir Inode, name string) error {
	return r.fs.Unlink(dir.(*ramfs.Inode), name)
}

func (r *ramfsFS) Mkdir(dir Inode, name string) (Inode, error) {
	return r.fs.Mkdir(dir.(*ramfs.Inode), name, 0o755)
}

func (r *ramfsFS) Rmdir(dir Inode, name string) error {
	return r.fs.Rmdir(dir.(*ramfs.Inode), name)
}

func (r *ramfsFS) Create(dir Inode, name string, mode uint32) (Inode, error) {
	return r.fs.Create(dir.(*ramfs.Inode), name, mode)
}

func (r *ramfsFS) Symlink(dir Inode, name, target string) (Inode, error) {
	return r.fs.Symlink(dir.(*ramfs.Inode), name, target)
}

func (r *ramfsFS) Readlink(ino Inode) (string, error) {
	return r.fs.Readlink(ino.(*ramfs.Inode))
}

// MountRamfs creates a fresh, empty writable ramfs and wraps it as a
// mounted FS, checking ABI compatibility the same way MountFAT does.
func MountRamfs(deviceID uint64) (*FS, error) {
	underlying := ramfs.New(deviceID)

	adapter := &ramfsFS{fs: underlying}
	if err := CheckCompat(adapter); err != nil {
		return nil, err
	}

	fsys := New("ramfs", FSReadWrite, deviceID, adapter, underlying.Root())

	return fsys, nil
}
