package vfs

import "github.com/sparrowkernel/sparrow/internal/fat"

// fatFS adapts *fat.Image to FSOps. It is a thin wrapper — every method
// just type-asserts the opaque Inode back to *fat.Entry and forwards —
// because *fat.Handle already implements FileOps directly, with the exact
// method set vfs.FileOps requires.
type fatFS struct {
	img *fat.Image
}

// RequiredCoreVersion declares the ABI range this adapter was built
// against, checked by CheckCompat at mount time.
func (f *fatFS) RequiredCoreVersion() string { return ">= 1.0.0, < 2.0.0" }

func (f *fatFS) GetEntry(parent Inode, name string) (Inode, error) {
	var p *fat.Entry
	if parent != nil {
		p = parent.(*fat.Entry)
	}

	return f.img.GetEntry(p, name)
}

func (f *fatFS) Open(ino Inode) (FileOps, error) {
	return fat.OpenHandle(f.img, ino.(*fat.Entry)), nil
}

func (f *fatFS) Close(h FileOps) error { return nil }

func (f *fatFS) Dup(h FileOps) (FileOps, error) {
	orig := h.(*fat.Handle)
	dup := fat.OpenHandle(f.img, orig.Entry())

	if _, err := dup.Seek(int64(orig.Pos()), fat.SeekSet); err != nil {
		return nil, err
	}

	return dup, nil
}

func (f *fatFS) GetDents(dir Inode, cb func(ino uint64, dtype uint8, name string) bool) error {
	return f.img.GetDents(dir.(*fat.Entry), cb)
}

func (f *fatFS) Stat(ino Inode) (Stat64, error) {
	st := f.img.Stat(ino.(*fat.Entry))

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

// MountFAT wraps a RAM-resident FAT image as a mounted, read-only FS,
// checking ABI compatibility before it is handed back. deviceID is stamped
// into every stat result the driver produces.
func MountFAT(data []byte, deviceID uint64) (*FS, error) {
	img, err := fat.Mount(data, deviceID)
	if err != nil {
		return nil, err
	}

	adapter := &fatFS{img: img}
	if err := CheckCompat(adapter); err != nil {
		return nil, err
	}

	fsys := New(img.Type().String(), FSSkipDotEntries, deviceID, adapter, img.Root())

	return fsys, nil
}
