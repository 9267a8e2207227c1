package fat

import "time"

// Stat64 mirrors the Linux-compatible 64-bit stat structure, restricted to
// the fields this driver populates.
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
)

// Stat implements fat_stat: device id from the mount, inode number as the
// entry's byte offset from the image base, a fixed read-only mode, and
// timestamps translated from the DIR_Crt*/DIR_Wrt* fields. Volume-id
// entries report S_IFDIR, matching their IsDir() treatment.
func (img *Image) Stat(e *Entry) Stat64 {
	mode := uint32(0o555)
	if e.IsDir() {
		mode |= sIFDIR
	} else {
		mode |= sIFREG
	}

	mtime := fatDateTime(e.WrtDate, e.WrtTime, 0)
	ctime := fatDateTime(e.CrtDate, e.CrtTime, e.CrtTimeTenth)

	return Stat64{
		Dev:     img.deviceID,
		Ino:     uint64(e.addr),
		Mode:    mode,
		Nlink:   1,
		Size:    int64(e.Size),
		Blksize: 4096,
		Blocks:  int64(e.Size) / 512,
		Mtime:   mtime,
		Ctime:   ctime,
		Atime:   mtime,
	}
}
