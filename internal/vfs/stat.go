package vfs

import "time"

// Stat64 is the Linux-compatible 64-bit stat structure, restricted to the
// fields a read-only filesystem driver can populate.
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
	SIFDIR = 0o040000
	SIFREG = 0o100000
	SIFLNK = 0o120000
)
