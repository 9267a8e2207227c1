package vfs

import (
	"encoding/binary"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

// direntHeaderSize is sizeof(linux_dirent64) minus the flexible name array:
// d_ino(8) + d_off(8) + d_reclen(2) + d_type(1), with no alignment padding.
const direntHeaderSize = 8 + 8 + 2 + 1

// GetDents64 walks dir's entries through the driver's GetDents, skipping the
// first h.Pos of them, then appends {d_ino, d_off, d_reclen, d_type, name}
// records into buf until the next record would overflow it. It returns the
// byte count written and advances h.Pos past the emitted entries.
//
// If the very first unskipped entry alone does not fit in buf, it returns
// EINVAL and leaves h.Pos untouched.
func (fs *FS) GetDents64(h *Handle, buf []byte) (int, error) {
	fs.ShLock()
	defer fs.ShUnlock()

	var (
		written uint32
		skipped uint32
		emitted uint32
		tooBig  bool
	)

	err := fs.Ops.GetDents(h.Inode, func(ino uint64, dtype uint8, name string) bool {
		if skipped < h.Pos {
			skipped++
			return true
		}

		reclen := uint32(direntHeaderSize + len(name) + 1)
		if written+reclen > uint32(len(buf)) {
			tooBig = emitted == 0
			return false
		}

		rec := buf[written : written+reclen]
		binary.LittleEndian.PutUint64(rec[0:8], ino)
		binary.LittleEndian.PutUint64(rec[8:16], uint64(written+reclen))
		binary.LittleEndian.PutUint16(rec[16:18], uint16(reclen))
		rec[18] = dtype
		copy(rec[19:], name)
		rec[19+len(name)] = 0

		written += reclen
		emitted++

		return true
	})

	if err != nil {
		return 0, err
	}

	if tooBig {
		return 0, kerrno.Wrap(kerrno.EINVAL, "vfs.GetDents64", map[string]any{"bufLen": len(buf)})
	}

	h.Pos += emitted

	return int(written), nil
}
