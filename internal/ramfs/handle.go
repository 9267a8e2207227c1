package ramfs

import (
	"time"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

// Handle is a ramfs open file/directory handle: owning inode plus a byte
// cursor, the ramfs counterpart of fat.Handle.
type Handle struct {
	node *Inode
	pos  uint64
}

// OpenHandle opens n at offset 0, retaining it for the handle's lifetime.
func OpenHandle(n *Inode) *Handle {
	n.Retain()
	return &Handle{node: n}
}

// Close releases the handle's retain on its inode.
func (h *Handle) Close() { h.node.Release() }

// Inode returns the handle's backing inode.
func (h *Handle) Inode() *Inode { return h.node }

// Pos reports the current byte cursor.
func (h *Handle) Pos() uint64 { return h.pos }

// Read copies up to len(buf) bytes starting at pos, taking the inode's
// shared lock. Reads from a hole (an offset with no allocated block) yield
// zero bytes.
func (h *Handle) Read(buf []byte) (int, error) {
	if h.node.typ != FileType {
		return 0, kerrno.Wrap(kerrno.EBADF, "ramfs.Read", nil)
	}

	h.node.lock.RLock()
	defer h.node.lock.RUnlock()

	if h.pos >= h.node.size {
		return 0, nil
	}

	total := 0
	remaining := h.node.size - h.pos

	if uint64(len(buf)) < remaining {
		remaining = uint64(len(buf))
	}

	for total < int(remaining) {
		off := h.pos + uint64(total)
		blockOff := off - off%PageSize
		inBlock := off % PageSize

		toCopy := remaining - uint64(total)
		if inBlock+toCopy > PageSize {
			toCopy = PageSize - inBlock
		}

		if blk, ok := h.node.blocks.Get(blockOff); ok {
			copy(buf[total:total+int(toCopy)], blk.data[inBlock:inBlock+toCopy])
		} else {
			clear(buf[total : total+int(toCopy)])
		}

		total += int(toCopy)
	}

	h.pos += uint64(total)

	return total, nil
}

// Write copies buf into the file starting at pos, allocating page-sized
// blocks on demand for any offset that does not already have one.
func (h *Handle) Write(buf []byte) (int, error) {
	if h.node.typ != FileType {
		return 0, kerrno.Wrap(kerrno.EBADF, "ramfs.Write", nil)
	}

	h.node.lock.Lock()
	defer h.node.lock.Unlock()

	total := 0

	for total < len(buf) {
		off := h.pos + uint64(total)
		blockOff := off - off%PageSize
		inBlock := off % PageSize

		toCopy := uint64(len(buf) - total)
		if inBlock+toCopy > PageSize {
			toCopy = PageSize - inBlock
		}

		blk, ok := h.node.blocks.Get(blockOff)
		if !ok {
			blk = &block{data: make([]byte, PageSize)}
			h.node.blocks.Insert(blockOff, blk)
		}

		copy(blk.data[inBlock:inBlock+toCopy], buf[total:total+int(toCopy)])

		total += int(toCopy)
	}

	h.pos += uint64(total)

	if h.pos > h.node.size {
		h.node.size = h.pos
	}

	h.node.mtime = time.Now()

	return total, nil
}

// Whence values for Seek, matching the POSIX SEEK_* constants.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Seek repositions the handle's cursor. Directories only accept SET with an
// offset within the entry count, mirroring fat.Handle's directory seek
// contract; files accept all three whence values and may seek past EOF.
// A Write there leaves the gap between the old size and the cursor as a
// hole, which reads back as zero bytes.
func (h *Handle) Seek(off int64, whence int) (int64, error) {
	if h.node.typ == DirType {
		if whence != SeekSet {
			return 0, kerrno.Wrap(kerrno.EINVAL, "ramfs.Seek", map[string]any{"whence": whence})
		}

		count := int64(h.node.entries.Size())
		if off < 0 || off > count {
			return 0, kerrno.Wrap(kerrno.EINVAL, "ramfs.Seek", map[string]any{"off": off, "count": count})
		}

		h.pos = uint64(off)

		return off, nil
	}

	var abs int64

	switch whence {
	case SeekSet:
		abs = off
	case SeekCur:
		abs = int64(h.pos) + off
	case SeekEnd:
		abs = int64(h.node.size) + off
	default:
		return 0, kerrno.Wrap(kerrno.EINVAL, "ramfs.Seek", map[string]any{"whence": whence})
	}

	if abs < 0 {
		return 0, kerrno.Wrap(kerrno.EINVAL, "ramfs.Seek", map[string]any{"abs": abs})
	}

	h.pos = uint64(abs)

	return abs, nil
}

// Truncate resizes the file to size, dropping blocks whose offset is ≥ the
// new size and zeroing the tail of the block that now straddles it.
func (h *Handle) Truncate(size uint64) error {
	if h.node.typ != FileType {
		return kerrno.Wrap(kerrno.EBADF, "ramfs.Truncate", nil)
	}

	h.node.lock.Lock()
	defer h.node.lock.Unlock()

	var toDrop []uint64

	h.node.blocks.Range(func(off uint64, _ *block) bool {
		if off >= size {
			toDrop = append(toDrop, off)
		}

		return true
	})

	for _, off := range toDrop {
		h.node.blocks.Delete(off)
	}

	straddling := size - size%PageSize
	if size%PageSize != 0 {
		if blk, ok := h.node.blocks.Get(straddling); ok {
			clear(blk.data[size%PageSize:])
		}
	}

	h.node.size = size
	h.node.mtime = time.Now()

	return nil
}

// Ioctl and Fcntl have no ramfs-specific behavior; both reject every
// request, matching the FAT driver's stance for requests it does not own.
func (h *Handle) Ioctl(req uint32, arg uintptr) error {
	return kerrno.Wrap(kerrno.EINVAL, "ramfs.Ioctl", map[string]any{"req": req})
}

func (h *Handle) Fcntl(cmd int, arg uintptr) (int, error) {
	return 0, kerrno.Wrap(kerrno.EINVAL, "ramfs.Fcntl", map[string]any{"cmd": cmd})
}
