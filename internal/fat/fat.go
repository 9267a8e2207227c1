package fat

import (
	"encoding/binary"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

// invalidCluster is the curr_cluster sentinel for "pos is past file_size".
const invalidCluster uint32 = 0xFFFFFFFF

// Image is a mounted read-only FAT12/16/32 volume over a RAM-resident byte
// slice, the in-memory equivalent of mount_ramdisk's {hdr, type,
// cluster_size, root_entry, root_cluster}.
type Image struct {
	data []byte
	bpb  *BPB
	typ  Type

	clusterSize  uint32
	fatStart     uint32
	dataStart    uint32
	rootDirStart uint32
	rootDirSize  uint32 // bytes, FAT12/16 only
	rootCluster  uint32 // FAT32 only

	root     Entry
	deviceID uint64
}

// Mount parses the boot sector of data and returns a mounted read-only
// Image, the equivalent of mount_ramdisk(vaddr, flags) with flags forced
// read-only. deviceID is the opaque device id the VFS layer stamps into
// stat results.
func Mount(data []byte, deviceID uint64) (*Image, error) {
	bpb, err := parseBPB(data)
	if err != nil {
		return nil, err
	}

	typ := detectType(bpb)

	img := &Image{
		data:        data,
		bpb:         bpb,
		typ:         typ,
		clusterSize: uint32(bpb.SectorsPerCluster) * uint32(bpb.BytesPerSector),
		deviceID:    deviceID,
	}

	img.fatStart = uint32(bpb.ReservedSectorCount) * uint32(bpb.BytesPerSector)

	rootDirSectors := bpb.rootDirSectors()
	img.rootDirStart = img.fatStart + uint32(bpb.NumFATs)*bpb.fatSize()*uint32(bpb.BytesPerSector)
	img.rootDirSize = rootDirSectors * uint32(bpb.BytesPerSector)
	img.dataStart = img.rootDirStart + img.rootDirSize

	if typ == FAT32 {
		img.rootCluster = bpb.RootCluster
		img.root = Entry{Attr: attrDirectory, FirstCluster: img.rootCluster, addr: 0, isRoot: true}
	} else {
		img.root = Entry{Attr: attrDirectory, FirstCluster: 0, addr: 0, isRoot: true}
	}

	if int(img.dataStart) >= len(data) {
		return nil, kerrno.Wrap(kerrno.EINVAL, "fat.Mount", map[string]any{"dataStart": img.dataStart, "imageLen": len(data)})
	}

	return img, nil
}

// Type reports the detected FAT flavor.
func (img *Image) Type() Type { return img.typ }

// ClusterSize reports BPB_SecPerClus × BPB_BytsPerSec.
func (img *Image) ClusterSize() uint32 { return img.clusterSize }

// Root returns the filesystem's root directory entry.
func (img *Image) Root() *Entry { return &img.root }

// DeviceID returns the opaque device id stamped at mount time.
func (img *Image) DeviceID() uint64 { return img.deviceID }

// clusterOffset maps a cluster number (≥2) to its byte offset in data.
func (img *Image) clusterOffset(cluster uint32) uint32 {
	return img.dataStart + (cluster-2)*img.clusterSize
}

// clusterData returns the byte slice backing cluster n.
func (img *Image) clusterData(n uint32) []byte {
	off := img.clusterOffset(n)
	return img.data[off : off+img.clusterSize]
}

// fatEntry reads the FAT table entry for cluster n, returning the next
// cluster in the chain and whether n is the chain's end-of-chain marker.
func (img *Image) fatEntry(n uint32) (next uint32, eoc bool) {
	switch img.typ {
	case FAT12:
		byteOff := img.fatStart + n + n/2
		pair := binary.LittleEndian.Uint16(img.data[byteOff : byteOff+2])

		var v uint32
		if n%2 == 0 {
			v = uint32(pair) & 0x0FFF
		} else {
			v = uint32(pair) >> 4
		}

		return v, v >= 0xFF8

	case FAT16:
		off := img.fatStart + n*2
		v := uint32(binary.LittleEndian.Uint16(img.data[off : off+2]))

		return v, v >= 0xFFF8

	default: // FAT32
		off := img.fatStart + n*4
		v := binary.LittleEndian.Uint32(img.data[off:off+4]) & 0x0FFFFFFF

		return v, v >= 0x0FFFFFF8
	}
}

// Handle is the FAT file/directory handle: it adds owning fs, entry, byte
// cursor pos, and curr_cluster to the generic file-handle base.
type Handle struct {
	img         *Image
	entry       *Entry
	pos         uint32
	currCluster uint32
}

// OpenHandle creates a handle over entry, positioned at offset 0.
func OpenHandle(img *Image, entry *Entry) *Handle {
	h := &Handle{img: img, entry: entry}
	h.Rewind()

	return h
}

// Rewind implements fat_rewind: pos = 0, curr_cluster = first_cluster(entry).
func (h *Handle) Rewind() {
	h.pos = 0
	h.currCluster = h.entry.FirstCluster

	if h.currCluster == 0 {
		h.currCluster = invalidCluster
	}
}

// Pos reports the current byte cursor.
func (h *Handle) Pos() uint32 { return h.pos }

// Entry returns the directory entry this handle was opened against.
func (h *Handle) Entry() *Entry { return h.entry }

// advanceClusters follows the FAT chain n steps forward from the current
// cluster, stopping early (and setting currCluster to invalidCluster) if
// the chain ends first.
func (h *Handle) advanceClusters(n uint32) {
	for i := uint32(0); i < n; i++ {
		if h.currCluster == invalidCluster {
			return
		}

		next, eoc := h.img.fatEntry(h.currCluster)
		if eoc {
			h.currCluster = invalidCluster
			return
		}

		h.currCluster = next
	}
}

// Read implements fat_read: a cluster-at-a-time copy loop, bounded by the
// buffer, the current cluster's remaining bytes, and the file's remaining
// bytes.
func (h *Handle) Read(buf []byte) (int, error) {
	if h.entry.IsDir() {
		return 0, kerrno.Wrap(kerrno.EBADF, "fat.Read", nil)
	}

	size := h.entry.Size
	if h.pos >= size {
		return 0, nil
	}

	total := 0

	for total < len(buf) && h.pos < size {
		if h.currCluster == invalidCluster {
			panic("fat: read ran off the end of a cluster chain before file_size")
		}

		offInCluster := h.pos % h.img.clusterSize
		clusterRem := h.img.clusterSize - offInCluster
		bufRem := uint32(len(buf) - total)
		fileRem := size - h.pos

		toRead := minU32(minU32(clusterRem, bufRem), fileRem)

		src := h.img.clusterData(h.currCluster)
		copy(buf[total:total+int(toRead)], src[offInCluster:offInCluster+toRead])

		total += int(toRead)
		h.pos += toRead

		if toRead < clusterRem {
			break
		}

		next, eoc := h.img.fatEntry(h.currCluster)
		if eoc {
			if h.pos != size {
				panic("fat: end-of-chain reached before file_size")
			}

			h.currCluster = invalidCluster

			break
		}

		h.currCluster = next
	}

	return total, nil
}

// Whence values for Seek, matching the POSIX SEEK_* constants.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Seek implements fat_seek. Directories only accept SeekSet with an offset
// in [0, entry_count]; files accept all three whence values, reject a
// resulting negative position, rewind-and-walk-forward on backward seeks,
// and allow seeking past end-of-file (curr_cluster becomes invalid).
func (h *Handle) Seek(off int64, whence int) (int64, error) {
	if h.entry.IsDir() {
		if whence != SeekSet {
			return 0, kerrno.Wrap(kerrno.EINVAL, "fat.Seek", map[string]any{"whence": whence})
		}

		count, err := h.img.countDirEntries(h.entry)
		if err != nil {
			return 0, err
		}

		if off < 0 || uint64(off) > uint64(count) {
			return 0, kerrno.Wrap(kerrno.EINVAL, "fat.Seek", map[string]any{"off": off, "count": count})
		}

		h.pos = uint32(off)

		return off, nil
	}

	var abs int64

	switch whence {
	case SeekSet:
		abs = off
	case SeekCur:
		abs = int64(h.pos) + off
	case SeekEnd:
		abs = int64(h.entry.Size) + off
	default:
		return 0, kerrno.Wrap(kerrno.EINVAL, "fat.Seek", map[string]any{"whence": whence})
	}

	if abs < 0 {
		return 0, kerrno.Wrap(kerrno.EINVAL, "fat.Seek", map[string]any{"abs": abs})
	}

	target := uint32(abs)

	if target < h.pos {
		h.Rewind()
		h.advanceClusters(target / h.img.clusterSize)
	} else if h.currCluster != invalidCluster && target/h.img.clusterSize > h.pos/h.img.clusterSize {
		h.advanceClusters(target/h.img.clusterSize - h.pos/h.img.clusterSize)
	}

	h.pos = target

	if target >= h.entry.Size {
		h.currCluster = invalidCluster
	}

	return abs, nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}

	return b
}
