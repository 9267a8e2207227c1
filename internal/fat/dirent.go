package fat

import (
	"strings"
	"time"

	"github.com/sparrowkernel/sparrow/internal/kerrno"
)

const (
	attrReadOnly  = 0x01
	attrHidden    = 0x02
	attrSystem    = 0x04
	attrVolumeID  = 0x08
	attrDirectory = 0x10
	attrArchive   = 0x20
	attrLongName  = attrReadOnly | attrHidden | attrSystem | attrVolumeID

	dirEntrySize = 32
	entryFree    = 0xE5
	entryEnd     = 0x00
)

// Entry is the in-memory directory-entry record: the raw on-disk fields
// needed for stat and listing, plus the resolved name (short, or the long
// name when LFN entries preceded it) and the byte address used as the
// inode number.
type Entry struct {
	Name         string
	Attr         uint8
	FirstCluster uint32
	Size         uint32

	CrtDate      uint16
	CrtTime      uint16
	CrtTimeTenth uint8
	WrtDate      uint16
	WrtTime      uint16

	addr   uint32 // byte offset of the raw 32-byte entry within the image, or 0 for the synthetic root
	isRoot bool
	parent *Entry
}

// IsDir reports whether the entry should be treated as a directory for
// listing purposes. Volume-id entries count as directories too.
func (e *Entry) IsDir() bool { return e.Attr&(attrDirectory|attrVolumeID) != 0 }

// IsVolumeID reports the FAT volume-label attribute bit.
func (e *Entry) IsVolumeID() bool { return e.Attr&attrVolumeID != 0 }

// decodeShortName turns an 11-byte 8.3 name field into "NAME.EXT" form
// (no dot if the extension is blank).
func decodeShortName(raw [11]byte) string {
	name := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")

	if ext == "" {
		return name
	}

	return name + "." + ext
}

// decodeLFNPart extracts the UTF-16 code units making up one LFN entry's
// share of the long name, stopping at the first 0x0000/0xFFFF terminator.
func decodeLFNPart(raw []byte) string {
	units := make([]uint16, 0, 13)

	for i := 0; i+1 < len(raw); i += 2 {
		u := uint16(raw[i]) | uint16(raw[i+1])<<8
		if u == 0x0000 || u == 0xFFFF {
			break
		}

		units = append(units, u)
	}

	return string(utf16Decode(units))
}

func utf16Decode(units []uint16) []rune {
	out := make([]rune, 0, len(units))

	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if r >= 0xD800 && r < 0xDC00 && i+1 < len(units) {
			lo := rune(units[i+1])
			if lo >= 0xDC00 && lo < 0xE000 {
				r = ((r - 0xD800) << 10) + (lo - 0xDC00) + 0x10000
				i++
			}
		}

		out = append(out, r)
	}

	return out
}

// rawEntry is the fixed 32-byte on-disk directory entry layout shared by
// short-name and LFN records.
type rawEntry []byte

func (r rawEntry) attr() uint8   { return r[11] }
func (r rawEntry) firstCluster() uint32 {
	hi := uint32(r[20]) | uint32(r[21])<<8
	lo := uint32(r[26]) | uint32(r[27])<<8

	return hi<<16 | lo
}
func (r rawEntry) fileSize() uint32 {
	return uint32(r[28]) | uint32(r[29])<<8 | uint32(r[30])<<16 | uint32(r[31])<<24
}
func (r rawEntry) shortName() [11]byte {
	var n [11]byte
	copy(n[:], r[0:11])

	return n
}
func (r rawEntry) crtDate() uint16      { return uint16(r[16]) | uint16(r[17])<<8 }
func (r rawEntry) crtTime() uint16      { return uint16(r[14]) | uint16(r[15])<<8 }
func (r rawEntry) crtTimeTenth() uint8  { return r[13] }
func (r rawEntry) wrtDate() uint16      { return uint16(r[24]) | uint16(r[25])<<8 }
func (r rawEntry) wrtTime() uint16      { return uint16(r[22]) | uint16(r[23])<<8 }

// lfnPart extracts the 13 characters an LFN record carries, from its three
// name fields in on-disk order (Name1: 5, Name2: 6, Name3: 2 characters).
func lfnPart(r rawEntry) string {
	return decodeLFNPart(r[1:11]) + decodeLFNPart(r[14:26]) + decodeLFNPart(r[28:32])
}

// dirBlock pairs a directory content region with its absolute byte offset
// in the image, so entries found inside it can compute st_ino.
type dirBlock struct {
	offset uint32
	data   []byte
}

// dirBlocks returns the successive byte regions that make up dir's content:
// the single flat region for a FAT12/16 root, or one block per cluster in
// the chain for every other directory (including a FAT32 root).
func (img *Image) dirBlocks(dir *Entry) func(yield func(dirBlock) bool) {
	if dir.isRoot && img.typ != FAT32 {
		return func(yield func(dirBlock) bool) {
			yield(dirBlock{offset: img.rootDirStart, data: img.data[img.rootDirStart : img.rootDirStart+img.rootDirSize]})
		}
	}

	first := dir.FirstCluster
	if dir.isRoot {
		first = img.rootCluster
	}

	return func(yield func(dirBlock) bool) {
		cluster := first

		for cluster != invalidCluster && cluster >= 2 {
			blockStart := img.clusterOffset(cluster)
			if !yield(dirBlock{offset: blockStart, data: img.data[blockStart : blockStart+img.clusterSize]}) {
				return
			}

			next, eoc := img.fatEntry(cluster)
			if eoc {
				return
			}

			cluster = next
		}
	}
}

// walkDir iterates dir's entries in on-disk order, concatenating LFN parts
// ahead of the short entry that terminates them and computing the inode
// address from the short entry's position. It stops at the first
// end-of-directory marker or when cb returns false.
func (img *Image) walkDir(dir *Entry, cb func(e *Entry) bool) {
	var lfnParts []string

	img.dirBlocks(dir)(func(block dirBlock) bool {
		for off := 0; off+dirEntrySize <= len(block.data); off += dirEntrySize {
			raw := rawEntry(block.data[off : off+dirEntrySize])

			if raw[0] == entryEnd {
				return false
			}

			if raw[0] == entryFree {
				lfnParts = nil
				continue
			}

			if raw.attr() == attrLongName {
				lfnParts = append([]string{lfnPart(raw)}, lfnParts...)
				continue
			}

			name := decodeShortName(raw.shortName())
			if len(lfnParts) > 0 {
				name = strings.TrimRight(strings.Join(lfnParts, ""), "\x00")
			}
			lfnParts = nil

			e := &Entry{
				Name:         name,
				Attr:         raw.attr(),
				FirstCluster: raw.firstCluster(),
				Size:         raw.fileSize(),
				CrtDate:      raw.crtDate(),
				CrtTime:      raw.crtTime(),
				CrtTimeTenth: raw.crtTimeTenth(),
				WrtDate:      raw.wrtDate(),
				WrtTime:      raw.wrtTime(),
				addr:         block.offset + uint32(off),
				parent:       dir,
			}

			if !cb(e) {
				return false
			}
		}

		return true
	})
}

func (img *Image) isRootCluster(cluster uint32) bool {
	return cluster == 0 || (img.typ == FAT32 && cluster == img.rootCluster)
}

// GetEntry implements get_entry's path-component resolution: given a base
// directory (nil meaning root) and a name (empty meaning "return the base
// itself"), resolve one path component.
func (img *Image) GetEntry(dir *Entry, name string) (*Entry, error) {
	if dir == nil && name == "" {
		return img.Root(), nil
	}

	base := dir
	if base == nil {
		base = img.Root()
	}

	if base.isRoot && (name == "." || name == "..") {
		return base, nil
	}

	if name == "." {
		return base, nil
	}

	if name == ".." {
		if base.parent != nil {
			return base.parent, nil
		}

		return img.Root(), nil
	}

	var found *Entry

	img.walkDir(base, func(e *Entry) bool {
		if e.Name == name {
			found = e
			return false
		}

		return true
	})

	if found == nil {
		return nil, kerrno.Wrap(kerrno.ENOENT, "fat.GetEntry", map[string]any{"name": name})
	}

	// A subdirectory entry whose first-cluster field points at cluster 0
	// (FAT12/16) or the FAT32 root cluster is really the root directory
	// reached through a "." or ".." chain; resolve it to the synthetic
	// root entry so its listing and stat match img.Root(). This applies
	// only to directory resolution, never to regular files: an empty
	// regular file also has FirstCluster == 0 (no cluster is ever
	// allocated to it) and must stay itself.
	if found.IsDir() && img.isRootCluster(found.FirstCluster) {
		root := img.root
		root.parent = base
		found = &root
	}

	return found, nil
}

// GetDents implements fat_getdents: walk the directory, reporting
// {ino, type, name} for every entry to cb. It stops early if cb returns
// false. The buffer/pos bookkeeping of getdents64 itself lives above this,
// in the vfs package.
func (img *Image) GetDents(dir *Entry, cb func(ino uint64, dtype uint8, name string) bool) error {
	if !dir.IsDir() {
		return kerrno.Wrap(kerrno.ENOTDIR, "fat.GetDents", nil)
	}

	img.walkDir(dir, func(e *Entry) bool {
		dtype := uint8(8) // DT_REG
		if e.IsDir() {
			dtype = 4 // DT_DIR
		}

		return cb(uint64(e.addr), dtype, e.Name)
	})

	return nil
}

// countDirEntries counts dir's live entries by walking it in full, which is
// an O(n)-per-call cost against directory size.
func (img *Image) countDirEntries(dir *Entry) (int, error) {
	if !dir.IsDir() {
		return 0, kerrno.Wrap(kerrno.ENOTDIR, "fat.countDirEntries", nil)
	}

	n := 0
	img.walkDir(dir, func(e *Entry) bool {
		n++
		return true
	})

	return n, nil
}

// fatDateTime translates the packed FAT date/time/tenth fields into a Unix
// timestamp: date = day[0..4] | month[5..8] | (year-1980)[9..15]; time =
// sec[0..4] | min[5..10] | hour[11..15]; tenth adds tenth/10 seconds.
func fatDateTime(date, clock uint16, tenth uint8) time.Time {
	day := int(date & 0x1F)
	month := int((date >> 5) & 0x0F)
	year := 1980 + int(date>>9)

	sec := int((clock & 0x1F) * 2)
	minute := int((clock >> 5) & 0x3F)
	hour := int(clock >> 11)

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)

	if tenth > 0 {
		t = t.Add(time.Duration(tenth) * 100 * time.Millisecond)
	}

	return t
}
