package fat

import (
	"bytes"
	"testing"
)

// buildFAT12Image constructs a minimal single-FAT, single-file FAT12 image:
// one reserved sector, one FAT, 16 root entries, 2-sector (1024-byte)
// clusters, with one file "HELLO.TXT" of the given content.
func buildFAT12Image(t *testing.T, content []byte) []byte {
	t.Helper()

	const (
		bytesPerSector  = 512
		sectorsPerClus  = 2
		reservedSectors = 1
		numFATs         = 1
		rootEntryCount  = 16
		totalSectors    = 64
		fatSize16       = 1
	)

	img := make([]byte, totalSectors*bytesPerSector)

	putU16 := func(off int, v uint16) { img[off] = byte(v); img[off+1] = byte(v >> 8) }
	putU32 := func(off int, v uint32) {
		img[off] = byte(v)
		img[off+1] = byte(v >> 8)
		img[off+2] = byte(v >> 16)
		img[off+3] = byte(v >> 24)
	}

	putU16(11, bytesPerSector)
	img[13] = sectorsPerClus
	putU16(14, reservedSectors)
	img[16] = numFATs
	putU16(17, rootEntryCount)
	putU16(19, totalSectors)
	putU16(22, fatSize16)

	fatStart := reservedSectors * bytesPerSector
	rootDirStart := fatStart + numFATs*fatSize16*bytesPerSector
	rootDirSize := rootEntryCount * 32
	dataStart := rootDirStart + rootDirSize

	clusterSize := sectorsPerClus * bytesPerSector
	clusterCount := (len(content) + clusterSize - 1) / clusterSize
	if clusterCount == 0 {
		clusterCount = 1
	}

	// FAT12 entries: cluster 0/1 reserved, file occupies clusters 2..2+n-1.
	setFAT12 := func(n uint32, v uint32) {
		byteOff := fatStart + int(n) + int(n)/2
		pair := uint16(img[byteOff]) | uint16(img[byteOff+1])<<8

		if n%2 == 0 {
			pair = (pair &^ 0x0FFF) | uint16(v&0x0FFF)
		} else {
			pair = (pair &^ 0xFFF0) | uint16(v&0x0FFF)<<4
		}

		img[byteOff] = byte(pair)
		img[byteOff+1] = byte(pair >> 8)
	}

	for i := 0; i < clusterCount; i++ {
		cluster := uint32(2 + i)
		if i == clusterCount-1 {
			setFAT12(cluster, 0xFFF)
		} else {
			setFAT12(cluster, cluster+1)
		}
	}

	// Root directory entry for "HELLO.TXT".
	entry := img[rootDirStart : rootDirStart+32]
	copy(entry[0:11], []byte("HELLO   TXT"))
	entry[11] = attrArchive
	putU16(rootDirStart+20, uint16(0)) // first cluster hi
	putU16(rootDirStart+26, uint16(2)) // first cluster lo = 2
	putU32(rootDirStart+28, uint32(len(content)))

	// File content across its cluster chain.
	for i := 0; i < clusterCount; i++ {
		cluster := 2 + i
		off := dataStart + (cluster-2)*clusterSize
		start := i * clusterSize
		end := start + clusterSize

		if end > len(content) {
			end = len(content)
		}

		copy(img[off:off+(end-start)], content[start:end])
	}

	return img
}

func mustMount(t *testing.T, img []byte) *Image {
	t.Helper()

	m, err := Mount(img, 7)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	return m
}

func mustLookup(t *testing.T, img *Image, name string) *Entry {
	t.Helper()

	e, err := img.GetEntry(nil, name)
	if err != nil {
		t.Fatalf("GetEntry(%q): %v", name, err)
	}

	return e
}

// TestReadRoundTrip is property 5: reading S bytes in a variety of chunk
// sizes must yield byte-identical content and end with a zero-length read.
func TestReadRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 130) // 2080 bytes, spans clusters
	img := mustMount(t, buildFAT12Image(t, content))
	entry := mustLookup(t, img, "HELLO.TXT")

	for _, chunk := range []int{1, 512, int(img.ClusterSize()), int(img.ClusterSize()) + 1, len(content)} {
		h := OpenHandle(img, entry)

		var got []byte

		buf := make([]byte, chunk)

		for {
			n, err := h.Read(buf)
			if err != nil {
				t.Fatalf("chunk=%d: Read: %v", chunk, err)
			}

			if n == 0 {
				break
			}

			got = append(got, buf[:n]...)
		}

		if !bytes.Equal(got, content) {
			t.Fatalf("chunk=%d: round trip mismatch: got %d bytes, want %d", chunk, len(got), len(content))
		}

		if h.Pos() != uint32(len(content)) {
			t.Fatalf("chunk=%d: final pos = %d, want %d", chunk, h.Pos(), len(content))
		}

		n, err := h.Read(buf)
		if err != nil || n != 0 {
			t.Fatalf("chunk=%d: trailing Read = (%d, %v), want (0, nil)", chunk, n, err)
		}
	}
}

// TestSeekPastEndThenRead and TestSeekNegativeFromStart are property 6.
func TestSeekPastEndThenRead(t *testing.T) {
	content := []byte("hello world")
	img := mustMount(t, buildFAT12Image(t, content))
	entry := mustLookup(t, img, "HELLO.TXT")
	h := OpenHandle(img, entry)

	k := int64(5)

	if _, err := h.Seek(int64(len(content))+k, SeekSet); err != nil {
		t.Fatalf("Seek past end: %v", err)
	}

	buf := make([]byte, 16)

	n, err := h.Read(buf)
	if err != nil || n != 0 {
		t.Fatalf("Read after seek past end = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSeekNegativeFromStart(t *testing.T) {
	content := []byte("hello world")
	img := mustMount(t, buildFAT12Image(t, content))
	entry := mustLookup(t, img, "HELLO.TXT")
	h := OpenHandle(img, entry)

	if _, err := h.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek(0, SET): %v", err)
	}

	if _, err := h.Seek(-1, SeekCur); err == nil {
		t.Fatal("Seek(CUR, -1) from position 0 should fail, got nil error")
	}
}

// TestReadBoundaryTwoClusterTraversals is scenario S5 at a smaller scale:
// a file spanning exactly two clusters, read with a buffer larger than the
// whole file, returns the full content in one call and then zero.
func TestReadBoundaryTwoClusterTraversals(t *testing.T) {
	const clusterSize = 1024 // sectorsPerClus(2) * bytesPerSector(512), per buildFAT12Image

	content := bytes.Repeat([]byte{0xAB}, clusterSize+500)

	m := mustMount(t, buildFAT12Image(t, content))
	entry := mustLookup(t, m, "HELLO.TXT")
	h := OpenHandle(m, entry)

	buf := make([]byte, len(content)+1000)

	n, err := h.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if n != len(content) {
		t.Fatalf("Read returned %d bytes, want %d", n, len(content))
	}

	n, err = h.Read(buf)
	if err != nil || n != 0 {
		t.Fatalf("second Read = (%d, %v), want (0, nil)", n, err)
	}
}

// TestStatOnFAT is property 8.
func TestStatOnFAT(t *testing.T) {
	content := []byte("stat me")
	img := mustMount(t, buildFAT12Image(t, content))
	entry := mustLookup(t, img, "HELLO.TXT")

	st := img.Stat(entry)

	if st.Ino != uint64(entry.addr) {
		t.Errorf("Ino = %d, want %d", st.Ino, entry.addr)
	}

	if st.Mode&sIFDIR != 0 {
		t.Errorf("Mode has S_IFDIR set for a regular file")
	}

	if st.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", st.Size, len(content))
	}
}
