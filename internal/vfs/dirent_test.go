package vfs_test

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/sparrowkernel/sparrow/internal/vfs"
	"github.com/sparrowkernel/sparrow/internal/vfs/vfsmock"
)

type dent struct {
	ino   uint64
	dtype uint8
	name  string
}

func mockDirFS(t *testing.T, entries []dent) *vfs.FS {
	t.Helper()

	ctrl := gomock.NewController(t)
	ops := vfsmock.NewMockFSOps(ctrl)

	ops.EXPECT().GetDents(gomock.Any(), gomock.Any()).DoAndReturn(
		func(dir vfs.Inode, cb func(ino uint64, dtype uint8, name string) bool) error {
			for _, e := range entries {
				if !cb(e.ino, e.dtype, e.name) {
					break
				}
			}

			return nil
		},
	).AnyTimes()

	return vfs.New("mock", vfs.FSSkipDotEntries, 1, ops, nil)
}

// dentReclen mirrors vfs.DirentHeaderSize + len(name) + 1, the record size a
// single entry occupies in the buffer.
func dentReclen(name string) int { return vfs.DirentHeaderSize + len(name) + 1 }

// TestGetDents64Resumability is property 7: listing with a buffer large
// enough for only one entry at a time yields, in order, the same entries a
// single large-buffer call returns.
func TestGetDents64Resumability(t *testing.T) {
	entries := []dent{{1, 8, "a"}, {2, 8, "bb"}, {3, 8, "ccc"}}
	fsys := mockDirFS(t, entries)

	h := &vfs.Handle{FS: fsys, Inode: nil}

	var names []string

	for {
		buf := make([]byte, dentReclen("ccc")) // large enough for any single entry here

		n, err := fsys.GetDents64(h, buf)
		if err != nil {
			t.Fatalf("GetDents64: %v", err)
		}

		if n == 0 {
			break
		}

		names = append(names, parseOneName(buf[:n]))
	}

	want := []string{"a", "bb", "ccc"}

	if len(names) != len(want) {
		t.Fatalf("got %v entries, want %v", names, want)
	}

	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func parseOneName(buf []byte) string {
	reclen := int(buf[16]) | int(buf[17])<<8
	return string(buf[19 : reclen-1])
}

// TestGetDents64SmallBufferBoundary is scenario S6: a buffer sized exactly
// to the first record returns just that record and advances pos by one;
// the next call (with room for both remaining entries) returns the rest.
func TestGetDents64SmallBufferBoundary(t *testing.T) {
	entries := []dent{{1, 8, "a"}, {2, 8, "bb"}, {3, 8, "ccc"}}
	fsys := mockDirFS(t, entries)

	h := &vfs.Handle{FS: fsys, Inode: nil}

	buf := make([]byte, dentReclen("a"))

	n, err := fsys.GetDents64(h, buf)
	if err != nil {
		t.Fatalf("GetDents64: %v", err)
	}

	if got := parseOneName(buf[:n]); got != "a" {
		t.Fatalf("first call returned %q, want %q", got, "a")
	}

	if h.Pos != 1 {
		t.Fatalf("pos after first call = %d, want 1", h.Pos)
	}

	buf2 := make([]byte, dentReclen("bb")+dentReclen("ccc"))

	n2, err := fsys.GetDents64(h, buf2)
	if err != nil {
		t.Fatalf("second GetDents64: %v", err)
	}

	rest := buf2[:n2]

	first := int(rest[16]) | int(rest[17])<<8
	if got := string(rest[19 : first-1]); got != "bb" {
		t.Fatalf("second call's first entry = %q, want %q", got, "bb")
	}

	rest = rest[first:]

	second := int(rest[16]) | int(rest[17])<<8
	if got := string(rest[19 : second-1]); got != "ccc" {
		t.Fatalf("second call's second entry = %q, want %q", got, "ccc")
	}
}

// TestGetDents64BufferTooSmallForFirstEntry covers the degenerate case: a
// buffer too small for even the first entry fails with zero state change.
func TestGetDents64BufferTooSmallForFirstEntry(t *testing.T) {
	entries := []dent{{1, 8, "ccc"}}
	fsys := mockDirFS(t, entries)

	h := &vfs.Handle{FS: fsys, Inode: nil}

	buf := make([]byte, dentReclen("ccc")-1)

	_, err := fsys.GetDents64(h, buf)
	if err == nil {
		t.Fatal("expected an error for a buffer too small for the first entry")
	}

	if h.Pos != 0 {
		t.Fatalf("pos after failed call = %d, want 0 (no state change)", h.Pos)
	}
}
