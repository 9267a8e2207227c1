package ramfs

import (
	"bytes"
	"testing"
)

func TestCreateDuplicateNameFails(t *testing.T) {
	fs := New(1)

	if _, err := fs.Create(fs.Root(), "a", 0o644); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	if _, err := fs.Create(fs.Root(), "a", 0o644); err == nil {
		t.Fatal("second Create of the same name should fail")
	}
}

func TestWriteReadSparseHole(t *testing.T) {
	fs := New(1)

	n, err := fs.Create(fs.Root(), "sparse", 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h := OpenHandle(n)
	defer h.Close()

	if _, err := h.Seek(int64(PageSize)+100, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	payload := []byte("past a hole")
	if _, err := h.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, PageSize+100+len(payload))

	if _, err := h.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek back: %v", err)
	}

	total := 0
	for total < len(buf) {
		k, err := h.Read(buf[total:])
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		if k == 0 {
			break
		}

		total += k
	}

	if total != len(buf) {
		t.Fatalf("read %d bytes, want %d", total, len(buf))
	}

	for i := 0; i < PageSize+100; i++ {
		if buf[i] != 0 {
			t.Fatalf("hole byte %d = %#x, want 0", i, buf[i])
		}
	}

	if !bytes.Equal(buf[PageSize+100:], payload) {
		t.Fatalf("payload mismatch: got %q, want %q", buf[PageSize+100:], payload)
	}
}

func TestTruncateDropsTrailingBlocks(t *testing.T) {
	fs := New(1)

	n, err := fs.Create(fs.Root(), "big", 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h := OpenHandle(n)
	defer h.Close()

	if _, err := h.Write(bytes.Repeat([]byte{1}, 3*PageSize)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := h.Truncate(PageSize + 10); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	if n.size != PageSize+10 {
		t.Fatalf("size after truncate = %d, want %d", n.size, PageSize+10)
	}

	if n.blocks.Size() != 2 {
		t.Fatalf("remaining blocks = %d, want 2", n.blocks.Size())
	}
}

func TestUnlinkThenRecreateSameName(t *testing.T) {
	fs := New(1)

	if _, err := fs.Create(fs.Root(), "f", 0o644); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := fs.Unlink(fs.Root(), "f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if _, err := fs.GetEntry(fs.Root(), "f"); err == nil {
		t.Fatal("GetEntry should fail after unlink")
	}

	if _, err := fs.Create(fs.Root(), "f", 0o644); err != nil {
		t.Fatalf("Create after unlink: %v", err)
	}
}

func TestRmdirRejectsNonEmptyDirectory(t *testing.T) {
	fs := New(1)

	dir, err := fs.Mkdir(fs.Root(), "d", 0o755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if _, err := fs.Create(dir, "child", 0o644); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := fs.Rmdir(fs.Root(), "d"); err == nil {
		t.Fatal("Rmdir of a non-empty directory should fail")
	}

	if err := fs.Unlink(dir, "child"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if err := fs.Rmdir(fs.Root(), "d"); err != nil {
		t.Fatalf("Rmdir after emptying: %v", err)
	}
}

func TestGetDentsLexicographicOrder(t *testing.T) {
	fs := New(1)

	for _, name := range []string{"ccc", "a", "bb"} {
		if _, err := fs.Create(fs.Root(), name, 0o644); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}

	var got []string

	err := fs.GetDents(fs.Root(), func(ino uint64, dtype uint8, name string) bool {
		got = append(got, name)
		return true
	})
	if err != nil {
		t.Fatalf("GetDents: %v", err)
	}

	want := []string{"a", "bb", "ccc"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSymlinkReadlink(t *testing.T) {
	fs := New(1)

	n, err := fs.Symlink(fs.Root(), "link", "/target")
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	target, err := fs.Readlink(n)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}

	if target != "/target" {
		t.Fatalf("Readlink = %q, want %q", target, "/target")
	}
}
