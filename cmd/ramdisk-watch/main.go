// Command ramdisk-watch watches a directory for ".img" files and hot-mounts
// each one as a read-only FAT filesystem as soon as it appears, the way
// internal/runtime/vfs's FSNotifyWatcher drove cache invalidation for a
// host-filesystem façade — here retargeted at FAT ramdisk images instead of
// arbitrary file edits.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sparrowkernel/sparrow/internal/vfs"
)

func main() {
	dir := flag.String("dir", ".", "directory to watch for .img files")
	flag.Parse()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ramdisk-watch:", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Add(*dir); err != nil {
		fmt.Fprintln(os.Stderr, "ramdisk-watch:", err)
		os.Exit(1)
	}

	fmt.Printf("watching %s for .img files\n", *dir)

	mounts := newMountTable()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			handleEvent(mounts, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			fmt.Fprintln(os.Stderr, "ramdisk-watch: watcher error:", err)
		}
	}
}

// mountTable tracks the currently mounted image per path, guarded by a
// mutex since fsnotify events and any future control-plane reads could
// race on it.
type mountTable struct {
	mu     sync.Mutex
	mounts map[string]*vfs.FS
	nextID uint64
}

func newMountTable() *mountTable {
	return &mountTable{mounts: make(map[string]*vfs.FS), nextID: 1}
}

func handleEvent(mounts *mountTable, ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".img") {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		mount(mounts, ev.Name)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		unmount(mounts, ev.Name)
	}
}

func mount(mounts *mountTable, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ramdisk-watch: reading %s: %v\n", path, err)
		return
	}

	mounts.mu.Lock()
	defer mounts.mu.Unlock()

	if old, ok := mounts.mounts[path]; ok {
		old.ExLock()
		old.ExUnlock()
	}

	deviceID := mounts.nextID
	mounts.nextID++

	fsys, err := vfs.MountFAT(data, deviceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ramdisk-watch: mounting %s: %v\n", path, err)
		return
	}

	mounts.mounts[path] = fsys

	fmt.Printf("mounted %s as %s (device %d)\n", path, filepath.Base(path), deviceID)
}

func unmount(mounts *mountTable, path string) {
	mounts.mu.Lock()
	defer mounts.mu.Unlock()

	if fsys, ok := mounts.mounts[path]; ok {
		fsys.ExLock()
		fsys.ExUnlock()
		delete(mounts.mounts, path)

		fmt.Printf("unmounted %s\n", path)
	}
}
