// Command kernelctl boots a Kernel facade and runs a handful of shell-like
// commands (ls, cat, stat) against a mounted filesystem, the way
// cmd/orizon-kernel exercises InitializeCompleteKernel end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sparrowkernel/sparrow/internal/kernel"
	"github.com/sparrowkernel/sparrow/internal/vfs"
)

func main() {
	fatImage := flag.String("fat", "", "path to a raw FAT12/16/32 image to mount read-only")
	cmdline := flag.String("cmd", "ls /", "command to run: one of 'ls PATH', 'cat PATH', 'stat PATH'")
	flag.Parse()

	k := kernel.New(kernel.DefaultConfig(), kernel.NewSimPorts())

	fmt.Println(k.BootBanner())

	var fsys *vfs.FS

	if *fatImage != "" {
		data, err := os.ReadFile(*fatImage)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelctl: reading image:", err)
			os.Exit(1)
		}

		fsys, err = vfs.MountFAT(data, 1)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelctl: mounting FAT image:", err)
			os.Exit(1)
		}

		fmt.Printf("mounted %s (device 1) read-only\n", *fatImage)
	} else {
		var err error

		fsys, err = vfs.MountRamfs(1)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelctl: mounting ramfs:", err)
			os.Exit(1)
		}

		fmt.Println("mounted an empty ramfs (device 1)")
	}

	if err := run(fsys, *cmdline); err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}
}

func run(fsys *vfs.FS, cmdline string) error {
	fields := strings.Fields(cmdline)
	if len(fields) != 2 {
		return fmt.Errorf("expected 'CMD PATH', got %q", cmdline)
	}

	path := splitPath(fields[1])

	switch fields[0] {
	case "ls":
		return ls(fsys, path)
	case "cat":
		return cat(fsys, path)
	case "stat":
		return statCmd(fsys, path)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}

func ls(fsys *vfs.FS, path []string) error {
	h, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer fsys.Close(h)

	buf := make([]byte, 4096)

	for {
		n, err := fsys.GetDents64(h, buf)
		if err != nil {
			return err
		}

		if n == 0 {
			return nil
		}

		printDents(buf[:n])
	}
}

func printDents(buf []byte) {
	for len(buf) > 0 {
		reclen := int(buf[16]) | int(buf[17])<<8
		dtype := buf[18]
		name := string(buf[19 : reclen-1])

		kind := "-"
		if dtype == 4 {
			kind = "d"
		}

		fmt.Printf("%s %s\n", kind, name)
		buf = buf[reclen:]
	}
}

func cat(fsys *vfs.FS, path []string) error {
	h, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer fsys.Close(h)

	buf := make([]byte, 4096)

	for {
		n, err := h.Read(buf)
		if err != nil {
			return err
		}

		if n == 0 {
			return nil
		}

		os.Stdout.Write(buf[:n])
	}
}

func statCmd(fsys *vfs.FS, path []string) error {
	st, err := fsys.Stat(path)
	if err != nil {
		return err
	}

	fmt.Printf("ino=%d mode=%o size=%d nlink=%d blocks=%d\n", st.Ino, st.Mode, st.Size, st.Nlink, st.Blocks)

	return nil
}
