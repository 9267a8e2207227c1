package fat

import "github.com/sparrowkernel/sparrow/internal/kerrno"

// Write always fails: the driver is read-only. It returns EBADF (write on
// a read-only fs), distinct from the EINVAL the rest of the unsupported
// operations return.
func (h *Handle) Write(buf []byte) (int, error) {
	return 0, kerrno.Wrap(kerrno.EBADF, "fat.Write", nil)
}

// Ioctl is a stub: the FAT driver exposes no device controls.
func (h *Handle) Ioctl(req uint32, arg uintptr) error {
	return kerrno.Wrap(kerrno.EINVAL, "fat.Ioctl", map[string]any{"req": req})
}

// Fcntl is a stub: the FAT driver exposes no file-control commands.
func (h *Handle) Fcntl(cmd int, arg uintptr) (int, error) {
	return 0, kerrno.Wrap(kerrno.EINVAL, "fat.Fcntl", map[string]any{"cmd": cmd})
}

// Unlink, Mkdir and the rest of the namespace-mutation fsops do not exist
// for this driver; the VFS adapter implements none of the optional mutator
// interfaces, so the VFS layer reports EROFS for them rather than calling
// through to a stub here.
