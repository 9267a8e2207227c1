// Package kerrno provides the stable error-kind vocabulary shared by the
// kernel, vfs, fat and ramfs packages.
package kerrno

import (
	"fmt"
	"runtime"
)

// Errno is one of the stable error kinds named in the core's error handling
// design. Callers compare against the named constants, not the numeric
// value, which mirrors errno on a POSIX system without claiming bit-for-bit
// compatibility with it.
type Errno int

const (
	ENOENT  Errno = -2  // path component missing
	ENOMEM  Errno = -12 // allocation failure
	EFAULT  Errno = -14 // user-memory copy failure
	EEXIST  Errno = -17 // O_CREAT|O_EXCL on an existing file
	ENOTDIR Errno = -20 // directory operation on a non-directory
	EINVAL  Errno = -22 // bad argument
	EBADF   Errno = -9  // operation on a closed or wrongly-typed handle
	EROFS   Errno = -30 // mutation against a read-only filesystem
)

var names = map[Errno]string{
	ENOENT:  "ENOENT",
	ENOMEM:  "ENOMEM",
	EFAULT:  "EFAULT",
	EEXIST:  "EEXIST",
	ENOTDIR: "ENOTDIR",
	EINVAL:  "EINVAL",
	EBADF:   "EBADF",
	EROFS:   "EROFS",
}

func (e Errno) Error() string {
	if n, ok := names[e]; ok {
		return n
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

// KernelError wraps an Errno with the operation that produced it, a context
// map, and the caller's function name, for diagnostics without a
// structured logger.
type KernelError struct {
	Errno   Errno
	Op      string
	Context map[string]any
	Caller  string
}

func (e *KernelError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s (caller: %s)", e.Op, e.Errno, e.Caller)
	}
	return fmt.Sprintf("%s: %s %v (caller: %s)", e.Op, e.Errno, e.Context, e.Caller)
}

func (e *KernelError) Unwrap() error { return e.Errno }

// Wrap builds a *KernelError with the caller's function name attached.
func Wrap(errno Errno, op string, context map[string]any) *KernelError {
	caller := "unknown"

	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &KernelError{Errno: errno, Op: op, Context: context, Caller: caller}
}

// Is allows errors.Is(err, kerrno.ENOENT) to match a wrapped *KernelError.
func (e Errno) Is(target error) bool {
	if other, ok := target.(Errno); ok {
		return e == other
	}

	return false
}
