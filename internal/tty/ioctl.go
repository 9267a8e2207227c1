// Package tty implements the console ioctl request boundary: termios,
// window size, and keyboard/video mode, using golang.org/x/sys/unix's
// Linux termios layout for the raw syscall structures.
package tty

import (
	"github.com/sparrowkernel/sparrow/internal/kerrno"
	"golang.org/x/sys/unix"
)

// Requests are the supported ioctl numbers. Numeric values follow the
// Linux asm-generic ioctl numbering so a real unix.IoctlGetTermios/
// SetTermios pair could back this boundary unmodified on a Linux host.
const (
	TCGETS     = 0x5401
	TCSETS     = 0x5402
	TCSETSW    = 0x5403
	TCSETSF    = 0x5404
	TIOCGWINSZ = 0x5413
	KDGKBMODE  = 0x4B44
	KDSKBMODE  = 0x4B45
	KDSETMODE  = 0x4B3A
)

// Video and keyboard modes this console accepts.
const (
	KDTextMode     = 0x00
	KDGraphicsMode = 0x01

	KXlate = 0x01
)

// Console is the per-TTY ioctl target: current termios, reported window
// size, and video/keyboard mode, with the special-character table that
// TCSETS* replaces wholesale on every set.
type Console struct {
	termios unix.Termios
	winsize unix.Winsize
	video   int
	kbMode  int
}

// NewConsole returns a Console with the Linux TERM=linux console defaults:
// ICRNL|IXON input flags, OPOST|ONLCR output flags, CREAD|B38400|CS8
// control flags, ISIG|ICANON|ECHO|ECHOE|ECHOK|ECHOCTL|ECHOKE|IEXTEN local
// flags, and the standard control-character table.
func NewConsole(rows, cols uint16) *Console {
	c := &Console{
		winsize: unix.Winsize{Row: rows, Col: cols},
		video:   KDTextMode,
		kbMode:  KXlate,
	}
	c.termios = defaultTermios()

	return c
}

func defaultTermios() unix.Termios {
	t := unix.Termios{
		Iflag: unix.ICRNL | unix.IXON,
		Oflag: unix.OPOST | unix.ONLCR,
		Cflag: unix.CREAD | unix.B38400 | unix.CS8,
		Lflag: unix.ISIG | unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHOCTL | unix.ECHOKE | unix.IEXTEN,
	}

	t.Cc[unix.VINTR] = 0x03
	t.Cc[unix.VQUIT] = 0x1C
	t.Cc[unix.VERASE] = 0x7F
	t.Cc[unix.VKILL] = 0x15
	t.Cc[unix.VEOF] = 0x04
	t.Cc[unix.VSTART] = 0x11
	t.Cc[unix.VSTOP] = 0x13
	t.Cc[unix.VSUSP] = 0x1A
	t.Cc[unix.VEOL] = 0x00

	return t
}

// Ioctl dispatches one of the supported requests. arg is the
// caller-supplied pointer-equivalent: for TCGETS/TIOCGWINSZ/KDGKBMODE it
// is filled in; for TCSETS*/KDSETMODE/KDSKBMODE it is read.
func (c *Console) Ioctl(req uint32, arg any) error {
	switch req {
	case TCGETS:
		t, ok := arg.(*unix.Termios)
		if !ok {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req})
		}

		*t = c.termios

		return nil

	case TCSETS, TCSETSW, TCSETSF:
		t, ok := arg.(*unix.Termios)
		if !ok {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req})
		}

		c.termios = *t

		return nil

	case TIOCGWINSZ:
		ws, ok := arg.(*unix.Winsize)
		if !ok {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req})
		}

		*ws = unix.Winsize{Row: c.winsize.Row, Col: c.winsize.Col}

		return nil

	case KDSETMODE:
		mode, ok := arg.(int)
		if !ok || (mode != KDTextMode && mode != KDGraphicsMode) {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req, "mode": arg})
		}

		c.video = mode

		return nil

	case KDGKBMODE:
		mode, ok := arg.(*int)
		if !ok {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req})
		}

		*mode = c.kbMode

		return nil

	case KDSKBMODE:
		mode, ok := arg.(int)
		if !ok || mode != KXlate {
			return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req, "mode": arg})
		}

		c.kbMode = mode

		return nil

	default:
		return kerrno.Wrap(kerrno.EINVAL, "tty.Ioctl", map[string]any{"req": req})
	}
}
