//go:build unix

package posix

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
)

const readBufferSize = 1024

var _ console.Source[byte] = (*Source)(nil)

// Source reads raw bytes from a file descriptor.
type Source struct {
	fd      int
	buf     []byte
	restore *term.State
	closed  bool
}

// NewSource creates a source reading fd as is, without changing its mode.
func NewSource(fd int) *Source {
	return &Source{fd: fd, buf: make([]byte, readBufferSize)}
}

// OpenSource puts the terminal on f into raw mode and returns a source
// reading it. Close restores the previous mode.
func OpenSource(f *os.File) (*Source, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.Errorf("%s is not a terminal", f.Name())
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "entering raw mode")
	}
	s := NewSource(fd)
	s.restore = state
	return s, nil
}

// Peek implements console.Source with a zero-timeout poll.
func (s *Source) Peek() (bool, error) {
	if s.closed {
		return false, console.ErrClosed
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, errors.Wrap(err, "poll")
	}
	if n == 0 {
		return false, nil
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		return false, errors.Errorf("poll revents %#x", fds[0].Revents)
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0, nil
}

// Read implements console.Source. The returned slice is owned by the caller.
func (s *Source) Read() ([]byte, error) {
	if s.closed {
		return nil, console.ErrClosed
	}
	n, err := unix.Read(s.fd, s.buf)
	if err != nil {
		if err == unix.EINTR || err == unix.EAGAIN {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read")
	}
	if n <= 0 {
		return nil, nil
	}
	return append([]byte(nil), s.buf[:n]...), nil
}

// Close restores the terminal mode. The descriptor itself is not closed.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.restore != nil {
		if err := term.Restore(s.fd, s.restore); err != nil {
			return errors.Wrap(err, "restoring terminal mode")
		}
	}
	return nil
}

// WindowSize returns a function reporting the window size of the terminal
// on fd. Sizes that cannot be read are reported as zero.
func WindowSize(fd int) func() geom.Size {
	return func() geom.Size {
		ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
		if err != nil {
			return geom.Size{}
		}
		return geom.Size{Width: int(ws.Col), Height: int(ws.Row)}
	}
}

// OpenOutput creates an output on the terminal f.
func OpenOutput(f *os.File, cfg OutputConfig) (*Output, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return nil, errors.Errorf("%s is not a terminal", f.Name())
	}
	return NewOutput(f, WindowSize(int(f.Fd())), cfg)
}
