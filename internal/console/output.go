package console

import (
	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/output"
)

// ErrClosed is returned by outputs used after Close.
var ErrClosed = errors.New("console closed")

// Output is a platform display handle. It is created and used on the main
// loop goroutine.
type Output interface {
	// Write flushes the dirty cells of b.
	Write(b *output.Buffer) error

	// Size returns the current window size in cells.
	Size() geom.Size

	// SetCursorVisibility shows or hides the cursor after each frame.
	SetCursorVisibility(visible bool)

	// Close restores the display.
	Close() error
}

// RawWriter is implemented by outputs that share a byte stream with their
// input and can therefore carry terminal queries.
type RawWriter interface {
	WriteRaw(p []byte) error
}
