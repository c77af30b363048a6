//go:build !unix

package posix

import (
	"os"

	"github.com/dshills/condriver/internal/geom"
)

// Source is unavailable on this platform.
type Source struct{}

// OpenSource returns ErrUnsupportedPlatform.
func OpenSource(*os.File) (*Source, error) {
	return nil, ErrUnsupportedPlatform
}

// Peek implements console.Source.
func (s *Source) Peek() (bool, error) { return false, ErrUnsupportedPlatform }

// Read implements console.Source.
func (s *Source) Read() ([]byte, error) { return nil, ErrUnsupportedPlatform }

// Close implements console.Source.
func (s *Source) Close() error { return nil }

// WindowSize reports a zero size on this platform.
func WindowSize(int) func() geom.Size {
	return func() geom.Size { return geom.Size{} }
}

// OpenOutput returns ErrUnsupportedPlatform.
func OpenOutput(*os.File, OutputConfig) (*Output, error) {
	return nil, ErrUnsupportedPlatform
}
