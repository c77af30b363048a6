package console

import (
	"bytes"
	"sync"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/output"
)

// MemorySource is an in-memory Source for tests and headless use.
type MemorySource[T any] struct {
	mu      sync.Mutex
	pending []T
	peekErr error
	readErr error
	closed  bool
}

// NewMemorySource creates an empty source.
func NewMemorySource[T any]() *MemorySource[T] {
	return &MemorySource[T]{}
}

// Push makes records available to the next Read.
func (s *MemorySource[T]) Push(records ...T) {
	s.mu.Lock()
	s.pending = append(s.pending, records...)
	s.mu.Unlock()
}

// FailWith makes Peek and Read return the given errors until cleared with nil.
func (s *MemorySource[T]) FailWith(peekErr, readErr error) {
	s.mu.Lock()
	s.peekErr, s.readErr = peekErr, readErr
	s.mu.Unlock()
}

// Peek implements Source.
func (s *MemorySource[T]) Peek() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.peekErr != nil {
		return false, s.peekErr
	}
	return len(s.pending) > 0, nil
}

// Read implements Source.
func (s *MemorySource[T]) Read() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.readErr != nil {
		return nil, s.readErr
	}
	records := s.pending
	s.pending = nil
	return records, nil
}

// Close implements Source.
func (s *MemorySource[T]) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySource[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryOutput is an Output rendering into memory through an AnsiWriter.
type MemoryOutput struct {
	sizeMu sync.Mutex
	size   geom.Size

	mu     sync.Mutex
	buf    bytes.Buffer
	writer *output.AnsiWriter
	frames int
	raw    [][]byte
	closed bool
}

// NewMemoryOutput creates an output reporting the given size.
func NewMemoryOutput(size geom.Size) *MemoryOutput {
	o := &MemoryOutput{size: size}
	o.writer = output.NewAnsiWriter(&o.buf, output.WriterConfig{WindowSize: o.Size})
	return o
}

// Write implements Output. Only frames that produced bytes are counted.
func (o *MemoryOutput) Write(b *output.Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	n, err := o.writer.Write(b)
	if err != nil {
		return err
	}
	if n > 0 {
		o.frames++
	}
	return nil
}

// WriteRaw implements RawWriter.
func (o *MemoryOutput) WriteRaw(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.raw = append(o.raw, append([]byte(nil), p...))
	return nil
}

// Size implements Output.
func (o *MemoryOutput) Size() geom.Size {
	o.sizeMu.Lock()
	defer o.sizeMu.Unlock()
	return o.size
}

// SetSize changes the size reported to the main loop.
func (o *MemoryOutput) SetSize(size geom.Size) {
	o.sizeMu.Lock()
	o.size = size
	o.sizeMu.Unlock()
}

// SetCursorVisibility implements Output.
func (o *MemoryOutput) SetCursorVisibility(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writer.SetCursorVisibility(visible)
}

// Close implements Output.
func (o *MemoryOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// Frames returns the number of non-empty frames written.
func (o *MemoryOutput) Frames() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

// Bytes returns everything written by Write so far.
func (o *MemoryOutput) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]byte(nil), o.buf.Bytes()...)
}

// Raw returns the payloads passed to WriteRaw, in order.
func (o *MemoryOutput) Raw() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][]byte(nil), o.raw...)
}
