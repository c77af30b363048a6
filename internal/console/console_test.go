package console

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[byte]()
	q.Enqueue('a', 'b')
	q.Enqueue()
	q.Enqueue('c')

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := string(q.Drain()); got != "abc" {
		t.Errorf("Drain() = %q, want %q", got, "abc")
	}
	if got := q.Drain(); got != nil {
		t.Errorf("second Drain() = %v, want nil", got)
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := NewQueue[int]()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				q.Enqueue(i)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		total += len(q.Drain())
		select {
		case <-done:
			total += len(q.Drain())
			if total != 1000 {
				t.Errorf("drained %d records, want 1000", total)
			}
			return
		default:
		}
	}
}

func TestReaderPoll(t *testing.T) {
	src := NewMemorySource[byte]()
	m := metrics.New()
	r := NewReader[byte](src, ReaderConfig{Metrics: m})
	q := NewQueue[byte]()
	r.Initialize(q)

	if n := r.Poll(); n != 0 {
		t.Errorf("Poll() on empty source = %d, want 0", n)
	}

	src.Push([]byte("hello")...)
	if n := r.Poll(); n != 5 {
		t.Errorf("Poll() = %d, want 5", n)
	}
	if got := string(q.Drain()); got != "hello" {
		t.Errorf("queue = %q, want %q", got, "hello")
	}
}

func TestReaderFaultsAreNoInput(t *testing.T) {
	tests := []struct {
		name    string
		peekErr error
		readErr error
	}{
		{"peek", errors.New("peek failed"), nil},
		{"read", nil, errors.New("read failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewMemorySource[byte]()
			m := metrics.New()
			r := NewReader[byte](src, ReaderConfig{Metrics: m})
			q := NewQueue[byte]()
			r.Initialize(q)

			src.Push('x')
			src.FailWith(tt.peekErr, tt.readErr)
			if n := r.Poll(); n != 0 {
				t.Errorf("Poll() = %d, want 0", n)
			}
			if got := m.Snapshot().ReadFaults; got != 1 {
				t.Errorf("ReadFaults = %d, want 1", got)
			}

			src.FailWith(nil, nil)
			if n := r.Poll(); n != 1 {
				t.Errorf("Poll() after recovery = %d, want 1", n)
			}
		})
	}
}

// floodSource always has one more byte to read.
type floodSource struct {
	mu    sync.Mutex
	reads int
}

func (s *floodSource) Peek() (bool, error) {
	return true, nil
}

func (s *floodSource) Read() ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return []byte{'x'}, nil
}

func (s *floodSource) Close() error {
	return nil
}

func (s *floodSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func TestReaderPollReadsOncePerCall(t *testing.T) {
	src := &floodSource{}
	r := NewReader[byte](src, ReaderConfig{})
	q := NewQueue[byte]()
	r.Initialize(q)

	if n := r.Poll(); n != 1 {
		t.Errorf("Poll() = %d, want 1", n)
	}
	if got := src.Reads(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
}

func TestReaderRunStopsUnderContinuousInput(t *testing.T) {
	src := &floodSource{}
	r := NewReader[byte](src, ReaderConfig{Tick: time.Millisecond})
	q := NewQueue[byte]()
	r.Initialize(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel while input kept arriving")
	}
	if q.Len() == 0 {
		t.Error("expected records from the flooding source")
	}
}

func TestReaderRunUninitialized(t *testing.T) {
	r := NewReader[byte](NewMemorySource[byte](), ReaderConfig{})
	if err := r.Run(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run() error = %v, want ErrNotInitialized", err)
	}
}

func TestReaderRunDeliversAndStops(t *testing.T) {
	src := NewMemorySource[byte]()
	m := metrics.New()
	r := NewReader[byte](src, ReaderConfig{Tick: 5 * time.Millisecond, Metrics: m})
	q := NewQueue[byte]()
	r.Initialize(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	src.Push('q')
	deadline := time.After(2 * time.Second)
	for q.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("record never delivered")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if m.Snapshot().InputTicks.Count == 0 {
		t.Error("expected input ticks to be recorded")
	}
	if err := r.Dispose(); err != nil {
		t.Errorf("Dispose() error = %v", err)
	}
	if !src.Closed() {
		t.Error("Dispose should close the source")
	}
}

func TestRecordString(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{KeyRecord(*key.NewRuneEvent('a', 0)), "key a"},
		{ResizeRecord(geom.Size{Width: 80, Height: 24}), "resize 80x24"},
		{Record{}, "RecordKind(0)"},
	}

	for _, tt := range tests {
		if got := tt.rec.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMemoryOutput(t *testing.T) {
	o := NewMemoryOutput(geom.Size{Width: 4, Height: 2})
	b := output.NewBuffer(4, 2)

	if err := o.Write(b); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := o.Write(b); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if o.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1 (second write had nothing dirty)", o.Frames())
	}

	if err := o.WriteRaw([]byte("\x1b[6n")); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	if raw := o.Raw(); len(raw) != 1 || string(raw[0]) != "\x1b[6n" {
		t.Errorf("Raw() = %q", raw)
	}

	_ = o.Close()
	if err := o.Write(b); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
}
