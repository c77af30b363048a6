package driver

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/config"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/output"
)

func testOptions() Options {
	return Options{
		ReaderTick:  time.Millisecond,
		LoopTick:    time.Millisecond,
		StopTimeout: 2 * time.Second,
		Logger:      logging.Null(),
	}
}

func memoryPlatform(src console.Source[byte], out console.Output) Platform[byte] {
	return Platform[byte]{
		Name:       "memory",
		NewSource:  func(Options) (console.Source[byte], error) { return src, nil },
		NewOutput:  func(Options) (console.Output, error) { return out, nil },
		NewDecoder: NewAnsiDecoder,
	}
}

// plainOutput hides the raw writer of the wrapped output.
type plainOutput struct {
	console.Output
}

// panicSource panics on the first poll.
type panicSource struct {
	closed atomic.Bool
}

func (s *panicSource) Peek() (bool, error) {
	panic("device vanished")
}

func (s *panicSource) Read() ([]byte, error) {
	return nil, nil
}

func (s *panicSource) Close() error {
	s.closed.Store(true)
	return nil
}

func start(t *testing.T, c *Coordinator[byte]) *Driver {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if d == nil {
		t.Fatal("Start() returned a nil driver")
	}
	return d
}

// iterateUntil runs iterations until cond holds or the deadline passes.
func iterateUntil(t *testing.T, c *Coordinator[byte], cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		if err := c.Iteration(); err != nil {
			t.Fatalf("Iteration() error = %v", err)
		}
	}
}

func TestStartStop(t *testing.T) {
	src := console.NewMemorySource[byte]()
	out := console.NewMemoryOutput(geom.Size{Width: 20, Height: 5})
	c := NewCoordinator(memoryPlatform(src, out), testOptions())

	d := start(t, c)
	if Active() != d {
		t.Error("Active() should return the started driver")
	}
	if d.Platform() != "memory" {
		t.Errorf("Platform() = %q", d.Platform())
	}
	if got := d.Size(); got != (geom.Size{Width: 20, Height: 5}) {
		t.Errorf("Size() = %v", got)
	}
	if b := d.Buffer(); b == nil || b.Size() != (geom.Size{Width: 20, Height: 5}) {
		t.Error("Buffer() should match the output size")
	}

	begin := time.Now()
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Stop() took %v", elapsed)
	}
	if !src.Closed() {
		t.Error("Stop() should close the input source")
	}
	if err := out.Write(output.NewBuffer(1, 1)); !errors.Is(err, console.ErrClosed) {
		t.Errorf("output after Stop: err = %v, want ErrClosed", err)
	}
	if Active() != nil {
		t.Error("Active() should be nil after Stop")
	}
	if err := c.Iteration(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Iteration() after Stop = %v, want ErrNotStarted", err)
	}
}

func TestLifecycleMisuse(t *testing.T) {
	c := NewCoordinator(memoryPlatform(console.NewMemorySource[byte](), console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})), testOptions())

	if err := c.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop() before Start = %v, want ErrNotStarted", err)
	}
	if err := c.Iteration(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Iteration() before Start = %v, want ErrNotStarted", err)
	}

	start(t, c)
	defer c.Stop()

	if _, err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	var outputs []*console.MemoryOutput
	p := Platform[byte]{
		Name: "memory",
		NewSource: func(Options) (console.Source[byte], error) {
			return console.NewMemorySource[byte](), nil
		},
		NewOutput: func(Options) (console.Output, error) {
			o := console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})
			outputs = append(outputs, o)
			return o, nil
		},
		NewDecoder: NewAnsiDecoder,
	}
	c := NewCoordinator(p, testOptions())

	first := start(t, c)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	second := start(t, c)
	defer c.Stop()

	if first == second {
		t.Error("a restart should assemble a new driver")
	}
	if len(outputs) != 2 {
		t.Errorf("outputs created = %d, want 2", len(outputs))
	}
}

func TestInputFactoryFailure(t *testing.T) {
	factoryErr := errors.New("no tty")
	out := console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})
	p := memoryPlatform(nil, out)
	p.NewSource = func(Options) (console.Source[byte], error) { return nil, factoryErr }
	c := NewCoordinator(p, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	d, err := c.Start(ctx)
	if d != nil {
		t.Error("Start() should not return a driver")
	}
	var ierr *InitError
	if !errors.As(err, &ierr) || ierr.Component != "input" {
		t.Fatalf("err = %v, want InitError for input", err)
	}
	if !errors.Is(err, factoryErr) {
		t.Errorf("err = %v, want it to wrap the factory error", err)
	}
	if ctx.Err() == nil {
		t.Error("Start() should wait for the context before giving up")
	}
	if werr := out.Write(output.NewBuffer(1, 1)); !errors.Is(werr, console.ErrClosed) {
		t.Error("a failed start should close the output")
	}
	if Active() != nil {
		t.Error("Active() should be nil after a failed start")
	}
}

func TestOutputFactoryFailure(t *testing.T) {
	factoryErr := errors.New("no screen")
	src := console.NewMemorySource[byte]()
	p := memoryPlatform(src, nil)
	p.NewOutput = func(Options) (console.Output, error) { return nil, factoryErr }
	c := NewCoordinator(p, testOptions())

	_, err := c.Start(context.Background())
	var ierr *InitError
	if !errors.As(err, &ierr) || ierr.Component != "output" {
		t.Fatalf("err = %v, want InitError for output", err)
	}
	if ierr.Error() != "init output: no screen" {
		t.Errorf("Error() = %q", ierr.Error())
	}
	if !src.Closed() {
		t.Error("the reader should be stopped and its source closed")
	}
	if err := c.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop() after failed start = %v, want ErrNotStarted", err)
	}
}

func TestReaderPanicIsContained(t *testing.T) {
	src := &panicSource{}
	out := console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})
	p := Platform[byte]{
		Name:       "memory",
		NewSource:  func(Options) (console.Source[byte], error) { return src, nil },
		NewOutput:  func(Options) (console.Output, error) { return out, nil },
		NewDecoder: NewAnsiDecoder,
	}
	c := NewCoordinator(p, testOptions())
	start(t, c)

	// The main loop keeps running without input.
	for i := 0; i < 3; i++ {
		if err := c.Iteration(); err != nil {
			t.Fatalf("Iteration() error = %v", err)
		}
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !src.closed.Load() {
		t.Error("the source should be closed after the reader exits")
	}
}

// peekSignalSource reports its first Peek, which happens only once the
// reader is running.
type peekSignalSource struct {
	*console.MemorySource[byte]
	once   sync.Once
	peeked chan struct{}
}

func newPeekSignalSource() *peekSignalSource {
	return &peekSignalSource{
		MemorySource: console.NewMemorySource[byte](),
		peeked:       make(chan struct{}),
	}
}

func (s *peekSignalSource) Peek() (bool, error) {
	s.once.Do(func() { close(s.peeked) })
	return s.MemorySource.Peek()
}

type startResult struct {
	d   *Driver
	err error
}

func startAsync(c *Coordinator[byte]) <-chan startResult {
	res := make(chan startResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d, err := c.Start(ctx)
		res <- startResult{d, err}
	}()
	return res
}

func expectPending(t *testing.T, res <-chan startResult) {
	t.Helper()
	select {
	case r := <-res:
		t.Fatalf("Start() returned early: driver = %v, err = %v", r.d, r.err)
	case <-time.After(20 * time.Millisecond):
	}
}

func expectStarted(t *testing.T, res <-chan startResult) *Driver {
	t.Helper()
	select {
	case r := <-res:
		if r.err != nil {
			t.Fatalf("Start() error = %v", r.err)
		}
		if r.d == nil {
			t.Fatal("Start() returned a nil driver")
		}
		return r.d
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return")
	}
	return nil
}

func TestStartWaitsForSlowInput(t *testing.T) {
	release := make(chan struct{})
	outputCreated := make(chan struct{})
	var sourceCreated atomic.Bool

	p := Platform[byte]{
		Name: "memory",
		NewSource: func(Options) (console.Source[byte], error) {
			<-release
			sourceCreated.Store(true)
			return console.NewMemorySource[byte](), nil
		},
		NewOutput: func(Options) (console.Output, error) {
			defer close(outputCreated)
			return console.NewMemoryOutput(geom.Size{Width: 4, Height: 2}), nil
		},
		NewDecoder: NewAnsiDecoder,
	}
	c := NewCoordinator(p, testOptions())

	res := startAsync(c)
	<-outputCreated
	expectPending(t, res)

	close(release)
	expectStarted(t, res)
	defer c.Stop()
	if !sourceCreated.Load() {
		t.Error("Start() returned before the input source existed")
	}
}

func TestStartWaitsForSlowOutput(t *testing.T) {
	release := make(chan struct{})
	src := newPeekSignalSource()
	var outputCreated atomic.Bool

	p := Platform[byte]{
		Name:      "memory",
		NewSource: func(Options) (console.Source[byte], error) { return src, nil },
		NewOutput: func(Options) (console.Output, error) {
			<-release
			outputCreated.Store(true)
			return console.NewMemoryOutput(geom.Size{Width: 4, Height: 2}), nil
		},
		NewDecoder: NewAnsiDecoder,
	}
	c := NewCoordinator(p, testOptions())

	res := startAsync(c)
	<-src.peeked
	expectPending(t, res)

	close(release)
	d := expectStarted(t, res)
	defer c.Stop()
	if !outputCreated.Load() {
		t.Error("Start() returned before the output existed")
	}
	if d.Size() != (geom.Size{Width: 4, Height: 2}) {
		t.Errorf("Size() = %v", d.Size())
	}
}

func TestLateInputFromAbandonedStartIsIgnored(t *testing.T) {
	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})
	defer close(releaseSecond)

	firstSrc := console.NewMemorySource[byte]()
	var calls atomic.Int32
	p := Platform[byte]{
		Name: "memory",
		NewSource: func(Options) (console.Source[byte], error) {
			if calls.Add(1) == 1 {
				<-releaseFirst
				return firstSrc, nil
			}
			<-releaseSecond
			return console.NewMemorySource[byte](), nil
		},
		NewOutput: func(Options) (console.Output, error) {
			return console.NewMemoryOutput(geom.Size{Width: 4, Height: 2}), nil
		},
		NewDecoder: NewAnsiDecoder,
	}
	opts := testOptions()
	opts.StopTimeout = 10 * time.Millisecond
	c := NewCoordinator(p, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Start(ctx); err == nil {
		t.Fatal("first Start() should time out")
	}

	// The first source turns up while the second start is waiting for its own.
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(releaseFirst)
	}()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel2()
	d, err := c.Start(ctx2)
	if d != nil {
		t.Error("second Start() returned a driver without its own input source")
	}
	var ierr *InitError
	if !errors.As(err, &ierr) || ierr.Component != "input" {
		t.Errorf("second Start() err = %v, want InitError for input", err)
	}

	deadline := time.Now().Add(time.Second)
	for !firstSrc.Closed() {
		if time.Now().After(deadline) {
			t.Fatal("the late source should be closed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestKeyDelivery(t *testing.T) {
	src := console.NewMemorySource[byte]()
	out := console.NewMemoryOutput(geom.Size{Width: 10, Height: 2})
	c := NewCoordinator(memoryPlatform(src, out), testOptions())
	d := start(t, c)
	defer c.Stop()

	var down, up []string
	d.OnKeyDown(func(ev *key.Event) {
		down = append(down, ev.String())
		ev.Handled = true
	})
	d.OnKeyUp(func(ev *key.Event) {
		if ev.Handled {
			t.Error("KeyUp should start unhandled")
		}
		up = append(up, ev.String())
	})

	src.Push([]byte("hi\x11")...)
	iterateUntil(t, c, func() bool { return len(up) == 3 })

	if len(down) != 3 || down[0] != key.NewRuneEvent('h', 0).String() {
		t.Errorf("down = %v", down)
	}
	quit := key.MustParse("Ctrl+Q")
	if down[2] != quit.String() {
		t.Errorf("down[2] = %q, want %q", down[2], quit.String())
	}
}

func TestSchedulingAndDrawing(t *testing.T) {
	src := console.NewMemorySource[byte]()
	out := console.NewMemoryOutput(geom.Size{Width: 10, Height: 2})
	c := NewCoordinator(memoryPlatform(src, out), testOptions())
	d := start(t, c)
	defer c.Stop()

	var timeouts, idles int
	done := make(chan struct{})
	go d.Invoke(func() {
		b := d.Buffer()
		b.Move(0, 0)
		b.AddRune('x')
		close(done)
	})
	d.AddTimeout(time.Millisecond, func() bool {
		timeouts++
		return false
	})
	tok := d.AddIdle(func() bool {
		idles++
		return true
	})

	iterateUntil(t, c, func() bool {
		select {
		case <-done:
			return timeouts == 1 && idles >= 2
		default:
			return false
		}
	})
	d.RemoveIdle(tok)
	before := idles
	iterateUntil(t, c, func() bool { return bytes.Contains(out.Bytes(), []byte("x")) })
	if idles != before {
		t.Errorf("idle ran after RemoveIdle: %d -> %d", before, idles)
	}
	if d.Metrics().Snapshot().Iterations.Count == 0 {
		t.Error("iterations should be counted")
	}
}

func TestQueueAnsiRequest(t *testing.T) {
	src := console.NewMemorySource[byte]()
	out := console.NewMemoryOutput(geom.Size{Width: 10, Height: 2})
	c := NewCoordinator(memoryPlatform(src, out), testOptions())
	d := start(t, c)
	defer c.Stop()

	var pos *geom.Point
	if err := d.QueueAnsiRequest(ansi.RequestCursorPosition(func(p geom.Point) { pos = &p })); err != nil {
		t.Fatalf("QueueAnsiRequest() error = %v", err)
	}
	raw := out.Raw()
	if len(raw) != 1 || string(raw[0]) != "\x1b[6n" {
		t.Fatalf("raw writes = %q", raw)
	}

	src.Push([]byte("\x1b[5;10R")...)
	iterateUntil(t, c, func() bool { return pos != nil })
	if *pos != geom.Pt(9, 4) {
		t.Errorf("cursor = %v, want (9,4)", *pos)
	}
}

func TestQueueAnsiRequestUnsupported(t *testing.T) {
	out := plainOutput{console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})}
	c := NewCoordinator(memoryPlatform(console.NewMemorySource[byte](), out), testOptions())
	d := start(t, c)
	defer c.Stop()

	err := d.QueueAnsiRequest(ansi.RequestCursorPosition(func(geom.Point) {}))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCoordinator(memoryPlatform(console.NewMemorySource[byte](), console.NewMemoryOutput(geom.Size{Width: 4, Height: 2})), testOptions())
	d := start(t, c)
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	d.AddIdle(func() bool {
		n++
		if n == 3 {
			cancel()
		}
		return true
	})
	if err := c.Run(ctx); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
	if n != 3 {
		t.Errorf("iterations = %d, want 3", n)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LoopTick = config.Duration(10 * time.Millisecond)
	cfg.Mouse.Enabled = false
	cfg.ColorMode = "256"

	opts := FromConfig(cfg)
	if opts.LoopTick != 10*time.Millisecond {
		t.Errorf("LoopTick = %v", opts.LoopTick)
	}
	if opts.ReaderTick != 20*time.Millisecond {
		t.Errorf("ReaderTick = %v", opts.ReaderTick)
	}
	if opts.Mouse {
		t.Error("Mouse should be disabled")
	}
	if opts.ColorMode != output.ColorMode256 {
		t.Errorf("ColorMode = %v", opts.ColorMode)
	}
	if opts.MouseConfig.DoubleClickThreshold != 500*time.Millisecond {
		t.Errorf("DoubleClickThreshold = %v", opts.MouseConfig.DoubleClickThreshold)
	}
}
