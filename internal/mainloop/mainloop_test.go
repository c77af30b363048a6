package mainloop

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
	"github.com/dshills/condriver/internal/region"
)

type harness struct {
	loop   *MainLoop[byte]
	out    *console.MemoryOutput
	queue  *console.Queue[byte]
	clock  *fakeClock
	sleeps []time.Duration
	m      *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out:   console.NewMemoryOutput(geom.Size{Width: 4, Height: 2}),
		queue: console.NewQueue[byte](),
		clock: newFakeClock(),
		m:     metrics.New(),
	}
	h.loop = New[byte](Config{
		Now:     h.clock.Now,
		Sleep:   func(d time.Duration) { h.sleeps = append(h.sleeps, d) },
		Metrics: h.m,
	})
	proc := input.NewProcessor[byte](h.queue, input.NewAnsiDecoder(input.AnsiDecoderConfig{}),
		input.ProcessorConfig{Now: h.clock.Now})
	h.loop.Initialize(NewTimedEvents(h.clock.Now), proc, h.out)

	// The first frame paints the whole screen.
	if err := h.loop.Iteration(); err != nil {
		t.Fatalf("first Iteration() error = %v", err)
	}
	if h.out.Frames() != 1 {
		t.Fatalf("first frame count = %d, want 1", h.out.Frames())
	}
	return h
}

func TestIterationIdleWritesNothing(t *testing.T) {
	h := newHarness(t)
	if err := h.loop.Iteration(); err != nil {
		t.Fatalf("Iteration() error = %v", err)
	}
	if h.out.Frames() != 1 {
		t.Errorf("frames = %d, want no new frame", h.out.Frames())
	}
}

func TestIterationWritesOneDirtyCell(t *testing.T) {
	h := newHarness(t)
	b := h.loop.Buffer()
	b.Move(2, 1)
	b.AddRune('x')

	if err := h.loop.Iteration(); err != nil {
		t.Fatalf("Iteration() error = %v", err)
	}
	if h.out.Frames() != 2 {
		t.Errorf("frames = %d, want exactly one new frame", h.out.Frames())
	}
	c, _ := b.Cell(2, 1)
	if c.Dirty {
		t.Error("cell still dirty after write")
	}
}

func TestIterationSleepsRemainder(t *testing.T) {
	h := newHarness(t)
	if len(h.sleeps) != 1 || h.sleeps[0] != DefaultTick {
		t.Errorf("sleeps = %v, want [%v]", h.sleeps, DefaultTick)
	}
	if h.m.Snapshot().Iterations.Count != 1 {
		t.Errorf("iterations = %d, want 1", h.m.Snapshot().Iterations.Count)
	}
}

type clipRoot struct {
	damage *region.Region
	needs  bool
	draws  int
}

func (r *clipRoot) NeedsDraw() (*region.Region, bool) {
	return r.damage, r.needs
}

func (r *clipRoot) Draw(b *output.Buffer) {
	r.draws++
	r.needs = false
	b.Move(0, 0)
	b.AddStr("abcd")
}

func TestIterationDrawsRootInsideDamage(t *testing.T) {
	h := newHarness(t)
	root := &clipRoot{damage: region.New(geom.R(0, 0, 2, 1)), needs: true}
	h.loop.SetRoot(root)

	if err := h.loop.Iteration(); err != nil {
		t.Fatalf("Iteration() error = %v", err)
	}
	if root.draws != 1 {
		t.Fatalf("draws = %d, want 1", root.draws)
	}
	b := h.loop.Buffer()
	for col, want := range []string{"a", "b", " ", " "} {
		c, _ := b.Cell(col, 0)
		got := c.Grapheme
		if got == "" {
			got = " "
		}
		if got != want {
			t.Errorf("cell %d = %q, want %q", col, got, want)
		}
	}
	if b.Clip() != nil {
		t.Error("clip should be removed after drawing")
	}

	h.loop.Iteration()
	if root.draws != 1 {
		t.Error("root drawn again without needing it")
	}
}

func TestIterationFollowsResize(t *testing.T) {
	h := newHarness(t)

	var sizes []geom.Size
	h.loop.SizeChanged.Register(func(s geom.Size) { sizes = append(sizes, s) })

	h.out.SetSize(geom.Size{Width: 6, Height: 3})
	h.loop.Iteration()
	if len(sizes) != 1 || sizes[0] != (geom.Size{Width: 6, Height: 3}) {
		t.Fatalf("SizeChanged = %v", sizes)
	}
	if h.loop.Buffer().Size() != (geom.Size{Width: 6, Height: 3}) {
		t.Errorf("buffer size = %v", h.loop.Buffer().Size())
	}
	if h.out.Frames() != 2 {
		t.Errorf("frames = %d, want a full repaint after resize", h.out.Frames())
	}

	h.out.SetSize(geom.Size{})
	h.loop.Iteration()
	if len(sizes) != 1 {
		t.Error("degenerate size should not resize the buffer")
	}
}

func TestIterationRunsInputTimersAndIdles(t *testing.T) {
	h := newHarness(t)

	var keys []rune
	h.loop.Processor().KeyDown.Register(func(ev *key.Event) { keys = append(keys, ev.Rune) })

	fired := 0
	h.loop.TimedEvents().AddTimeout(10*time.Millisecond, func() bool {
		fired++
		return false
	})
	invoked := 0
	h.loop.TimedEvents().Invoke(func() { invoked++ })

	h.queue.Enqueue('h', 'i')
	h.loop.Iteration()
	if string(keys) != "hi" {
		t.Errorf("keys = %q, want %q", string(keys), "hi")
	}
	if invoked != 1 || fired != 0 {
		t.Errorf("invoked = %d, fired = %d; want 1, 0", invoked, fired)
	}

	h.clock.Advance(10 * time.Millisecond)
	h.loop.Iteration()
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestIterationNotReentrant(t *testing.T) {
	h := newHarness(t)

	var inner error
	h.loop.TimedEvents().Invoke(func() { inner = h.loop.Iteration() })
	h.loop.Iteration()
	if !errors.Is(inner, ErrConcurrentIteration) {
		t.Errorf("nested Iteration() error = %v, want ErrConcurrentIteration", inner)
	}
}

func TestIterationNotInitialized(t *testing.T) {
	loop := New[byte](Config{Sleep: func(time.Duration) {}})
	if err := loop.Iteration(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Iteration() error = %v, want ErrNotInitialized", err)
	}
}

func TestIterationReportsWriteError(t *testing.T) {
	h := newHarness(t)
	h.out.Close()
	h.loop.Buffer().MarkAllDirty()

	ran := false
	h.loop.TimedEvents().Invoke(func() { ran = true })
	err := h.loop.Iteration()
	if !errors.Is(err, console.ErrClosed) {
		t.Errorf("Iteration() error = %v, want ErrClosed", err)
	}
	if !ran {
		t.Error("idles should still run after a write error")
	}
}
