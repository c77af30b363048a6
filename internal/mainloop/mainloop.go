// Package mainloop runs the single-threaded driver scheduler: input
// processing, redraw, query timeouts, timers and idle callbacks.
package mainloop

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
	"github.com/dshills/condriver/internal/region"
)

// DefaultTick is the target duration of one iteration.
const DefaultTick = 50 * time.Millisecond

var (
	// ErrNotInitialized is returned by Iteration before Initialize.
	ErrNotInitialized = errors.New("main loop not initialized")

	// ErrConcurrentIteration is returned when Iteration is re-entered.
	ErrConcurrentIteration = errors.New("main loop iteration already running")
)

// Root is the top of the widget tree.
type Root interface {
	// NeedsDraw reports whether a frame must be drawn. The region limits
	// drawing to the damaged area; nil means the whole screen.
	NeedsDraw() (*region.Region, bool)

	// Draw renders into the buffer. Writes outside the clip are dropped.
	Draw(b *output.Buffer)
}

// Config configures a MainLoop.
type Config struct {
	// Tick is the target duration of one iteration. Defaults to DefaultTick.
	Tick time.Duration

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time

	// Sleep waits out the rest of a tick. Defaults to time.Sleep.
	Sleep func(time.Duration)

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// MainLoop drives one console. All methods except the accessors must be
// called from the goroutine running Iteration.
type MainLoop[T any] struct {
	// SizeChanged is notified after the buffer follows a new window size.
	SizeChanged *input.Observers[geom.Size]

	iterMu      sync.Mutex
	initialized bool

	timed     *TimedEvents
	processor *input.Processor[T]
	out       console.Output
	scheduler *ansi.Scheduler
	root      Root

	buffer *output.Buffer
	size   geom.Size

	tick    time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates an uninitialized loop.
func New[T any](cfg Config) *MainLoop[T] {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &MainLoop[T]{
		SizeChanged: input.NewObservers[geom.Size](nil),
		tick:        cfg.Tick,
		now:         cfg.Now,
		sleep:       cfg.Sleep,
		log:         logging.OrDefault(cfg.Logger).WithComponent("mainloop"),
		metrics:     cfg.Metrics,
	}
}

// Initialize wires the loop to its collaborators and sizes the buffer to
// the output.
func (m *MainLoop[T]) Initialize(timed *TimedEvents, processor *input.Processor[T], out console.Output) {
	m.timed = timed
	m.processor = processor
	m.out = out

	m.size = out.Size()
	m.buffer = output.NewBuffer(max(m.size.Width, 0), max(m.size.Height, 0))
	m.initialized = true
	m.log.Debug("initialized at %dx%d", m.size.Width, m.size.Height)
}

// SetScheduler sets the query scheduler whose timeouts run each iteration.
func (m *MainLoop[T]) SetScheduler(s *ansi.Scheduler) {
	m.scheduler = s
}

// SetRoot sets the widget tree drawn by the loop.
func (m *MainLoop[T]) SetRoot(root Root) {
	m.root = root
}

// Buffer returns the output buffer.
func (m *MainLoop[T]) Buffer() *output.Buffer {
	return m.buffer
}

// Size returns the last window size the buffer was sized to.
func (m *MainLoop[T]) Size() geom.Size {
	return m.size
}

// TimedEvents returns the timer and idle collection.
func (m *MainLoop[T]) TimedEvents() *TimedEvents {
	return m.timed
}

// Processor returns the input processor.
func (m *MainLoop[T]) Processor() *input.Processor[T] {
	return m.processor
}

// Output returns the console output.
func (m *MainLoop[T]) Output() console.Output {
	return m.out
}

// Iteration runs one pass: drain input, follow the window size, draw and
// write if needed, expire queries, run due timers and idle callbacks, then
// sleep for the rest of the tick. A write error is returned after the
// remaining steps have run.
func (m *MainLoop[T]) Iteration() error {
	if !m.iterMu.TryLock() {
		return ErrConcurrentIteration
	}
	defer m.iterMu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}

	sw := metrics.StartStopwatch(m.now)

	m.processor.ProcessQueue()
	m.checkSize()
	err := m.render()
	if m.scheduler != nil {
		m.scheduler.RunTimeouts()
	}
	m.timed.RunTimers()
	m.timed.RunIdles()

	m.metrics.RecordIteration(sw.Elapsed())
	if wait := sw.Remaining(m.tick); wait > 0 {
		m.sleep(wait)
	}
	return err
}

func (m *MainLoop[T]) checkSize() {
	size := m.out.Size()
	if size == m.size || size.IsDegenerate() {
		return
	}
	m.log.Debug("window resized %dx%d -> %dx%d", m.size.Width, m.size.Height, size.Width, size.Height)
	m.size = size
	m.buffer.Resize(size.Width, size.Height)
	m.SizeChanged.Notify(size)
}

func (m *MainLoop[T]) render() error {
	if m.root != nil {
		if damage, ok := m.root.NeedsDraw(); ok {
			m.buffer.SetClip(damage)
			m.root.Draw(m.buffer)
			m.buffer.SetClip(nil)
		}
	}

	if !m.buffer.IsDirty() {
		return nil
	}
	if err := m.out.Write(m.buffer); err != nil {
		m.log.Warn("write failed: %v", err)
		return errors.Wrap(err, "writing frame")
	}
	return nil
}
