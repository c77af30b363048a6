package driver

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/input"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/mainloop"
)

// Coordinator starts and stops one driver over platform records of type T.
// A Coordinator can be started again after Stop.
type Coordinator[T any] struct {
	platform Platform[T]
	opts     Options
	log      *logging.Logger

	mu  sync.Mutex
	cur *run[T]
}

// run is the state of one Start. Goroutines left over from an earlier run
// hold their own run and are ignored once it is no longer current.
type run[T any] struct {
	gate   *semaphore.Weighted
	queue  *console.Queue[T]
	cancel context.CancelFunc
	done   chan struct{}
	errc   chan error

	// Guarded by Coordinator.mu.
	readerReady bool
	loopReady   bool
	loop        *mainloop.MainLoop[T]
	out         console.Output
	scheduler   *ansi.Scheduler
	driver      *Driver
}

// NewCoordinator creates a stopped coordinator.
func NewCoordinator[T any](platform Platform[T], opts Options) *Coordinator[T] {
	opts = opts.withDefaults()
	return &Coordinator[T]{
		platform: platform,
		opts:     opts,
		log:      opts.Logger.WithComponent("driver").WithField("platform", platform.Name),
	}
}

// Options returns the resolved options.
func (c *Coordinator[T]) Options() Options {
	return c.opts
}

// Start brings up the reader goroutine and the main loop and returns the
// driver once both are ready, in whichever order they finish.
//
// If the input source cannot be created the reader never reports ready and
// Start waits until ctx is done; it then returns an *InitError for the
// input component. Output failures are returned immediately.
func (c *Coordinator[T]) Start(ctx context.Context) (*Driver, error) {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}

	readerCtx, cancel := context.WithCancel(context.Background())
	r := &run[T]{
		gate:   semaphore.NewWeighted(1),
		queue:  console.NewQueue[T](),
		cancel: cancel,
		done:   make(chan struct{}),
		errc:   make(chan error, 1),
	}
	// Held until both sides are ready. A fresh semaphore always grants.
	r.gate.TryAcquire(1)
	c.cur = r
	c.mu.Unlock()

	c.log.Debug("starting")
	go c.runReader(readerCtx, r)

	if err := c.initLoop(r); err != nil {
		c.abort()
		return nil, err
	}

	if err := r.gate.Acquire(ctx, 1); err != nil {
		select {
		case rerr := <-r.errc:
			err = &InitError{Component: "input", Err: rerr}
		default:
			err = &InitError{Component: "input", Err: err}
		}
		c.log.Error("start abandoned: %v", err)
		c.abort()
		return nil, err
	}
	r.gate.Release(1)

	c.mu.Lock()
	d := r.driver
	c.mu.Unlock()
	register(d)
	c.log.Info("started")
	return d, nil
}

// runReader owns the input source for its whole life.
func (c *Coordinator[T]) runReader(ctx context.Context, r *run[T]) {
	defer close(r.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if p := recover(); p != nil {
			c.log.ErrorStack("input reader panicked", errors.Errorf("%v", p))
		}
	}()

	src, err := c.platform.NewSource(c.opts)
	if err != nil {
		c.log.ErrorStack("creating input source", errors.WithStack(err))
		r.errc <- err
		return
	}

	reader := console.NewReader(src, console.ReaderConfig{
		Tick:    c.opts.ReaderTick,
		Now:     c.opts.Now,
		Logger:  c.opts.Logger,
		Metrics: c.opts.Metrics,
	})
	reader.Initialize(r.queue)
	defer func() {
		if err := reader.Dispose(); err != nil {
			c.log.Warn("closing input source: %v", err)
		}
	}()

	if !c.ready(r, true) {
		c.log.Debug("input source created after its run ended")
		return
	}

	if err := reader.Run(ctx); err != nil {
		c.log.ErrorStack("input reader stopped", errors.WithStack(err))
	}
}

// initLoop builds the output side on the calling goroutine.
func (c *Coordinator[T]) initLoop(r *run[T]) error {
	out, err := c.platform.NewOutput(c.opts)
	if err != nil {
		return &InitError{Component: "output", Err: err}
	}

	var sched *ansi.Scheduler
	if rw, ok := out.(console.RawWriter); ok {
		sched = ansi.NewScheduler(rw.WriteRaw, ansi.SchedulerConfig{
			Timeout: c.opts.RequestTimeout,
			Now:     c.opts.Now,
			Logger:  c.opts.Logger,
			Metrics: c.opts.Metrics,
		})
	}

	processor := input.NewProcessor(r.queue, c.platform.NewDecoder(c.opts, sched), input.ProcessorConfig{
		Mouse:  c.opts.MouseConfig,
		Now:    c.opts.Now,
		Logger: c.opts.Logger,
	})

	loop := mainloop.New[T](mainloop.Config{
		Tick:    c.opts.LoopTick,
		Now:     c.opts.Now,
		Sleep:   c.opts.Sleep,
		Logger:  c.opts.Logger,
		Metrics: c.opts.Metrics,
	})
	loop.Initialize(mainloop.NewTimedEvents(c.opts.Now), processor, out)
	if sched != nil {
		loop.SetScheduler(sched)
	}

	c.mu.Lock()
	r.loop, r.out, r.scheduler = loop, out, sched
	c.mu.Unlock()

	c.ready(r, false)
	return nil
}

// ready marks one side of r as ready. The second side to arrive assembles
// the driver and opens the gate. It returns false if r is no longer the
// current run.
func (c *Coordinator[T]) ready(r *run[T], reader bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != r {
		return false
	}
	if reader {
		r.readerReady = true
	} else {
		r.loopReady = true
	}
	if !r.readerReady || !r.loopReady || r.driver != nil {
		return true
	}
	r.driver = c.assemble(r)
	r.gate.Release(1)
	return true
}

func (c *Coordinator[T]) assemble(r *run[T]) *Driver {
	loop := r.loop
	proc := loop.Processor()
	return &Driver{
		KeyDown:     proc.KeyDown,
		KeyUp:       proc.KeyUp,
		Mouse:       proc.Mouse,
		SizeChanged: loop.SizeChanged,
		platform:    c.platform.Name,
		timed:       loop.TimedEvents(),
		scheduler:   r.scheduler,
		out:         r.out,
		metrics:     c.opts.Metrics,
		buffer:      loop.Buffer,
		size:        loop.Size,
		setRoot:     loop.SetRoot,
	}
}

// abort tears down a partial start.
func (c *Coordinator[T]) abort() {
	if err := c.shutdown(); err != nil {
		c.log.Warn("cleanup after failed start: %v", err)
	}
}

// Stop cancels the reader, waits for it up to the stop timeout and closes
// the output.
func (c *Coordinator[T]) Stop() error {
	c.mu.Lock()
	started := c.cur != nil
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	err := c.shutdown()
	c.log.Info("stopped")
	return err
}

func (c *Coordinator[T]) shutdown() error {
	c.mu.Lock()
	r := c.cur
	c.cur = nil
	var out console.Output
	var d *Driver
	if r != nil {
		out, d = r.out, r.driver
	}
	c.mu.Unlock()
	if r == nil {
		return nil
	}

	var err error
	r.cancel()
	timer := time.NewTimer(c.opts.StopTimeout)
	select {
	case <-r.done:
		timer.Stop()
	case <-timer.C:
		c.log.Warn("input reader did not exit within %s", c.opts.StopTimeout)
		err = ErrStopTimeout
	}
	if out != nil {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing output")
		}
	}
	if d != nil {
		unregister(d)
	}
	return err
}

// Iteration runs one main loop pass. Call it from the goroutine that
// called Start.
func (c *Coordinator[T]) Iteration() error {
	c.mu.Lock()
	var loop *mainloop.MainLoop[T]
	if r := c.cur; r != nil && r.driver != nil {
		loop = r.loop
	}
	c.mu.Unlock()
	if loop == nil {
		return ErrNotStarted
	}
	return loop.Iteration()
}

// Run iterates until ctx is done or an iteration fails.
func (c *Coordinator[T]) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := c.Iteration(); err != nil {
			return err
		}
	}
}

// Loop returns the main loop of the running driver, or nil.
func (c *Coordinator[T]) Loop() *mainloop.MainLoop[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.loop
}
