// Package driver assembles a console platform, the input pipeline and the
// main loop into a running Driver.
//
// A Coordinator owns the two long-lived goroutines. The reader goroutine
// creates the platform input source and polls it into a queue; the
// goroutine calling Start creates the output, the decoder and the main
// loop. Start returns once both sides are ready:
//
//	c := driver.NewCoordinator(driver.AnsiPlatform(os.Stdin, os.Stdout), opts)
//	d, err := c.Start(ctx)
//	if err != nil {
//		return err
//	}
//	defer c.Stop()
//	d.OnKeyDown(func(ev *key.Event) { ... })
//	return c.Run(ctx)
package driver

import (
	"sync/atomic"
	"time"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/mainloop"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

// Driver is the handle an application uses once a Coordinator has started.
//
// Event observers run on the main loop goroutine. Invoke, AddTimeout,
// AddIdle, the Remove methods and QueueAnsiRequest may be called from any
// goroutine; everything else belongs to the main loop goroutine.
type Driver struct {
	KeyDown     *input.Observers[*key.Event]
	KeyUp       *input.Observers[*key.Event]
	Mouse       *input.Observers[*mouse.EventArgs]
	SizeChanged *input.Observers[geom.Size]

	platform  string
	timed     *mainloop.TimedEvents
	scheduler *ansi.Scheduler
	out       console.Output
	metrics   *metrics.Metrics

	buffer  func() *output.Buffer
	size    func() geom.Size
	setRoot func(mainloop.Root)
}

// Platform returns the name of the console platform.
func (d *Driver) Platform() string {
	return d.platform
}

// OnKeyDown registers fn for key presses.
func (d *Driver) OnKeyDown(fn func(*key.Event)) input.ObserverID {
	return d.KeyDown.Register(fn)
}

// OnKeyUp registers fn for key releases.
func (d *Driver) OnKeyUp(fn func(*key.Event)) input.ObserverID {
	return d.KeyUp.Register(fn)
}

// OnMouse registers fn for mouse samples and synthesized clicks.
func (d *Driver) OnMouse(fn func(*mouse.EventArgs)) input.ObserverID {
	return d.Mouse.Register(fn)
}

// OnSizeChanged registers fn for window size changes.
func (d *Driver) OnSizeChanged(fn func(geom.Size)) input.ObserverID {
	return d.SizeChanged.Register(fn)
}

// Invoke runs fn once on the main loop goroutine.
func (d *Driver) Invoke(fn func()) mainloop.Token {
	return d.timed.Invoke(fn)
}

// AddTimeout runs callback after span. Returning true runs it again after
// another span.
func (d *Driver) AddTimeout(span time.Duration, callback func() bool) mainloop.Token {
	return d.timed.AddTimeout(span, callback)
}

// RemoveTimeout cancels a timeout.
func (d *Driver) RemoveTimeout(token mainloop.Token) bool {
	return d.timed.RemoveTimeout(token)
}

// AddIdle runs callback once per iteration for as long as it returns true.
func (d *Driver) AddIdle(callback func() bool) mainloop.Token {
	return d.timed.AddIdle(callback)
}

// RemoveIdle cancels an idle callback.
func (d *Driver) RemoveIdle(token mainloop.Token) bool {
	return d.timed.RemoveIdle(token)
}

// QueueAnsiRequest sends a terminal query, or queues it behind the one
// outstanding. It returns ErrUnsupported when the console has no byte
// stream to carry the query.
func (d *Driver) QueueAnsiRequest(req *ansi.Request) error {
	if d.scheduler == nil {
		return ErrUnsupported
	}
	return d.scheduler.SendOrSchedule(req)
}

// Buffer returns the screen buffer.
func (d *Driver) Buffer() *output.Buffer {
	return d.buffer()
}

// Size returns the current window size.
func (d *Driver) Size() geom.Size {
	return d.size()
}

// Metrics returns the driver's performance counters.
func (d *Driver) Metrics() *metrics.Metrics {
	return d.metrics
}

// SetCursorVisibility shows or hides the terminal cursor after each frame.
func (d *Driver) SetCursorVisibility(visible bool) {
	d.out.SetCursorVisibility(visible)
}

// SetRoot sets the widget tree drawn by the main loop.
func (d *Driver) SetRoot(root mainloop.Root) {
	d.setRoot(root)
}

var active atomic.Pointer[Driver]

// Active returns the driver of the most recently started coordinator, or
// nil when none is running.
func Active() *Driver {
	return active.Load()
}

func register(d *Driver) {
	active.Store(d)
}

func unregister(d *Driver) {
	active.CompareAndSwap(d, nil)
}
