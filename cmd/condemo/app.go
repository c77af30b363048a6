package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/config"
	"github.com/dshills/condriver/internal/driver"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/input/mouse"
)

const statusInterval = 500 * time.Millisecond

// app reacts to driver events. All of its methods run on the main loop
// goroutine.
type app struct {
	d    *driver.Driver
	view *statusView
	quit *key.Event
	stop context.CancelFunc
}

func newApp(d *driver.Driver, cfg config.Config, stop context.CancelFunc) (*app, error) {
	quit, err := key.Parse(cfg.QuitKey)
	if err != nil {
		return nil, errors.Wrapf(err, "quit key %q", cfg.QuitKey)
	}

	a := &app{
		d:    d,
		view: newStatusView(d.Size()),
		quit: quit,
		stop: stop,
	}
	a.view.Set(rowTitle, fmt.Sprintf("condriver demo on %s: %s quits, p queries the cursor", d.Platform(), quit))
	a.view.Set(rowKey, "key: -")
	a.view.Set(rowMouse, "mouse: -")
	a.view.Set(rowCursor, "cursor: -")
	a.view.Set(rowConfig, fmt.Sprintf("config: loop %s, reader %s", cfg.LoopTick, cfg.ReaderTick))

	d.OnKeyDown(a.keyDown)
	d.OnMouse(a.mouse)
	d.OnSizeChanged(a.view.Resize)
	d.AddTimeout(statusInterval, a.refreshStatus)
	d.SetCursorVisibility(false)
	d.SetRoot(a.view)
	a.refreshStatus()
	return a, nil
}

func (a *app) keyDown(ev *key.Event) {
	a.view.Set(rowKey, "key: "+ev.String())
	switch {
	case ev.Equals(a.quit):
		a.stop()
	case ev.Matches("p"):
		a.queryCursor()
	default:
		return
	}
	ev.Handled = true
}

func (a *app) mouse(ev *mouse.EventArgs) {
	if n := ev.ClickedButton(); n > 0 {
		a.view.Set(rowMouse, fmt.Sprintf("mouse: button %d clicked at %s", n, ev.Position))
		ev.Handled = true
		return
	}
	a.view.Set(rowMouse, fmt.Sprintf("mouse: %s at %s", ev.Flags, ev.Position))
}

func (a *app) queryCursor() {
	a.view.Set(rowCursor, "cursor: querying...")
	err := a.d.QueueAnsiRequest(ansi.RequestCursorPosition(func(p geom.Point) {
		a.view.Set(rowCursor, "cursor: "+p.String())
	}))
	switch {
	case errors.Is(err, driver.ErrUnsupported):
		a.view.Set(rowCursor, "cursor: queries need the ansi driver")
	case err != nil:
		a.view.Set(rowCursor, "cursor: "+err.Error())
	}
}

func (a *app) refreshStatus() bool {
	a.view.SetStatus(a.d.Metrics().Snapshot().Summary())
	return true
}

// configChanged shows a reloaded configuration. Ticks and the platform
// are fixed for the life of the driver; the quit key applies at once.
func (a *app) configChanged(cfg config.Config, err error) {
	if err != nil {
		a.view.Set(rowConfig, "config: reload failed: "+err.Error())
		return
	}
	if quit, perr := key.Parse(cfg.QuitKey); perr == nil {
		a.quit = quit
	}
	a.view.Set(rowConfig, fmt.Sprintf("config: reloaded, quit key %s", a.quit))
}
