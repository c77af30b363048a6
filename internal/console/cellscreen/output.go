package cellscreen

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

var _ console.Output = (*Output)(nil)

// Output writes dirty cells to the screen and shows them.
type Output struct {
	mu            sync.Mutex
	screen        tcell.Screen
	mode          output.ColorMode
	cursorVisible bool
	closed        bool
	log           *logging.Logger
	metrics       *metrics.Metrics
}

func newOutput(screen tcell.Screen, cfg Config, log *logging.Logger) *Output {
	return &Output{
		screen:        screen,
		mode:          cfg.ColorMode,
		cursorVisible: true,
		log:           log,
		metrics:       cfg.Metrics,
	}
}

// Write implements console.Output. Every dirty cell is copied to the screen
// and its flag cleared; the screen is shown once per call with at least one
// dirty cell. Images are dropped since the screen has no raw channel.
func (o *Output) Write(b *output.Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return console.ErrClosed
	}

	start := time.Now()
	if images := b.TakeImages(); len(images) > 0 {
		o.log.Debug("dropping %d image payloads", len(images))
	}

	written := 0
	rows := b.Rows()
	for y := range rows {
		if !b.ClearLineDirty(y) {
			continue
		}
		if o.degenerate() {
			o.metrics.RecordFrameSkipped()
			break
		}
		for x := range rows[y] {
			c := &rows[y][x]
			if !c.Dirty {
				continue
			}
			c.Dirty = false
			if c.Width == 0 {
				continue
			}
			mainc, comb := splitGrapheme(c.Grapheme)
			o.screen.SetContent(x, y, mainc, comb, convertStyle(c.Style, o.mode))
			written++
		}
	}
	if written == 0 {
		return nil
	}

	if o.cursorVisible {
		o.screen.ShowCursor(b.Col(), b.Row())
	} else {
		o.screen.HideCursor()
	}
	o.screen.Show()
	// The screen does its own encoding; no byte count is available.
	o.metrics.RecordWrite(time.Since(start), 0)
	return nil
}

func (o *Output) degenerate() bool {
	w, h := o.screen.Size()
	return w < 1 || h < 1
}

// Size implements console.Output.
func (o *Output) Size() geom.Size {
	w, h := o.screen.Size()
	return geom.Size{Width: w, Height: h}
}

// SetCursorVisibility implements console.Output.
func (o *Output) SetCursorVisibility(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursorVisible = visible
	if !visible {
		o.screen.HideCursor()
	}
}

// Close finalizes the screen.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.screen.Fini()
	return nil
}
