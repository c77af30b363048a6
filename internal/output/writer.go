package output

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
)

// WriterConfig configures an AnsiWriter.
type WriterConfig struct {
	// ColorMode selects truecolor or 256 color output.
	ColorMode ColorMode

	// WindowSize reports the current terminal size. It is consulted before
	// each dirty row; a degenerate size abandons the rest of the frame.
	// Nil means the buffer size.
	WindowSize func() geom.Size

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// AnsiWriter flushes the dirty cells of a Buffer as ANSI escape sequences.
// Each frame is assembled in memory and written with a single Write call.
type AnsiWriter struct {
	w             io.Writer
	mode          ColorMode
	windowSize    func() geom.Size
	cursorVisible bool
	log           *logging.Logger
	metrics       *metrics.Metrics

	frame     []byte
	run       []byte
	runCol    int
	runStyle  Style
	haveStyle bool
	lastStyle Style
}

// NewAnsiWriter creates a writer emitting to w.
func NewAnsiWriter(w io.Writer, cfg WriterConfig) *AnsiWriter {
	return &AnsiWriter{
		w:             w,
		mode:          cfg.ColorMode,
		windowSize:    cfg.WindowSize,
		cursorVisible: true,
		log:           logging.OrDefault(cfg.Logger).WithComponent("ansi-writer"),
		metrics:       cfg.Metrics,
		frame:         make([]byte, 0, 4096),
	}
}

// SetCursorVisibility sets whether the cursor is shown after each frame.
func (aw *AnsiWriter) SetCursorVisibility(visible bool) {
	aw.cursorVisible = visible
}

// CursorVisible reports whether the cursor is shown after each frame.
func (aw *AnsiWriter) CursorVisible() bool {
	return aw.cursorVisible
}

// SetColorMode changes how RGB colors are written.
func (aw *AnsiWriter) SetColorMode(mode ColorMode) {
	aw.mode = mode
}

// Write diffs b onto the terminal. For every dirty row it emits runs of
// dirty cells sharing a style, repositioning the cursor whenever a run is
// broken by a style change, a clean cell or a wide glyph. Dirty flags are
// cleared as cells are emitted. Queued images are written after the grid.
//
// Write returns the number of bytes written; nothing is written when no
// cell or image is pending.
func (aw *AnsiWriter) Write(b *Buffer) (int, error) {
	start := time.Now()

	aw.frame = append(aw.frame[:0], ansi.HideCursor...)
	header := len(aw.frame)
	aw.haveStyle = false

	rows := b.Rows()
	for y := range rows {
		// The row flag is cleared before the size check: a row abandoned
		// because the window collapsed is not retried on the next frame
		// unless something redraws it.
		if !b.ClearLineDirty(y) {
			continue
		}
		if aw.degenerate(b) {
			aw.log.Debug("window size degenerate, skipping rows from %d", y)
			aw.metrics.RecordFrameSkipped()
			break
		}
		aw.writeRow(rows[y], y)
	}

	for _, img := range b.TakeImages() {
		aw.frame = ansi.AppendCursorPosition(aw.frame, img.At.X, img.At.Y)
		aw.frame = append(aw.frame, img.Payload...)
	}

	if len(aw.frame) == header {
		return 0, nil
	}

	if aw.haveStyle {
		aw.frame = append(aw.frame, ansi.ResetAttributes...)
	}
	aw.frame = ansi.AppendCursorPosition(aw.frame, max(b.Col(), 0), max(b.Row(), 0))
	if aw.cursorVisible {
		aw.frame = append(aw.frame, ansi.ShowCursor...)
	}

	n, err := aw.w.Write(aw.frame)
	aw.metrics.RecordWrite(time.Since(start), n)
	if err != nil {
		return n, errors.Wrap(err, "writing frame")
	}
	return n, nil
}

func (aw *AnsiWriter) degenerate(b *Buffer) bool {
	size := b.Size()
	if aw.windowSize != nil {
		size = aw.windowSize()
	}
	return size.Width < 1 || size.Height < 1
}

func (aw *AnsiWriter) writeRow(cells []Cell, y int) {
	aw.run = aw.run[:0]
	for x := range cells {
		c := &cells[x]
		if !c.Dirty {
			aw.flushRun(y)
			continue
		}
		c.Dirty = false
		if c.Width == 0 {
			// Right half of a wide glyph; the terminal already advanced past it.
			continue
		}

		if len(aw.run) > 0 && c.Style != aw.runStyle {
			aw.flushRun(y)
		}
		if len(aw.run) == 0 {
			aw.runCol = x
			aw.runStyle = c.Style
		}

		if c.Grapheme == "" {
			aw.run = append(aw.run, ' ')
		} else {
			aw.run = append(aw.run, c.Grapheme...)
		}
		if c.Width > 1 {
			aw.flushRun(y)
		}
	}
	aw.flushRun(y)
}

func (aw *AnsiWriter) flushRun(y int) {
	if len(aw.run) == 0 {
		return
	}
	aw.frame = ansi.AppendCursorPosition(aw.frame, aw.runCol, y)
	if !aw.haveStyle || aw.runStyle != aw.lastStyle {
		aw.frame = aw.appendStyle(aw.frame, aw.runStyle)
		aw.lastStyle = aw.runStyle
		aw.haveStyle = true
	}
	aw.frame = append(aw.frame, aw.run...)
	aw.run = aw.run[:0]
}

func (aw *AnsiWriter) appendStyle(buf []byte, s Style) []byte {
	params := make([]int, 1, 8)
	for _, a := range attrSGR {
		if s.Attrs.Has(a.attr) {
			params = append(params, a.param)
		}
	}
	buf = ansi.AppendSGR(buf, params...)
	buf = aw.appendColor(buf, s.Fg, true)
	return aw.appendColor(buf, s.Bg, false)
}

func (aw *AnsiWriter) appendColor(buf []byte, c Color, fg bool) []byte {
	switch {
	case c.Default:
		return buf
	case c.Indexed || aw.mode == ColorMode256:
		idx := Nearest256(c)
		if fg {
			return ansi.AppendFg256(buf, idx)
		}
		return ansi.AppendBg256(buf, idx)
	default:
		if fg {
			return ansi.AppendFgRGB(buf, c.R, c.G, c.B)
		}
		return ansi.AppendBgRGB(buf, c.R, c.G, c.B)
	}
}
