package posix

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

// OutputConfig configures an Output.
type OutputConfig struct {
	// Mouse enables SGR mouse reporting while the output is open.
	Mouse bool

	ColorMode output.ColorMode
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

var (
	_ console.Output    = (*Output)(nil)
	_ console.RawWriter = (*Output)(nil)
)

// Output writes frames and raw sequences to a terminal byte stream.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	size   func() geom.Size
	writer *output.AnsiWriter
	mouse  bool
	closed bool
	log    *logging.Logger
}

// NewOutput creates an output over w and switches the terminal to the
// alternate screen. size reports the window size.
func NewOutput(w io.Writer, size func() geom.Size, cfg OutputConfig) (*Output, error) {
	o := &Output{
		w:     w,
		size:  size,
		mouse: cfg.Mouse,
		log:   logging.OrDefault(cfg.Logger).WithComponent("posix-output"),
	}
	o.writer = output.NewAnsiWriter(w, output.WriterConfig{
		ColorMode:  cfg.ColorMode,
		WindowSize: size,
		Logger:     cfg.Logger,
		Metrics:    cfg.Metrics,
	})

	setup := ansi.EnterAltScreen + ansi.AutoWrapOff + ansi.ResetAttributes + ansi.ClearScreen + ansi.CursorHome
	if o.mouse {
		setup += ansi.EnableMouse
	}
	if _, err := io.WriteString(w, setup); err != nil {
		return nil, errors.Wrap(err, "initializing terminal")
	}
	return o, nil
}

// Write implements console.Output.
func (o *Output) Write(b *output.Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return console.ErrClosed
	}
	_, err := o.writer.Write(b)
	return err
}

// WriteRaw implements console.RawWriter.
func (o *Output) WriteRaw(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return console.ErrClosed
	}
	if _, err := o.w.Write(p); err != nil {
		return errors.Wrap(err, "writing raw sequence")
	}
	return nil
}

// Size implements console.Output.
func (o *Output) Size() geom.Size {
	return o.size()
}

// SetCursorVisibility implements console.Output.
func (o *Output) SetCursorVisibility(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writer.SetCursorVisibility(visible)
}

// Close leaves the alternate screen and disables mouse reporting.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	teardown := ansi.ResetAttributes + ansi.AutoWrapOn + ansi.ShowCursor
	if o.mouse {
		teardown = ansi.DisableMouse + teardown
	}
	teardown += ansi.ExitAltScreen
	if _, err := io.WriteString(o.w, teardown); err != nil {
		o.log.Warn("restoring terminal: %v", err)
		return errors.Wrap(err, "restoring terminal")
	}
	return nil
}
