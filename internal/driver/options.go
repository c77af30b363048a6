package driver

import (
	"time"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/config"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/mainloop"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

// DefaultStopTimeout bounds how long Stop waits for the reader goroutine.
const DefaultStopTimeout = time.Second

// Options configures a Coordinator and the platform objects it builds.
type Options struct {
	ReaderTick     time.Duration
	LoopTick       time.Duration
	RequestTimeout time.Duration
	EscapeTimeout  time.Duration
	StopTimeout    time.Duration

	// Mouse enables mouse reporting on the console.
	Mouse       bool
	MouseConfig mouse.Config

	ColorMode output.ColorMode

	// Unexpected receives terminal responses that answer no outstanding
	// query. Nil logs and drops them.
	Unexpected func(ansi.Token)

	Logger  *logging.Logger
	Metrics *metrics.Metrics

	// Now and Sleep replace the clock, mainly in tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// DefaultOptions returns options with the standard tick lengths.
func DefaultOptions() Options {
	return Options{
		ReaderTick:     console.DefaultReaderTick,
		LoopTick:       mainloop.DefaultTick,
		RequestTimeout: ansi.DefaultRequestTimeout,
		EscapeTimeout:  ansi.DefaultEscapeTimeout,
		StopTimeout:    DefaultStopTimeout,
		Mouse:          true,
		MouseConfig:    mouse.DefaultConfig(),
	}
}

// FromConfig builds options from a loaded configuration.
func FromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.ReaderTick = cfg.ReaderTick.Std()
	opts.LoopTick = cfg.LoopTick.Std()
	opts.RequestTimeout = cfg.RequestTimeout.Std()
	opts.EscapeTimeout = cfg.EscapeTimeout.Std()
	opts.Mouse = cfg.Mouse.Enabled
	opts.MouseConfig = mouse.Config{
		DoubleClickThreshold: cfg.Mouse.DoubleClick.Std(),
		TripleClickThreshold: cfg.Mouse.TripleClick.Std(),
	}
	opts.ColorMode = cfg.Colors()
	return opts
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReaderTick <= 0 {
		o.ReaderTick = d.ReaderTick
	}
	if o.LoopTick <= 0 {
		o.LoopTick = d.LoopTick
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.EscapeTimeout <= 0 {
		o.EscapeTimeout = d.EscapeTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = d.StopTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	o.Logger = logging.OrDefault(o.Logger)
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	return o
}
