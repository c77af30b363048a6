package driver

import (
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/console/cellscreen"
	"github.com/dshills/condriver/internal/console/posix"
	"github.com/dshills/condriver/internal/input"
)

// Platform supplies the console objects for one record type. The
// factories receive the coordinator's resolved options and are called on
// the goroutine that will own the object: NewSource on the reader
// goroutine, NewOutput and NewDecoder on the goroutine calling Start.
type Platform[T any] struct {
	Name string

	NewSource func(Options) (console.Source[T], error)
	NewOutput func(Options) (console.Output, error)

	// NewDecoder receives the query scheduler, which is nil when the output
	// is not a byte stream.
	NewDecoder func(Options, *ansi.Scheduler) input.Decoder[T]
}

// NewAnsiDecoder builds the decoder for terminal byte streams.
func NewAnsiDecoder(opts Options, s *ansi.Scheduler) input.Decoder[byte] {
	d := input.NewAnsiDecoder(input.AnsiDecoderConfig{
		EscapeTimeout: opts.EscapeTimeout,
		Scheduler:     s,
		Logger:        opts.Logger,
	})
	d.SetUnexpected(opts.Unexpected)
	return d
}

// NewRecordDecoder builds the decoder for record consoles.
func NewRecordDecoder(opts Options, _ *ansi.Scheduler) input.Decoder[console.Record] {
	return input.NewRecordDecoder(opts.Logger)
}

// AnsiPlatform reads raw bytes from the terminal in and writes escape
// sequences to the terminal out.
func AnsiPlatform(in, out *os.File) Platform[byte] {
	return Platform[byte]{
		Name: "ansi",
		NewSource: func(Options) (console.Source[byte], error) {
			src, err := posix.OpenSource(in)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		NewOutput: func(opts Options) (console.Output, error) {
			o, err := posix.OpenOutput(out, posix.OutputConfig{
				Mouse:     opts.Mouse,
				ColorMode: opts.ColorMode,
				Logger:    opts.Logger,
				Metrics:   opts.Metrics,
			})
			if err != nil {
				return nil, err
			}
			return o, nil
		},
		NewDecoder: NewAnsiDecoder,
	}
}

// cellPlatform shares one cellscreen.Console between the two factories.
type cellPlatform struct {
	screen tcell.Screen
	once   sync.Once
	c      *cellscreen.Console
}

func (p *cellPlatform) console(opts Options) *cellscreen.Console {
	p.once.Do(func() {
		p.c = cellscreen.New(p.screen, cellscreen.Config{
			Mouse:     opts.Mouse,
			ColorMode: opts.ColorMode,
			Logger:    opts.Logger,
			Metrics:   opts.Metrics,
		})
	})
	return p.c
}

// CellScreenPlatform drives a tcell screen. The screen must not be
// initialized yet.
func CellScreenPlatform(screen tcell.Screen) Platform[console.Record] {
	p := &cellPlatform{screen: screen}
	return Platform[console.Record]{
		Name: "cellscreen",
		NewSource: func(opts Options) (console.Source[console.Record], error) {
			src, err := p.console(opts).OpenSource()
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		NewOutput: func(opts Options) (console.Output, error) {
			o, err := p.console(opts).OpenOutput()
			if err != nil {
				return nil, err
			}
			return o, nil
		},
		NewDecoder: NewRecordDecoder,
	}
}
