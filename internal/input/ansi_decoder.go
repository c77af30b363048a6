package input

import (
	"time"

	"github.com/dshills/condriver/internal/ansi"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/logging"
)

// AnsiDecoderConfig configures an AnsiDecoder.
type AnsiDecoderConfig struct {
	// EscapeTimeout is how long a partial escape sequence is held before it
	// is released as keys. Defaults to ansi.DefaultEscapeTimeout.
	EscapeTimeout time.Duration

	// Scheduler receives sequences that may answer an outstanding query.
	// Nil sends every sequence to the Unexpected hook.
	Scheduler *ansi.Scheduler

	Logger *logging.Logger
}

// AnsiDecoder decodes a terminal byte stream.
type AnsiDecoder struct {
	parser     *ansi.Parser
	scheduler  *ansi.Scheduler
	unexpected func(ansi.Token)
	held       mouse.Flags
	log        *logging.Logger
}

// NewAnsiDecoder creates a decoder.
func NewAnsiDecoder(cfg AnsiDecoderConfig) *AnsiDecoder {
	d := &AnsiDecoder{
		parser:    ansi.NewParser(cfg.EscapeTimeout),
		scheduler: cfg.Scheduler,
		log:       logging.OrDefault(cfg.Logger).WithComponent("ansi-decoder"),
	}
	d.unexpected = d.logUnexpected
	return d
}

// SetUnexpected replaces the hook receiving sequences that answer no
// outstanding query and malformed input. Nil restores the default, which
// logs and drops them.
func (d *AnsiDecoder) SetUnexpected(fn func(ansi.Token)) {
	if fn == nil {
		fn = d.logUnexpected
	}
	d.unexpected = fn
}

func (d *AnsiDecoder) logUnexpected(tok ansi.Token) {
	d.log.Debug("dropping unexpected %s %q", tok.Kind, tok.Raw)
}

// Decode implements Decoder.
func (d *AnsiDecoder) Decode(records []byte, now time.Time, sink Sink) {
	if len(records) > 0 {
		d.dispatch(d.parser.Feed(records, now), now, sink)
	}
	d.dispatch(d.parser.Expire(now), now, sink)
}

func (d *AnsiDecoder) dispatch(tokens []ansi.Token, now time.Time, sink Sink) {
	for _, tok := range tokens {
		switch tok.Kind {
		case ansi.TokenKey:
			sink.RaiseKey(tok.Key)
		case ansi.TokenMouse:
			sink.RaiseMouse(d.mouseEvent(tok.Mouse, now))
		case ansi.TokenSequence:
			if d.scheduler != nil && d.scheduler.Resolve(tok.Seq) {
				continue
			}
			d.unexpected(tok)
		default:
			d.unexpected(tok)
		}
	}
}

// mouseEvent converts a report into a sample carrying every held button.
// SGR reports name one button at a time, so the held set is tracked here.
func (d *AnsiDecoder) mouseEvent(m ansi.MouseReport, now time.Time) *mouse.EventArgs {
	flags := mouse.ModifierFlags(m.Modifiers())
	button := m.Button()

	switch {
	case m.IsWheel():
		switch dx, dy := m.Wheel(); {
		case dy < 0:
			flags |= mouse.WheeledUp
		case dy > 0:
			flags |= mouse.WheeledDown
		case dx < 0:
			flags |= mouse.WheeledLeft
		case dx > 0:
			flags |= mouse.WheeledRight
		}
	case m.Release:
		if button == 0 {
			flags |= releasedFor(d.held)
			d.held = mouse.None
		} else {
			d.held &^= mouse.PressedFlag(button)
			flags |= mouse.ReleasedFlag(button)
		}
	case m.IsMotion():
		flags |= mouse.ReportMousePosition
	default:
		d.held |= mouse.PressedFlag(button)
	}

	return &mouse.EventArgs{
		Position:  geom.Pt(m.X, m.Y),
		Flags:     flags | d.held,
		Timestamp: now,
	}
}

// releasedFor returns the released flags of every button pressed in held.
func releasedFor(held mouse.Flags) mouse.Flags {
	var f mouse.Flags
	for n := 1; n <= mouse.MaxButtons; n++ {
		if held.Has(mouse.PressedFlag(n)) {
			f |= mouse.ReleasedFlag(n)
		}
	}
	return f
}
