package input

import (
	"time"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/logging"
)

// RecordDecoder translates pre-decoded platform records.
type RecordDecoder struct {
	held mouse.Flags
	log  *logging.Logger
}

// NewRecordDecoder creates a decoder.
func NewRecordDecoder(logger *logging.Logger) *RecordDecoder {
	return &RecordDecoder{log: logging.OrDefault(logger).WithComponent("record-decoder")}
}

// Decode implements Decoder. Resize records are dropped; the main loop
// picks up size changes by polling the output.
func (d *RecordDecoder) Decode(records []console.Record, now time.Time, sink Sink) {
	for i := range records {
		rec := records[i]
		switch rec.Kind {
		case console.RecordKey:
			ev := rec.Key
			ev.Handled = false
			if ev.Timestamp.IsZero() {
				ev.Timestamp = now
			}
			sink.RaiseKey(&ev)

		case console.RecordMouse:
			ev := rec.Mouse
			ev.Handled = false
			if ev.Timestamp.IsZero() {
				ev.Timestamp = now
			}
			ev.Flags = d.track(ev.Flags)
			sink.RaiseMouse(&ev)

		case console.RecordResize:
			d.log.Debug("resize record %dx%d", rec.Size.Width, rec.Size.Height)

		default:
			d.log.Warn("unknown record kind %v", rec.Kind)
		}
	}
}

// track adds released flags for buttons held in the previous sample but not
// in this one.
func (d *RecordDecoder) track(flags mouse.Flags) mouse.Flags {
	var pressed mouse.Flags
	for n := 1; n <= mouse.MaxButtons; n++ {
		pressed |= flags & mouse.PressedFlag(n)
	}

	released := releasedFor(d.held &^ pressed)
	d.held = pressed
	if released != mouse.None {
		flags = (flags &^ mouse.ReportMousePosition) | released
	}
	return flags
}
