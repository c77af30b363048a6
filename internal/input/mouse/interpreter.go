package mouse

import "time"

// Interpreter groups mouse samples into per-button narratives.
type Interpreter struct {
	// Now is the time source used to stamp button states.
	Now func() time.Time

	// DoubleClickThreshold and TripleClickThreshold are kept for configuration
	// but are not consulted: narratives are released after the first click.
	DoubleClickThreshold time.Duration
	TripleClickThreshold time.Duration

	narratives [MaxButtons]*ButtonNarrative
}

// NewInterpreter creates an interpreter using the wall clock.
func NewInterpreter(cfg Config) *Interpreter {
	return &Interpreter{
		Now:                  time.Now,
		DoubleClickThreshold: cfg.DoubleClickThreshold,
		TripleClickThreshold: cfg.TripleClickThreshold,
	}
}

// Process feeds one sample and returns the narratives it completed, in button
// order. The sample's flags must carry the pressed state of every held button.
func (in *Interpreter) Process(ev *EventArgs) []*ButtonNarrative {
	now := in.Now
	if now == nil {
		now = time.Now
	}
	mods := ev.Flags.Modifiers()

	var done []*ButtonNarrative
	for i := range in.narratives {
		button := i + 1
		pressed := ev.Flags.Has(PressedFlag(button))

		n := in.narratives[i]
		if n == nil {
			if pressed {
				in.narratives[i] = newNarrative(button, ev.Position, mods, now)
			}
			continue
		}

		n.process(ev.Position, pressed, mods)
		if n.NumberOfClicks >= 1 {
			done = append(done, n)
			in.narratives[i] = nil
		}
	}
	return done
}

// Pending returns the open narrative for button n (1-4), or nil.
func (in *Interpreter) Pending(n int) *ButtonNarrative {
	if n < 1 || n > MaxButtons {
		return nil
	}
	return in.narratives[n-1]
}

// Reset discards all open narratives.
func (in *Interpreter) Reset() {
	in.narratives = [MaxButtons]*ButtonNarrative{}
}
