package input

import (
	"time"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/logging"
)

// Sink receives decoded events.
type Sink interface {
	RaiseKey(ev *key.Event)
	RaiseMouse(ev *mouse.EventArgs)
}

// Decoder turns raw records into events.
type Decoder[T any] interface {
	// Decode is called once per ProcessQueue with every record drained, which
	// may be none. Decoders holding partial input use the call to release it
	// once it has waited long enough.
	Decode(records []T, now time.Time, sink Sink)
}

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	Mouse mouse.Config

	// Now is the time source for event timestamps and the mouse interpreter.
	Now func() time.Time

	Logger *logging.Logger
}

// Processor drains a console queue and raises events. It is not safe for
// concurrent use; call ProcessQueue from the main loop goroutine only.
type Processor[T any] struct {
	KeyDown *Observers[*key.Event]
	KeyUp   *Observers[*key.Event]
	Mouse   *Observers[*mouse.EventArgs]

	queue       *console.Queue[T]
	decoder     Decoder[T]
	interpreter *mouse.Interpreter
	now         func() time.Time
	log         *logging.Logger
}

// NewProcessor creates a processor reading q through dec.
func NewProcessor[T any](q *console.Queue[T], dec Decoder[T], cfg ProcessorConfig) *Processor[T] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	interp := mouse.NewInterpreter(cfg.Mouse)
	interp.Now = cfg.Now

	return &Processor[T]{
		KeyDown:     NewObservers(keyHandled),
		KeyUp:       NewObservers(keyHandled),
		Mouse:       NewObservers(mouseHandled),
		queue:       q,
		decoder:     dec,
		interpreter: interp,
		now:         cfg.Now,
		log:         logging.OrDefault(cfg.Logger).WithComponent("input"),
	}
}

func keyHandled(ev *key.Event) bool { return ev.Handled }

func mouseHandled(ev *mouse.EventArgs) bool { return ev.Handled }

// Queue returns the queue the processor drains.
func (p *Processor[T]) Queue() *console.Queue[T] {
	return p.queue
}

// ProcessQueue decodes every record queued at the time of the call and
// raises the resulting events synchronously. It returns the number of
// records consumed.
func (p *Processor[T]) ProcessQueue() int {
	records := p.queue.Drain()
	p.decoder.Decode(records, p.now(), p)
	return len(records)
}

// RaiseKey implements Sink. Each key is delivered as a KeyDown followed by
// a KeyUp carrying a fresh copy of the event.
func (p *Processor[T]) RaiseKey(ev *key.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now()
	}
	up := ev.Clone()
	p.KeyDown.Notify(ev)
	p.KeyUp.Notify(up)
}

// RaiseMouse implements Sink. The sample is delivered first; each click it
// completes is then delivered as a separate event.
func (p *Processor[T]) RaiseMouse(ev *mouse.EventArgs) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now()
	}
	p.Mouse.Notify(ev)

	for _, n := range p.interpreter.Process(ev) {
		last := n.Last()
		p.log.Debug("button %d clicked %d time(s) at %v", n.Button, n.NumberOfClicks, last.Position)
		p.Mouse.Notify(&mouse.EventArgs{
			Position:  last.Position,
			Flags:     mouse.ClickedFlag(n.Button) | mouse.ModifierFlags(last.Modifiers),
			Timestamp: last.At,
		})
	}
}
