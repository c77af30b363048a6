package cellscreen

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/logging"
)

// pendingRecords bounds the records converted but not yet read.
const pendingRecords = 256

var _ console.Source[console.Record] = (*Source)(nil)

// Source converts screen events into console records. Events are pulled
// from the screen by a pump goroutine so Peek never blocks.
type Source struct {
	records   chan console.Record
	quit      chan struct{}
	closeOnce sync.Once
	log       *logging.Logger
}

func newSource(screen tcell.Screen, log *logging.Logger) *Source {
	s := &Source{
		records: make(chan console.Record, pendingRecords),
		quit:    make(chan struct{}),
		log:     log,
	}
	go s.pump(screen)
	return s
}

// pump runs until the screen is finalized or the source is closed.
func (s *Source) pump(screen tcell.Screen) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		rec, ok := convertEvent(ev)
		if !ok {
			continue
		}
		select {
		case s.records <- rec:
		case <-s.quit:
			return
		}
	}
}

func (s *Source) closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Peek implements console.Source.
func (s *Source) Peek() (bool, error) {
	if s.closed() {
		return false, console.ErrClosed
	}
	return len(s.records) > 0, nil
}

// Read implements console.Source.
func (s *Source) Read() ([]console.Record, error) {
	if s.closed() {
		return nil, console.ErrClosed
	}
	var out []console.Record
	for {
		select {
		case rec := <-s.records:
			out = append(out, rec)
		default:
			return out, nil
		}
	}
}

// Close stops delivering records. The pump exits when the screen is
// finalized.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.log.Debug("source closed")
	})
	return nil
}
