package mainloop

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Token identifies a scheduled timeout or idle callback.
type Token uuid.UUID

// String returns the token in UUID form.
func (t Token) String() string {
	return uuid.UUID(t).String()
}

type timeout struct {
	token    Token
	span     time.Duration
	due      time.Time
	callback func() bool
	removed  atomic.Bool
}

type idle struct {
	token    Token
	callback func() bool
	removed  atomic.Bool
}

// TimedEvents holds the timeouts and idle callbacks run by the main loop.
//
// Any goroutine may add or remove work. A pass takes a snapshot of the due
// work under the lock and runs the callbacks with the lock released, so an
// Add or Remove from another goroutine never blocks on a running callback.
// Callbacks may schedule further work; work added during a pass runs no
// earlier than the next pass. Work removed during a pass is skipped if it
// has not run yet.
type TimedEvents struct {
	mu       sync.Mutex
	timeouts []*timeout
	idles    []*idle
	firing   []*timeout
	running  []*idle
	now      func() time.Time
}

// NewTimedEvents creates an empty collection. A nil clock uses time.Now.
func NewTimedEvents(now func() time.Time) *TimedEvents {
	if now == nil {
		now = time.Now
	}
	return &TimedEvents{now: now}
}

// AddTimeout schedules callback to run once span has elapsed. If callback
// returns true it is rescheduled for another span.
func (te *TimedEvents) AddTimeout(span time.Duration, callback func() bool) Token {
	te.mu.Lock()
	defer te.mu.Unlock()
	t := &timeout{
		token:    Token(uuid.New()),
		span:     span,
		due:      te.now().Add(span),
		callback: callback,
	}
	te.insertLocked(t)
	return t.token
}

func (te *TimedEvents) insertLocked(t *timeout) {
	i := sort.Search(len(te.timeouts), func(i int) bool {
		return te.timeouts[i].due.After(t.due)
	})
	te.timeouts = append(te.timeouts, nil)
	copy(te.timeouts[i+1:], te.timeouts[i:])
	te.timeouts[i] = t
}

// RemoveTimeout cancels a timeout, including one that is running now. It
// returns false if the token is unknown or the timeout already ran without
// rescheduling.
func (te *TimedEvents) RemoveTimeout(token Token) bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	for i, t := range te.timeouts {
		if t.token == token {
			t.removed.Store(true)
			te.timeouts = append(te.timeouts[:i], te.timeouts[i+1:]...)
			return true
		}
	}
	for _, t := range te.firing {
		if t.token == token && !t.removed.Load() {
			t.removed.Store(true)
			return true
		}
	}
	return false
}

// AddIdle schedules callback to run on every pass for as long as it
// returns true.
func (te *TimedEvents) AddIdle(callback func() bool) Token {
	te.mu.Lock()
	defer te.mu.Unlock()
	h := &idle{token: Token(uuid.New()), callback: callback}
	te.idles = append(te.idles, h)
	return h.token
}

// RemoveIdle cancels an idle callback, including one that is running now.
func (te *TimedEvents) RemoveIdle(token Token) bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	for i, h := range te.idles {
		if h.token == token {
			h.removed.Store(true)
			te.idles = append(te.idles[:i], te.idles[i+1:]...)
			return true
		}
	}
	for _, h := range te.running {
		if h.token == token && !h.removed.Load() {
			h.removed.Store(true)
			return true
		}
	}
	return false
}

// Invoke runs fn once on the main loop goroutine.
func (te *TimedEvents) Invoke(fn func()) Token {
	return te.AddIdle(func() bool {
		fn()
		return false
	})
}

// RunTimers runs every timeout due at the start of the call.
func (te *TimedEvents) RunTimers() int {
	te.mu.Lock()
	now := te.now()
	n := 0
	for n < len(te.timeouts) && !te.timeouts[n].due.After(now) {
		n++
	}
	due := make([]*timeout, n)
	copy(due, te.timeouts[:n])
	te.timeouts = append(te.timeouts[:0], te.timeouts[n:]...)
	te.firing = due
	te.mu.Unlock()

	for _, t := range due {
		if t.removed.Load() {
			continue
		}
		if !t.callback() {
			continue
		}
		te.mu.Lock()
		if !t.removed.Load() {
			t.due = te.now().Add(t.span)
			te.insertLocked(t)
		}
		te.mu.Unlock()
	}

	te.mu.Lock()
	te.firing = nil
	te.mu.Unlock()
	return len(due)
}

// RunIdles runs every idle callback registered at the start of the call.
func (te *TimedEvents) RunIdles() int {
	te.mu.Lock()
	batch := te.idles
	te.idles = nil
	te.running = batch
	te.mu.Unlock()

	var keep []*idle
	for _, h := range batch {
		if h.removed.Load() {
			continue
		}
		if h.callback() {
			keep = append(keep, h)
		}
	}

	te.mu.Lock()
	kept := keep[:0]
	for _, h := range keep {
		if !h.removed.Load() {
			kept = append(kept, h)
		}
	}
	te.idles = append(kept, te.idles...)
	te.running = nil
	te.mu.Unlock()
	return len(batch)
}

// NextTimeout returns how long until the earliest timeout is due.
func (te *TimedEvents) NextTimeout() (time.Duration, bool) {
	te.mu.Lock()
	defer te.mu.Unlock()
	if len(te.timeouts) == 0 {
		return 0, false
	}
	return max(te.timeouts[0].due.Sub(te.now()), 0), true
}

// Pending reports whether any timeout or idle callback is scheduled.
func (te *TimedEvents) Pending() bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	return len(te.timeouts) > 0 || len(te.idles) > 0
}
