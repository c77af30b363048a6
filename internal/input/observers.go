package input

import (
	"sort"
	"sync"
)

// Priority orders observers. Lower values run first.
type Priority int

const (
	PriorityHighest Priority = -1000
	PriorityHigh    Priority = -100
	PriorityNormal  Priority = 0
	PriorityLow     Priority = 100
	PriorityLowest  Priority = 1000
)

// ObserverID identifies a registration.
type ObserverID uint64

type registration[E any] struct {
	id       ObserverID
	name     string
	priority Priority
	fn       func(E)
}

// Observers is a priority-ordered list of callbacks for one event type.
type Observers[E any] struct {
	mu      sync.Mutex
	regs    []registration[E]
	nextID  ObserverID
	sorted  bool
	handled func(E) bool
}

// NewObservers creates an empty list. handled reports whether an event has
// been consumed; delivery stops once it returns true. A nil handled
// delivers to every observer.
func NewObservers[E any](handled func(E) bool) *Observers[E] {
	return &Observers[E]{handled: handled, sorted: true}
}

// Register adds fn with normal priority.
func (o *Observers[E]) Register(fn func(E)) ObserverID {
	return o.RegisterWithOptions(fn, "", PriorityNormal)
}

// RegisterWithPriority adds fn with the given priority.
func (o *Observers[E]) RegisterWithPriority(fn func(E), priority Priority) ObserverID {
	return o.RegisterWithOptions(fn, "", priority)
}

// RegisterWithOptions adds fn. A non-empty name can be used with
// UnregisterByName. Observers of equal priority run in registration order.
func (o *Observers[E]) RegisterWithOptions(fn func(E), name string, priority Priority) ObserverID {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	o.regs = append(o.regs, registration[E]{
		id:       o.nextID,
		name:     name,
		priority: priority,
		fn:       fn,
	})
	o.sorted = false
	return o.nextID
}

// Unregister removes a registration by ID.
func (o *Observers[E]) Unregister(id ObserverID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.regs {
		if o.regs[i].id == id {
			o.regs = append(o.regs[:i], o.regs[i+1:]...)
			return true
		}
	}
	return false
}

// UnregisterByName removes the first registration with the given name.
func (o *Observers[E]) UnregisterByName(name string) bool {
	if name == "" {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.regs {
		if o.regs[i].name == name {
			o.regs = append(o.regs[:i], o.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of registrations.
func (o *Observers[E]) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.regs)
}

// Clear removes every registration.
func (o *Observers[E]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.regs = nil
	o.sorted = true
}

// Notify delivers ev to each observer in priority order until one marks it
// handled. Observers run without the lock held and may register or
// unregister; changes take effect on the next Notify.
func (o *Observers[E]) Notify(ev E) {
	o.mu.Lock()
	if len(o.regs) == 0 {
		o.mu.Unlock()
		return
	}
	if !o.sorted {
		sort.SliceStable(o.regs, func(i, j int) bool {
			return o.regs[i].priority < o.regs[j].priority
		})
		o.sorted = true
	}
	fns := make([]func(E), len(o.regs))
	for i := range o.regs {
		fns[i] = o.regs[i].fn
	}
	o.mu.Unlock()

	for _, fn := range fns {
		if o.handled != nil && o.handled(ev) {
			return
		}
		fn(ev)
	}
}
