package ansi

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
)

// DefaultRequestTimeout is how long an outstanding query holds the slot.
const DefaultRequestTimeout = 50 * time.Millisecond

// ErrInvalidRequest is returned for a request with no sequence.
var ErrInvalidRequest = errors.New("ansi request has no sequence")

// Request is a query written to the terminal together with the predicate
// recognizing its answer.
type Request struct {
	// Name identifies the request in logs.
	Name string

	// Sequence is written verbatim to the terminal.
	Sequence string

	// Matches reports whether a sequence answers this request. A nil
	// Matches accepts any sequence.
	Matches func(Sequence) bool

	// OnResponse is called with the answer on the goroutine that resolved it.
	OnResponse func(Sequence)
}

func (r *Request) matches(seq Sequence) bool {
	return r.Matches == nil || r.Matches(seq)
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Timeout frees the slot when no answer arrives in time.
	Timeout time.Duration
	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
	// Logger receives send failures and timeouts.
	Logger *logging.Logger
	// Metrics receives sent/resolved/timed-out counts.
	Metrics *metrics.Metrics
}

// Scheduler keeps at most one query outstanding on a shared byte stream.
//
// Requests submitted while one is outstanding are queued in FIFO order.
// Answers are correlated purely by arrival order: the next recognized
// sequence resolves whatever request is outstanding. A request that times
// out is dropped without notifying its caller.
type Scheduler struct {
	mu          sync.Mutex
	send        func([]byte) error
	timeout     time.Duration
	now         func() time.Time
	log         *logging.Logger
	metrics     *metrics.Metrics
	queue       []*Request
	outstanding *Request
	sentAt      time.Time
}

// NewScheduler creates a scheduler writing requests through send.
func NewScheduler(send func([]byte) error, cfg SchedulerConfig) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		send:    send,
		timeout: cfg.Timeout,
		now:     cfg.Now,
		log:     logging.OrDefault(cfg.Logger).WithComponent("ansi-scheduler"),
		metrics: cfg.Metrics,
	}
}

// SendOrSchedule sends req immediately if no request is outstanding, and
// queues it otherwise.
func (s *Scheduler) SendOrSchedule(req *Request) error {
	if req == nil || req.Sequence == "" {
		return ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outstanding != nil {
		s.queue = append(s.queue, req)
		return nil
	}
	return s.sendLocked(req)
}

// Resolve offers a sequence read from the terminal. If it answers the
// outstanding request, the request's callback runs, the next queued request
// is sent and Resolve returns true.
func (s *Scheduler) Resolve(seq Sequence) bool {
	s.mu.Lock()
	req := s.outstanding
	if req == nil || !req.matches(seq) {
		s.mu.Unlock()
		return false
	}
	s.outstanding = nil
	s.sendNextLocked()
	s.mu.Unlock()

	s.metrics.RecordRequestResolved()
	if req.OnResponse != nil {
		req.OnResponse(seq)
	}
	return true
}

// RunTimeouts drops the outstanding request if it has waited longer than
// the timeout and sends the next queued one.
func (s *Scheduler) RunTimeouts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outstanding == nil || s.now().Sub(s.sentAt) < s.timeout {
		return
	}
	s.log.Debug("request %q timed out after %v", s.outstanding.Name, s.timeout)
	s.metrics.RecordRequestTimedOut()
	s.outstanding = nil
	s.sendNextLocked()
}

// Outstanding returns the request awaiting an answer, or nil.
func (s *Scheduler) Outstanding() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// Queued returns the number of requests waiting to be sent.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) sendLocked(req *Request) error {
	if err := s.send([]byte(req.Sequence)); err != nil {
		s.log.Warn("sending request %q: %v", req.Name, err)
		return errors.Wrapf(err, "sending ansi request %q", req.Name)
	}
	s.outstanding = req
	s.sentAt = s.now()
	s.metrics.RecordRequestSent()
	return nil
}

func (s *Scheduler) sendNextLocked() {
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		if err := s.sendLocked(next); err == nil {
			return
		}
	}
}
