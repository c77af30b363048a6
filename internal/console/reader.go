package console

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
)

// DefaultReaderTick is the polling period of a Reader.
const DefaultReaderTick = 20 * time.Millisecond

// ErrNotInitialized is returned by Run before Initialize.
var ErrNotInitialized = errors.New("console reader not initialized")

// Source is a platform input handle polled by a Reader.
//
// A Source is created, used and closed on the reader goroutine only.
type Source[T any] interface {
	// Peek reports whether input is available without blocking.
	Peek() (bool, error)

	// Read returns the available records. It may return none.
	Read() ([]T, error)

	// Close releases the OS handles.
	Close() error
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	// Tick is the polling period. Defaults to DefaultReaderTick.
	Tick time.Duration

	// Now is the time source used to measure decode time.
	Now func() time.Time

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Reader moves records from a Source to a Queue.
type Reader[T any] struct {
	src     Source[T]
	queue   *Queue[T]
	tick    time.Duration
	now     func() time.Time
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewReader creates a reader polling src.
func NewReader[T any](src Source[T], cfg ReaderConfig) *Reader[T] {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultReaderTick
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reader[T]{
		src:     src,
		tick:    cfg.Tick,
		now:     cfg.Now,
		log:     logging.OrDefault(cfg.Logger).WithComponent("reader"),
		metrics: cfg.Metrics,
	}
}

// Initialize sets the queue records are delivered to.
func (r *Reader[T]) Initialize(q *Queue[T]) {
	r.queue = q
}

// Run polls the source until ctx is cancelled. Each tick does one peek and
// read, then sleeps for the rest of the tick. Cancellation is checked every
// tick, so a source that always has input still lets Run return, and is not
// reported as an error.
func (r *Reader[T]) Run(ctx context.Context) error {
	if r.queue == nil {
		return ErrNotInitialized
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if ctx.Err() != nil {
			return nil
		}

		sw := metrics.StartStopwatch(r.now)
		n := r.Poll()
		r.metrics.RecordInputTick(sw.Elapsed(), n)

		wait := sw.Remaining(r.tick)
		if wait <= 0 {
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Poll peeks the source once and, if input is available, reads it into the
// queue. It returns the number of records enqueued. A peek or read fault
// counts as no input.
func (r *Reader[T]) Poll() int {
	ok, err := r.src.Peek()
	if err != nil {
		r.fault("peek", err)
		return 0
	}
	if !ok {
		return 0
	}

	records, err := r.src.Read()
	if err != nil {
		r.fault("read", err)
		return 0
	}
	r.queue.Enqueue(records...)
	return len(records)
}

func (r *Reader[T]) fault(op string, err error) {
	r.log.Debug("%s failed, treating as no input: %v", op, err)
	r.metrics.RecordReadFault()
}

// Dispose closes the source.
func (r *Reader[T]) Dispose() error {
	return r.src.Close()
}
