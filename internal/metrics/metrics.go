// Package metrics tracks timing and throughput counters for the console
// driver. All methods are safe for concurrent use and are nil-receiver safe,
// so components can record unconditionally.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

const noMin = 1<<63 - 1

// durationStat accumulates count/total/min/max/last for one timing.
type durationStat struct {
	count   atomic.Uint64
	totalNs atomic.Int64
	minNs   atomic.Int64
	maxNs   atomic.Int64
	lastNs  atomic.Int64
}

func (d *durationStat) reset() {
	d.count.Store(0)
	d.totalNs.Store(0)
	d.minNs.Store(noMin)
	d.maxNs.Store(0)
	d.lastNs.Store(0)
}

func (d *durationStat) record(duration time.Duration) {
	ns := duration.Nanoseconds()

	d.count.Add(1)
	d.totalNs.Add(ns)
	d.lastNs.Store(ns)

	for {
		old := d.minNs.Load()
		if ns >= old || d.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := d.maxNs.Load()
		if ns <= old || d.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

func (d *durationStat) snapshot() Timing {
	t := Timing{
		Count: d.count.Load(),
		Max:   time.Duration(d.maxNs.Load()),
		Last:  time.Duration(d.lastNs.Load()),
	}
	if t.Count > 0 {
		t.Avg = time.Duration(d.totalNs.Load() / int64(t.Count))
	}
	if m := d.minNs.Load(); m != noMin {
		t.Min = time.Duration(m)
	}
	return t
}

// Metrics tracks driver performance counters.
type Metrics struct {
	iteration durationStat
	inputTick durationStat
	write     durationStat

	recordsEnqueued atomic.Uint64
	bytesWritten    atomic.Uint64
	framesSkipped   atomic.Uint64
	readFaults      atomic.Uint64

	requestsSent     atomic.Uint64
	requestsResolved atomic.Uint64
	requestsTimedOut atomic.Uint64

	startTime atomic.Int64
}

// New creates a metrics tracker.
func New() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.iteration.reset()
	m.inputTick.reset()
	m.write.reset()
	m.recordsEnqueued.Store(0)
	m.bytesWritten.Store(0)
	m.framesSkipped.Store(0)
	m.readFaults.Store(0)
	m.requestsSent.Store(0)
	m.requestsResolved.Store(0)
	m.requestsTimedOut.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// RecordIteration records the duration of one main loop iteration.
func (m *Metrics) RecordIteration(d time.Duration) {
	if m != nil {
		m.iteration.record(d)
	}
}

// RecordInputTick records the time spent reading and enqueueing in one reader tick.
func (m *Metrics) RecordInputTick(d time.Duration, records int) {
	if m == nil {
		return
	}
	m.inputTick.record(d)
	if records > 0 {
		m.recordsEnqueued.Add(uint64(records))
	}
}

// RecordReadFault records a peek or read error that was treated as no input.
func (m *Metrics) RecordReadFault() {
	if m != nil {
		m.readFaults.Add(1)
	}
}

// RecordWrite records one flushed frame.
func (m *Metrics) RecordWrite(d time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.write.record(d)
	if bytes > 0 {
		m.bytesWritten.Add(uint64(bytes))
	}
}

// RecordFrameSkipped records a frame dropped because the window was degenerate.
func (m *Metrics) RecordFrameSkipped() {
	if m != nil {
		m.framesSkipped.Add(1)
	}
}

// RecordRequestSent records an ANSI query written to the terminal.
func (m *Metrics) RecordRequestSent() {
	if m != nil {
		m.requestsSent.Add(1)
	}
}

// RecordRequestResolved records an ANSI query answered by the terminal.
func (m *Metrics) RecordRequestResolved() {
	if m != nil {
		m.requestsResolved.Add(1)
	}
}

// RecordRequestTimedOut records an ANSI query dropped after its timeout.
func (m *Metrics) RecordRequestTimedOut() {
	if m != nil {
		m.requestsTimedOut.Add(1)
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Uptime:           time.Since(time.Unix(0, m.startTime.Load())),
		Iterations:       m.iteration.snapshot(),
		InputTicks:       m.inputTick.snapshot(),
		Writes:           m.write.snapshot(),
		RecordsEnqueued:  m.recordsEnqueued.Load(),
		BytesWritten:     m.bytesWritten.Load(),
		FramesSkipped:    m.framesSkipped.Load(),
		ReadFaults:       m.readFaults.Load(),
		RequestsSent:     m.requestsSent.Load(),
		RequestsResolved: m.requestsResolved.Load(),
		RequestsTimedOut: m.requestsTimedOut.Load(),
	}
}

// Timing summarizes one duration statistic.
type Timing struct {
	Count uint64
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// Snapshot is a point-in-time view of metrics.
type Snapshot struct {
	Uptime           time.Duration
	Iterations       Timing
	InputTicks       Timing
	Writes           Timing
	RecordsEnqueued  uint64
	BytesWritten     uint64
	FramesSkipped    uint64
	ReadFaults       uint64
	RequestsSent     uint64
	RequestsResolved uint64
	RequestsTimedOut uint64
}

// Summary returns a one-line human readable summary.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("iter=%d avg=%v frames=%d bytes=%d records=%d req=%d/%d/%d",
		s.Iterations.Count, s.Iterations.Avg.Round(time.Microsecond),
		s.Writes.Count, s.BytesWritten, s.RecordsEnqueued,
		s.RequestsSent, s.RequestsResolved, s.RequestsTimedOut)
}

// Stopwatch measures elapsed time from an injectable clock.
type Stopwatch struct {
	now   func() time.Time
	start time.Time
}

// StartStopwatch starts a stopwatch. A nil clock uses time.Now.
func StartStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now, start: now()}
}

// Elapsed returns the time since the stopwatch started.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// Remaining returns how much of tick is left, or zero if it has passed.
func (s *Stopwatch) Remaining(tick time.Duration) time.Duration {
	if r := tick - s.Elapsed(); r > 0 {
		return r
	}
	return 0
}
