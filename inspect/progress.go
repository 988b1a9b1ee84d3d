package inspect

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	emitInterval = 500 * time.Millisecond
	logInterval  = 2 * time.Second
)

// Phase names the driver that produced a ProgressUpdate.
type Phase string

const (
	PhaseWrite  Phase = "write"
	PhaseVerify Phase = "verify"
)

// ProgressUpdate is a throttled snapshot of a running phase. It is advisory;
// the Report is the only authoritative result.
type ProgressUpdate struct {
	Phase         Phase   `json:"phase"`
	Percent       float64 `json:"percent"`
	SpeedMBps     float64 `json:"speed_mbps"`
	BytesWritten  uint64  `json:"bytes_written"`
	BytesVerified uint64  `json:"bytes_verified"`
	TotalBytes    uint64  `json:"total_bytes"`
}

// EventSink receives progress and error messages from a running phase. Both
// methods are called on the phase's goroutine and must not block.
type EventSink interface {
	Progress(update ProgressUpdate)
	Error(message string)
}

// CancelToken is a stop request shared between an orchestrator and a running
// phase. The orchestrator flips it; phases only read it, once per block. A nil
// token never cancels.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns a token that is not cancelled.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel requests a stop.
func (c *CancelToken) Cancel() {
	c.flag.Store(true)
}

// Reset clears a previous request so the token can be reused.
func (c *CancelToken) Reset() {
	c.flag.Store(false)
}

// Cancelled reports whether a stop was requested.
func (c *CancelToken) Cancelled() bool {
	return c != nil && c.flag.Load()
}

// tracker paces the two independent cadences of a phase: log lines and sink
// events.
type tracker struct {
	phase    Phase
	start    time.Time
	sink     EventSink
	logTick  rate.Sometimes
	emitTick rate.Sometimes
}

func newTracker(phase Phase, sink EventSink) *tracker {
	return &tracker{
		phase:    phase,
		start:    time.Now(),
		sink:     sink,
		logTick:  rate.Sometimes{Interval: logInterval},
		emitTick: rate.Sometimes{Interval: emitInterval},
	}
}

func (t *tracker) speedMBps(bytes uint64) float64 {
	elapsed := time.Since(t.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / (1024 * 1024) / elapsed
}

// snapshot builds an update; done counts bytes written in the write phase and
// bytes verified in the verify phase.
func (t *tracker) snapshot(done, total uint64) ProgressUpdate {
	u := ProgressUpdate{
		Phase:      t.phase,
		Percent:    percentOf(done, total),
		SpeedMBps:  t.speedMBps(done),
		TotalBytes: total,
	}
	if t.phase == PhaseWrite {
		u.BytesWritten = done
	} else {
		u.BytesWritten = total
		u.BytesVerified = done
	}
	return u
}

// tick logs with logf and emits to the sink, each at its own cadence.
func (t *tracker) tick(done, total uint64, logf func()) {
	t.logTick.Do(logf)
	if t.sink != nil {
		t.emitTick.Do(func() { t.sink.Progress(t.snapshot(done, total)) })
	}
}

// final emits unconditionally.
func (t *tracker) final(done, total uint64) {
	if t.sink != nil {
		t.sink.Progress(t.snapshot(done, total))
	}
}

func percentOf(done, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func emitError(sink EventSink, message string) {
	if sink != nil {
		sink.Error(message)
	}
}
