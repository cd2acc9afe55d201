// Package progress delivers rate-limited status records from a running
// decimation to a caller-supplied function.
package progress

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Stage identifies a phase of a decimation run. The set is closed and the
// numeric ids are stable.
type Stage int

const (
	StageInit           Stage = iota // 0
	StageBuildVertices               // 1
	StageBuildTriangles              // 2
	StageBuildAdjacency              // 3
	StageBuildQueues                 // 4
	StageDecimation                  // 5
	StageStore                       // 6
	StageDone                        // 7
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "Init"
	case StageBuildVertices:
		return "Build vertices"
	case StageBuildTriangles:
		return "Build triangles"
	case StageBuildAdjacency:
		return "Build adjacency"
	case StageBuildQueues:
		return "Build edge queues"
	case StageDecimation:
		return "Decimation"
	case StageStore:
		return "Store geometry"
	case StageDone:
		return "Done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= StageInit && s <= StageDone
}

// Status is one progress record.
type Status struct {
	Stage     Stage
	Name      string
	Progress  float64 // fraction of the stage completed, in [0,1]
	Triangles int     // current triangle count
}

// Func receives status records.
type Func func(Status)

// queueSize bounds the records waiting for delivery. Records that do not
// fit are dropped; the final Done record is never dropped.
const queueSize = 64

// Reporter rate-limits status records and hands them to a single delivery
// goroutine. Any goroutine may call Enter or Update; the callback itself
// only ever runs on the delivery goroutine, one record at a time, in the
// order the records were accepted. Close blocks until every accepted record
// has been delivered, so no callback runs after the decimation returns.
//
// A nil *Reporter is valid and discards everything.
type Reporter struct {
	fn       Func
	interval time.Duration

	mu       sync.Mutex
	last     time.Time // zero before the first emission
	stage    Stage
	progress float64 // highest fraction reported in the current stage
	closed   bool

	ch   chan Status
	done chan struct{}
}

// NewReporter starts a reporter delivering to fn. It returns nil when fn
// is nil.
func NewReporter(fn Func, minInterval time.Duration) *Reporter {
	if fn == nil {
		return nil
	}
	r := &Reporter{
		fn:       fn,
		interval: max(minInterval, 0),
		ch:       make(chan Status, queueSize),
		done:     make(chan struct{}),
	}
	go r.deliver()
	return r
}

func (r *Reporter) deliver() {
	defer close(r.done)
	for s := range r.ch {
		r.fn(s)
	}
}

// Enter moves the reporter to stage s. Stages only move forward; an
// earlier stage is ignored.
func (r *Reporter) Enter(s Stage, triangles int) {
	if r == nil || !s.Valid() || s == StageDone {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || s < r.stage {
		return
	}
	if s > r.stage {
		r.stage = s
		r.progress = 0
	}
	r.emitLocked(0, triangles)
}

// Update reports progress within the current stage.
func (r *Reporter) Update(fraction float64, triangles int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.emitLocked(fraction, triangles)
}

// Close emits the Done record and waits for delivery to finish. Calls
// after the first are no-ops.
func (r *Reporter) Close(triangles int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.stage = StageDone
	r.mu.Unlock()

	r.ch <- Status{Stage: StageDone, Name: StageDone.String(), Progress: 1, Triangles: triangles}
	close(r.ch)
	<-r.done
}

func (r *Reporter) emitLocked(fraction float64, triangles int) {
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return
	}
	r.progress = math.Max(r.progress, clamp(fraction))
	s := Status{
		Stage:     r.stage,
		Name:      r.stage.String(),
		Progress:  r.progress,
		Triangles: triangles,
	}
	select {
	case r.ch <- s:
		r.last = now
	default:
		// Delivery is behind; drop the record.
	}
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
