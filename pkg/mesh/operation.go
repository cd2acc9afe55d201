package mesh

import (
	"sync/atomic"
	"time"

	"github.com/chazu/meshdecimate/pkg/progress"
	"github.com/google/uuid"
)

// Operation is the context of one decimation run: the bound buffers, the
// run configuration and the results of the most recent run.
//
// An Operation may be used by exactly one in-flight run at a time. Runs
// claim it through Acquire; a concurrent second run fails with ErrInUse
// instead of racing on the buffers. An Operation is not resumable: each run
// starts from whatever the buffers hold at that moment.
type Operation struct {
	vertices *VertexBuffer
	indices  *IndexBuffer
	normals  *VertexBuffer

	featureSize    float64
	targetVertices int
	capacity       int
	statusFn       progress.Func
	statusInterval time.Duration

	// Results of the most recent run.
	VertexCount   int
	TriangleCount int
	Collapses     int64 // cumulative edge collapses
	Collisions    int64 // cumulative rejected collapse candidates
	Deferrals     int64 // cumulative collapses postponed by a lock conflict

	runID string
	busy  atomic.Bool
}

// NewOperation returns a reset Operation.
func NewOperation() *Operation {
	return &Operation{}
}

// Reset clears bindings, configuration and results. It must not be called
// while a run holds the Operation.
func (op *Operation) Reset() {
	op.vertices = nil
	op.indices = nil
	op.normals = nil
	op.featureSize = 0
	op.targetVertices = 0
	op.capacity = 0
	op.statusFn = nil
	op.statusInterval = 0
	op.VertexCount = 0
	op.TriangleCount = 0
	op.Collapses = 0
	op.Collisions = 0
	op.Deferrals = 0
	op.runID = ""
}

// Bind attaches the vertex and index buffers. Nothing is mutated when
// validation fails.
func (op *Operation) Bind(vertices *VertexBuffer, indices *IndexBuffer) error {
	if err := vertices.validate("vertex"); err != nil {
		return err
	}
	if err := indices.validate(); err != nil {
		return err
	}
	op.vertices = vertices
	op.indices = indices
	op.VertexCount = vertices.Len()
	op.TriangleCount = indices.Len()
	return nil
}

// SetStrength sets the feature size: the largest geometric error an edge
// collapse may introduce.
func (op *Operation) SetStrength(featureSize float64) { op.featureSize = featureSize }

// SetVertexCapacity sets how many vertex slots the run may use, counting
// the bound vertices. Zero means the capacity of the vertex buffer.
func (op *Operation) SetVertexCapacity(capacity int) { op.capacity = capacity }

// SetTargetVertexCap stops simplification once the vertex count reaches
// max. Zero disables the cap.
func (op *Operation) SetTargetVertexCap(max int) { op.targetVertices = max }

// SetStatusCallback installs fn to receive progress records no more often
// than minInterval. See progress.Reporter for delivery guarantees.
func (op *Operation) SetStatusCallback(fn progress.Func, minInterval time.Duration) {
	op.statusFn = fn
	op.statusInterval = minInterval
}

// SetNormalOutput requests area-weighted vertex normals of the result to
// be written into normals after a successful run. Pass nil to disable.
func (op *Operation) SetNormalOutput(normals *VertexBuffer) { op.normals = normals }

func (op *Operation) Vertices() *VertexBuffer       { return op.vertices }
func (op *Operation) Indices() *IndexBuffer         { return op.indices }
func (op *Operation) Normals() *VertexBuffer        { return op.normals }
func (op *Operation) FeatureSize() float64          { return op.featureSize }
func (op *Operation) TargetVertexCap() int          { return op.targetVertices }
func (op *Operation) StatusCallback() progress.Func { return op.statusFn }
func (op *Operation) StatusInterval() time.Duration { return op.statusInterval }

// VertexCapacity returns the effective vertex slot limit.
func (op *Operation) VertexCapacity() int {
	if op.capacity > 0 {
		return op.capacity
	}
	if op.vertices == nil {
		return 0
	}
	return op.vertices.Cap()
}

// Validate checks the configuration a run depends on.
func (op *Operation) Validate() error {
	if op.vertices == nil || op.indices == nil {
		return configErrorf("", "buffers not bound")
	}
	if err := op.vertices.validate("vertex"); err != nil {
		return err
	}
	if err := op.indices.validate(); err != nil {
		return err
	}
	if !(op.featureSize >= 0) {
		return configErrorf("feature size", "must be a non-negative number, got %g", op.featureSize)
	}
	if op.targetVertices < 0 {
		return configErrorf("target vertex cap", "must not be negative, got %d", op.targetVertices)
	}
	if op.capacity < 0 {
		return configErrorf("vertex capacity", "must not be negative, got %d", op.capacity)
	}
	if c := op.VertexCapacity(); c < op.vertices.Len() || c > op.vertices.Cap() {
		return configErrorf("vertex capacity", "%d outside [%d, %d]", c, op.vertices.Len(), op.vertices.Cap())
	}
	if op.normals != nil {
		if !op.normals.format.Valid() || op.normals.stride < 3*op.normals.format.Size() {
			return configErrorf("normal buffer", "invalid layout")
		}
		if op.normals.Cap() < op.VertexCapacity() {
			return configErrorf("normal buffer", "capacity %d below vertex capacity %d", op.normals.Cap(), op.VertexCapacity())
		}
	}
	return nil
}

// Acquire marks the Operation as in use and assigns a fresh run id.
func (op *Operation) Acquire() error {
	if !op.busy.CompareAndSwap(false, true) {
		return ErrInUse
	}
	op.runID = uuid.NewString()
	return nil
}

// Release ends the exclusive use started by Acquire.
func (op *Operation) Release() {
	op.busy.Store(false)
}

// RunID identifies the most recent run in log output.
func (op *Operation) RunID() string { return op.runID }
