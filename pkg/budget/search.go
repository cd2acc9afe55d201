package budget

import (
	"fmt"

	"github.com/chazu/meshdecimate/pkg/mesh"
)

// snapshot is a copy of the bound buffers.
type snapshot struct {
	vertices *mesh.VertexBuffer
	indices  *mesh.IndexBuffer
	normals  *mesh.VertexBuffer
}

func take(op *mesh.Operation) snapshot {
	s := snapshot{
		vertices: op.Vertices().Clone(),
		indices:  op.Indices().Clone(),
	}
	if nb := op.Normals(); nb != nil {
		s.normals = nb.Clone()
	}
	return s
}

// search tracks the trials of one DecimateToBudget call.
type search struct {
	op     *mesh.Operation
	target int
	tol    float64

	input snapshot
	best  snapshot

	iterations int
	found      bool // best holds a trial
	bestF      float64
	bestTris   int
	converged  bool
}

func newSearch(op *mesh.Operation, target int, opts Options) *search {
	return &search{
		op:     op,
		target: target,
		tol:    opts.Tolerance,
		input:  take(op),
		best:   take(op),
	}
}

// restore copies snap back into the bound buffers.
func (s *search) restore(snap snapshot) {
	s.op.Vertices().CopyFrom(snap.vertices)
	s.op.Indices().CopyFrom(snap.indices)
	if snap.normals != nil {
		s.op.Normals().CopyFrom(snap.normals)
	}
	s.op.VertexCount = snap.vertices.Len()
	s.op.TriangleCount = snap.indices.Len()
}

// better reports whether a trial with tris triangles beats the best one.
func (s *search) better(tris int) bool {
	if !s.found {
		return true
	}
	under, bestUnder := tris <= s.target, s.bestTris <= s.target
	switch {
	case under && !bestUnder:
		return true
	case under && bestUnder:
		return tris > s.bestTris
	case !under && !bestUnder:
		return tris < s.bestTris
	}
	return false
}

// offer records the trial currently in the buffers.
func (s *search) offer(f float64, tris int) {
	if !s.better(tris) {
		return
	}
	s.found = true
	s.bestF = f
	s.bestTris = tris
	s.best.vertices.CopyFrom(s.op.Vertices())
	s.best.indices.CopyFrom(s.op.Indices())
	if s.best.normals != nil {
		s.best.normals.CopyFrom(s.op.Normals())
	}
	if tris <= s.target && float64(tris) >= float64(s.target)*(1-s.tol) {
		s.converged = true
	}
}

// finish leaves the best trial in the buffers.
func (s *search) finish() Result {
	if !s.found {
		s.restore(s.input)
		return Result{
			FeatureSize: s.op.FeatureSize(),
			Triangles:   s.op.TriangleCount,
		}
	}
	s.restore(s.best)
	s.op.SetStrength(s.bestF)
	return Result{
		Iterations:  s.iterations,
		FeatureSize: s.bestF,
		Triangles:   s.bestTris,
		Converged:   s.converged,
	}
}

// fail restores the input after a kernel error.
func (s *search) fail(err error) (Result, error) {
	s.restore(s.input)
	return Result{Iterations: s.iterations}, fmt.Errorf("budget: trial %d: %w", s.iterations+1, err)
}
