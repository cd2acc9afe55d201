package decimate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// outcome of trying one edge.
type outcome int

const (
	skipped   outcome = iota // edge gone or not admissible
	rejected                 // admissible but the collapse would break the mesh
	collapsed
)

// collapsible checks the topology around the edge for the evaluation ev,
// whose gather left the shared and remaining triangles in s.
func (w *work) collapsible(ev *evaluation, s *scratch) bool {
	a, b := ev.keep, ev.drop
	if ev.shared > 2 {
		return false
	}
	if len(s.tris) == 0 {
		// Nothing would survive.
		return false
	}

	s.opp = s.opp[:0]
	for _, t := range s.shared {
		for _, x := range w.tris[t].v {
			if x != a && x != b && !containsVertex(s.opp, x) {
				s.opp = append(s.opp, x)
			}
		}
	}
	if len(s.opp) != ev.shared {
		return false
	}

	// Link condition: a and b may only share the neighbours across the
	// triangles being removed.
	s.nbrA = w.neighbours(a, s.nbrA[:0])
	s.nbrB = w.neighbours(b, s.nbrB[:0])
	common := 0
	for _, x := range s.nbrA {
		if x != b && containsVertex(s.nbrB, x) {
			common++
		}
	}
	if common != len(s.opp) {
		return false
	}

	if ev.shared == 2 && w.onBoundary(a) && w.onBoundary(b) {
		// An interior edge joining two boundary points would pinch the
		// surface.
		return false
	}

	// Every opposite vertex must keep at least one triangle.
	for _, c := range s.opp {
		lost := 0
		for _, t := range s.shared {
			if containsVertex(w.tris[t].v[:], c) {
				lost++
			}
		}
		if lost >= len(w.verts[c].tris) {
			return false
		}
	}

	// No surviving triangle of b may turn into a copy of one of a's.
	for _, t := range w.verts[b].tris {
		if containsVertex(s.shared, t) {
			continue
		}
		if w.duplicates(t, a, b) {
			return false
		}
	}
	return true
}

// duplicates reports whether triangle t, with b replaced by a, uses the
// same vertices as a triangle already incident to a.
func (w *work) duplicates(t, a, b int32) bool {
	var want [3]int32
	for k, x := range w.tris[t].v {
		if x == b {
			x = a
		}
		want[k] = x
	}
	for _, u := range w.verts[a].tris {
		uv := w.tris[u].v
		if containsVertex(uv[:], want[0]) && containsVertex(uv[:], want[1]) && containsVertex(uv[:], want[2]) {
			return true
		}
	}
	return false
}

// keepsOrientation reports whether moving a and b to p leaves every
// surviving triangle facing the same way and non-degenerate, unless it was
// already degenerate.
func (w *work) keepsOrientation(a, b int32, p r3.Vec, s *scratch) bool {
	for _, t := range s.tris {
		p0, p1, p2 := w.corners(t)
		before := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		q0, q1, q2 := w.moved(t, a, b, p)
		after := r3.Cross(r3.Sub(q1, q0), r3.Sub(q2, q0))

		longest := math.Max(r3.Norm2(r3.Sub(q1, q0)), math.Max(r3.Norm2(r3.Sub(q2, q1)), r3.Norm2(r3.Sub(q0, q2))))
		eps := 1e-12 * longest
		wasFlat := r3.Norm(before) <= eps
		if r3.Norm(after) <= eps {
			if !wasFlat {
				return false
			}
			continue
		}
		if !wasFlat && r3.Dot(unit(before), unit(after)) < 0 {
			return false
		}
	}
	return true
}

// commit collapses drop into keep at position p. The caller holds the
// locks of both endpoints and all their neighbours.
func (w *work) commit(keep, drop int32, p r3.Vec, s *scratch) {
	w.verts[keep].pos = w.round(p)

	for _, t := range s.shared {
		w.tris[t].dead = true
		for _, x := range w.tris[t].v {
			w.verts[x].tris = removeTriangle(w.verts[x].tris, t)
		}
	}
	for _, t := range w.verts[drop].tris {
		tv := &w.tris[t].v
		for k := range tv {
			if tv[k] == drop {
				tv[k] = keep
			}
		}
		w.verts[keep].tris = append(w.verts[keep].tris, t)
	}
	w.verts[drop].tris = nil
	w.verts[drop].dead = true

	w.liveTris.Add(-int64(len(s.shared)))
	w.collapses.Add(1)
}

// reserveVertex claims one vertex removal against the target vertex cap.
// It returns false, and stops the run, once the cap is reached.
func (w *work) reserveVertex() bool {
	for {
		n := w.liveVerts.Load()
		if w.vertCap > 0 && n <= w.vertCap {
			w.stop.Store(true)
			return false
		}
		if w.liveVerts.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// tryCollapse evaluates and, when possible, collapses the edge a-b.
// Candidates are tried cheapest first; the first one that keeps every
// triangle's orientation wins.
func (w *work) tryCollapse(ev *evaluation, s *scratch) outcome {
	if ev.best() >= w.feature {
		return skipped
	}
	if !w.collapsible(ev, s) {
		w.collisions.Add(1)
		return rejected
	}
	for _, c := range ev.cands {
		if c.cost >= w.feature {
			break
		}
		if !w.keepsOrientation(ev.keep, ev.drop, c.pos, s) {
			continue
		}
		if !w.reserveVertex() {
			return skipped
		}
		w.commit(ev.keep, ev.drop, c.pos, s)
		return collapsed
	}
	w.collisions.Add(1)
	return rejected
}
