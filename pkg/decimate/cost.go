package decimate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// coplanarCos is the cosine of the largest deviation from the mean normal
// for which planar mode treats a neighbourhood as flat (about 2 degrees).
var coplanarCos = math.Cos(2 * math.Pi / 180)

// shapeWeight scales the triangle shape penalty of the default mode.
const shapeWeight = 0.5

type plane struct {
	n r3.Vec
	d float64
}

func (p plane) dist(x r3.Vec) float64 {
	return math.Abs(r3.Dot(p.n, x) + p.d)
}

type candidate struct {
	pos  r3.Vec
	cost float64
}

// scratch holds per-goroutine buffers reused between evaluations.
type scratch struct {
	tris    []int32
	shared  []int32
	planes  []plane
	normals []r3.Vec
	cands   []candidate
	nbrA    []int32
	nbrB    []int32
	opp     []int32
}

// evaluation is the outcome of costing one edge.
type evaluation struct {
	keep, drop int32
	shared     int // triangles using the edge
	cands      []candidate
}

func (e *evaluation) best() float64 {
	if len(e.cands) == 0 {
		return math.Inf(1)
	}
	return e.cands[0].cost
}

// gather splits the live triangles around a and b into the ones using
// both (s.shared) and the rest (s.tris).
func (w *work) gather(a, b int32, s *scratch) {
	s.tris = s.tris[:0]
	s.shared = s.shared[:0]
	for _, t := range w.verts[a].tris {
		if containsVertex(w.tris[t].v[:], b) {
			s.shared = append(s.shared, t)
		} else {
			s.tris = append(s.tris, t)
		}
	}
	for _, t := range w.verts[b].tris {
		if !containsVertex(w.tris[t].v[:], a) {
			s.tris = append(s.tris, t)
		}
	}
}

// boundaryPlanes appends the constraint planes of the boundary edges at v.
// A boundary edge is used by exactly one of v's triangles; its plane holds
// the edge and stands perpendicular to that triangle.
func (w *work) boundaryPlanes(v int32, dst []plane) []plane {
	p := w.verts[v].pos
	for _, t := range w.verts[v].tris {
		for _, x := range w.tris[t].v {
			if x == v || w.edgeUses(v, x) != 1 {
				continue
			}
			n := unit(r3.Cross(r3.Sub(w.verts[x].pos, p), unit(w.faceNormal(t))))
			if n == (r3.Vec{}) {
				continue
			}
			dst = append(dst, plane{n: n, d: -r3.Dot(n, p)})
		}
	}
	return dst
}

// edgeUses counts v's triangles containing x.
func (w *work) edgeUses(v, x int32) int {
	n := 0
	for _, t := range w.verts[v].tris {
		if containsVertex(w.tris[t].v[:], x) {
			n++
		}
	}
	return n
}

func (w *work) onBoundary(v int32) bool {
	for _, t := range w.verts[v].tris {
		for _, x := range w.tris[t].v {
			if x != v && w.edgeUses(v, x) == 1 {
				return true
			}
		}
	}
	return false
}

// quality is 1 for an equilateral triangle and 0 for a degenerate one.
func quality(p0, p1, p2 r3.Vec) float64 {
	e := r3.Norm2(r3.Sub(p1, p0)) + r3.Norm2(r3.Sub(p2, p1)) + r3.Norm2(r3.Sub(p0, p2))
	if e == 0 {
		return 0
	}
	area2 := r3.Norm(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)))
	return 2 * math.Sqrt(3) * area2 / e
}

// moved returns the corners of t with a and b placed at p.
func (w *work) moved(t, a, b int32, p r3.Vec) (r3.Vec, r3.Vec, r3.Vec) {
	var c [3]r3.Vec
	for k, x := range w.tris[t].v {
		if x == a || x == b {
			c[k] = p
		} else {
			c[k] = w.verts[x].pos
		}
	}
	return c[0], c[1], c[2]
}

// evaluate costs collapsing the edge a-b. The cost of a target position is
// its largest distance to the planes of the surrounding triangles and of
// the boundary edges at a and b; in the default mode a shape penalty for
// triangles getting worse is added. Candidates come back sorted by cost.
func (w *work) evaluate(a, b int32, s *scratch) evaluation {
	ev := evaluation{keep: a, drop: b}
	va, vb := &w.verts[a], &w.verts[b]
	if va.dead || vb.dead || (va.frozen && vb.frozen) {
		return ev
	}
	if va.frozen {
		ev.keep, ev.drop = a, b
	} else if vb.frozen {
		ev.keep, ev.drop = b, a
	}
	w.gather(a, b, s)
	ev.shared = len(s.shared)
	if ev.shared == 0 {
		return ev
	}

	s.planes = s.planes[:0]
	s.normals = s.normals[:0]
	qBefore := 1.0
	face := func(t int32) {
		p0, p1, p2 := w.corners(t)
		qBefore = math.Min(qBefore, quality(p0, p1, p2))
		if u := unit(w.faceNormal(t)); u != (r3.Vec{}) {
			s.normals = append(s.normals, u)
			s.planes = append(s.planes, plane{n: u, d: -r3.Dot(u, p0)})
		}
	}
	for _, t := range s.tris {
		face(t)
	}
	for _, t := range s.shared {
		face(t)
	}
	s.planes = w.boundaryPlanes(a, s.planes)
	s.planes = w.boundaryPlanes(b, s.planes)

	penalize := !w.planar || !coplanar(s.normals)

	pa, pb := va.pos, vb.pos
	length := r3.Norm(r3.Sub(pb, pa))
	s.cands = s.cands[:0]
	if va.frozen || vb.frozen {
		s.cands = append(s.cands, candidate{pos: w.verts[ev.keep].pos})
	} else {
		mid := r3.Scale(0.5, r3.Add(pa, pb))
		s.cands = append(s.cands, candidate{pos: pa}, candidate{pos: pb}, candidate{pos: mid})
		if opt, ok := optimum(s.planes); ok && r3.Norm(r3.Sub(opt, mid)) <= length {
			s.cands = append(s.cands, candidate{pos: opt})
		}
	}

	for i := range s.cands {
		c := &s.cands[i]
		for _, pl := range s.planes {
			c.cost = math.Max(c.cost, pl.dist(c.pos))
		}
		if !penalize {
			continue
		}
		qAfter := 1.0
		for _, t := range s.tris {
			qAfter = math.Min(qAfter, quality(w.moved(t, a, b, c.pos)))
		}
		if qAfter < qBefore {
			c.cost += shapeWeight * length * (qBefore - qAfter)
		}
	}
	sort.Slice(s.cands, func(i, j int) bool { return s.cands[i].cost < s.cands[j].cost })
	ev.cands = s.cands
	return ev
}

// coplanar reports whether all normals lie within coplanarCos of their
// mean.
func coplanar(normals []r3.Vec) bool {
	var mean r3.Vec
	for _, n := range normals {
		mean = r3.Add(mean, n)
	}
	mean = unit(mean)
	if mean == (r3.Vec{}) {
		return false
	}
	for _, n := range normals {
		if r3.Dot(n, mean) < coplanarCos {
			return false
		}
	}
	return true
}

// optimum returns the point minimizing the summed squared distance to the
// planes, when that point is well defined.
func optimum(planes []plane) (r3.Vec, bool) {
	if len(planes) < 3 {
		return r3.Vec{}, false
	}
	var q [9]float64
	var rhs [3]float64
	for _, p := range planes {
		n := [3]float64{p.n.X, p.n.Y, p.n.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				q[3*i+j] += n[i] * n[j]
			}
			rhs[i] -= n[i] * p.d
		}
	}
	A := mat.NewSymDense(3, q[:])
	var x mat.VecDense
	if err := x.SolveVec(A, mat.NewVecDense(3, rhs[:])); err != nil {
		// Singular or ill-conditioned: flat or cylindrical neighbourhood.
		return r3.Vec{}, false
	}
	v := r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
		return r3.Vec{}, false
	}
	return v, true
}
