package decimate

import (
	"fmt"
	"sync/atomic"

	"github.com/chazu/meshdecimate/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type vertex struct {
	pos    r3.Vec
	tris   []int32 // incident live triangles
	frozen bool    // never moved or removed
	dead   bool
}

type triangle struct {
	v    [3]int32
	src  int32 // input record the triangle was read from
	dead bool
}

// work is the in-memory mesh a run operates on. Vertex i of work is
// record i of the bound vertex buffer; split copies are appended after the
// input vertices.
//
// Vertex data may only be changed by the worker holding that vertex's
// lock, and a triangle only by the worker holding all of its vertices.
type work struct {
	verts  []vertex
	tris   []triangle
	origin []int32 // record each vertex copies its extra attributes from
	nInput int

	owner []atomic.Int32 // worker id + 1 holding the vertex, 0 when free

	liveVerts atomic.Int64
	liveTris  atomic.Int64

	feature  float64
	vertCap  int64 // stop once liveVerts reaches it; 0 disables
	capacity int   // vertex slots usable by splitting
	planar   bool
	round    func(r3.Vec) r3.Vec
	stop     atomic.Bool

	collapses  atomic.Int64
	collisions atomic.Int64
	deferrals  atomic.Int64
}

func edgeKey(a, b int32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func edgeEnds(k uint64) (int32, int32) {
	return int32(uint32(k >> 32)), int32(uint32(k))
}

// loadVertices reads the bound vertex records.
func loadVertices(op *mesh.Operation) *work {
	vb := op.Vertices()
	n := vb.Len()
	w := &work{
		verts:    make([]vertex, n, max(n, op.VertexCapacity())),
		origin:   make([]int32, n, max(n, op.VertexCapacity())),
		nInput:   n,
		feature:  op.FeatureSize(),
		vertCap:  int64(op.TargetVertexCap()),
		capacity: op.VertexCapacity(),
		round:    vb.Round,
	}
	for i := range w.verts {
		w.verts[i].pos = vb.At(i)
		w.origin[i] = int32(i)
	}
	return w
}

// loadTriangles reads the bound index records. Out of range indices are a
// configuration error; triangles repeating an index are dropped.
func (w *work) loadTriangles(ib *mesh.IndexBuffer) error {
	n := len(w.verts)
	w.tris = make([]triangle, 0, ib.Len())
	for i := 0; i < ib.Len(); i++ {
		t := ib.Tri(i)
		for _, v := range t {
			if v < 0 || v >= n {
				return &mesh.ConfigError{
					Field:   "index",
					Message: fmt.Sprintf("triangle %d references vertex %d of %d", i, v, n),
				}
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		w.tris = append(w.tris, triangle{
			v:   [3]int32{int32(t[0]), int32(t[1]), int32(t[2])},
			src: int32(i),
		})
	}
	return nil
}

// linkTriangles builds the vertex to triangle incidence lists. Vertices
// that no triangle references are dead from the start.
func (w *work) linkTriangles() {
	counts := make([]int32, len(w.verts))
	for _, t := range w.tris {
		for _, v := range t.v {
			counts[v]++
		}
	}
	for i := range w.verts {
		w.verts[i].tris = make([]int32, 0, counts[i])
	}
	for ti, t := range w.tris {
		for _, v := range t.v {
			w.verts[v].tris = append(w.verts[v].tris, int32(ti))
		}
	}
	live := 0
	for i := range w.verts {
		if len(w.verts[i].tris) == 0 {
			w.verts[i].dead = true
			continue
		}
		live++
	}
	w.liveVerts.Store(int64(live))
	w.liveTris.Store(int64(len(w.tris)))
}

// edgeMap returns, for every edge, the triangles using it.
func (w *work) edgeMap() map[uint64][]int32 {
	edges := make(map[uint64][]int32, len(w.tris)*3/2)
	for ti, t := range w.tris {
		if t.dead {
			continue
		}
		for k := 0; k < 3; k++ {
			key := edgeKey(t.v[k], t.v[(k+1)%3])
			edges[key] = append(edges[key], int32(ti))
		}
	}
	return edges
}

// freezeNonManifold freezes the endpoints of edges shared by more than two
// triangles and vertices whose triangles form more than one fan.
func (w *work) freezeNonManifold(edges map[uint64][]int32) {
	for key, ts := range edges {
		if len(ts) > 2 {
			a, b := edgeEnds(key)
			w.verts[a].frozen = true
			w.verts[b].frozen = true
		}
	}
	for i := range w.verts {
		v := &w.verts[i]
		if v.dead || v.frozen {
			continue
		}
		if len(w.fans(int32(i), nil)) > 1 {
			v.frozen = true
		}
	}
}

// fans groups the triangles around v into sets connected through edges
// incident to v. When join is non-nil two neighbouring triangles are only
// connected if join accepts them.
func (w *work) fans(v int32, join func(t0, t1 int32) bool) [][]int32 {
	ts := w.verts[v].tris
	parent := make([]int, len(ts))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range ts {
		for j := i + 1; j < len(ts); j++ {
			if !w.shareEdgeAt(v, ts[i], ts[j]) {
				continue
			}
			if join != nil && !join(ts[i], ts[j]) {
				continue
			}
			if ri, rj := find(i), find(j); ri != rj {
				parent[rj] = ri
			}
		}
	}
	groups := make(map[int][]int32)
	var order []int
	for i, t := range ts {
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], t)
	}
	out := make([][]int32, 0, len(order))
	for _, r := range order {
		out = append(out, groups[r])
	}
	return out
}

// shareEdgeAt reports whether triangles t0 and t1, both incident to v,
// share a second vertex.
func (w *work) shareEdgeAt(v, t0, t1 int32) bool {
	for _, a := range w.tris[t0].v {
		if a == v {
			continue
		}
		for _, b := range w.tris[t1].v {
			if a == b {
				return true
			}
		}
	}
	return false
}

func (w *work) corners(t int32) (r3.Vec, r3.Vec, r3.Vec) {
	tv := w.tris[t].v
	return w.verts[tv[0]].pos, w.verts[tv[1]].pos, w.verts[tv[2]].pos
}

// faceNormal returns the unnormalized normal of t; its length is twice the
// triangle area.
func (w *work) faceNormal(t int32) r3.Vec {
	p0, p1, p2 := w.corners(t)
	return r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
}

// unit returns v normalized, or the zero vector for a zero-length v.
func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// neighbours appends the distinct vertices adjacent to v.
func (w *work) neighbours(v int32, dst []int32) []int32 {
	for _, t := range w.verts[v].tris {
		for _, x := range w.tris[t].v {
			if x == v || containsVertex(dst, x) {
				continue
			}
			dst = append(dst, x)
		}
	}
	return dst
}

func containsVertex(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeTriangle(s []int32, t int32) []int32 {
	for i, x := range s {
		if x == t {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
