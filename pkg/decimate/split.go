package decimate

import (
	"fmt"

	"github.com/chazu/meshdecimate/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// creaseCos is the cosine of the largest angle between neighbouring face
// normals that still counts as one smooth fan (60 degrees).
const creaseCos = 0.5

// splitCreases gives every smooth fan around a vertex its own vertex. The
// first fan keeps the original vertex, the others get copies appended
// after the input vertices. Vertices involved in a split are frozen so the
// two sides of a crease keep meeting. Nothing changes when the copies do
// not fit in the vertex capacity.
func (w *work) splitCreases() error {
	normals := make([]r3.Vec, len(w.tris))
	for t := range w.tris {
		normals[t] = unit(w.faceNormal(int32(t)))
	}
	smooth := func(t0, t1 int32) bool {
		n0, n1 := normals[t0], normals[t1]
		if n0 == (r3.Vec{}) || n1 == (r3.Vec{}) {
			return true
		}
		return r3.Dot(n0, n1) >= creaseCos
	}

	type split struct {
		v    int32
		fans [][]int32
	}
	var splits []split
	extra := 0
	for i := range w.verts {
		if w.verts[i].dead {
			continue
		}
		fans := w.fans(int32(i), smooth)
		if len(fans) > 1 {
			splits = append(splits, split{v: int32(i), fans: fans})
			extra += len(fans) - 1
		}
	}
	if len(w.verts)+extra > w.capacity {
		return fmt.Errorf("%w: splitting needs %d vertex slots, capacity is %d",
			mesh.ErrCapacityExceeded, len(w.verts)+extra, w.capacity)
	}

	for _, s := range splits {
		w.verts[s.v].frozen = true
		w.verts[s.v].tris = append(w.verts[s.v].tris[:0], s.fans[0]...)
		for _, fan := range s.fans[1:] {
			c := int32(len(w.verts))
			w.verts = append(w.verts, vertex{
				pos:    w.verts[s.v].pos,
				tris:   append([]int32(nil), fan...),
				frozen: true,
			})
			w.origin = append(w.origin, s.v)
			for _, t := range fan {
				tv := &w.tris[t].v
				for k := range tv {
					if tv[k] == s.v {
						tv[k] = c
					}
				}
			}
		}
	}
	w.liveVerts.Add(int64(extra))
	return nil
}

// freezeSeams freezes every live vertex that shares its position with
// another live vertex. Those are the copies left by an earlier split; a
// crease opened once must stay pinned on later runs too.
func (w *work) freezeSeams() {
	first := make(map[r3.Vec]int32, len(w.verts))
	for i := range w.verts {
		v := &w.verts[i]
		if v.dead {
			continue
		}
		j, ok := first[v.pos]
		if !ok {
			first[v.pos] = int32(i)
			continue
		}
		v.frozen = true
		w.verts[j].frozen = true
	}
}
