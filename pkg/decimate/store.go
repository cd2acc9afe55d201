package decimate

import (
	"github.com/chazu/meshdecimate/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// store writes the result back into the bound buffers. Live vertices and
// triangles keep their relative order; whole records move so the extra
// bytes of wide strides travel with them. Split copies first take over the
// record of the vertex they were copied from.
func (w *work) store(op *mesh.Operation) {
	vb := op.Vertices()
	ib := op.Indices()

	if len(w.verts) > vb.Len() {
		vb.SetLen(len(w.verts))
	}
	for i := w.nInput; i < len(w.verts); i++ {
		vb.CopyRecord(i, int(w.origin[i]))
	}

	remap := make([]int32, len(w.verts))
	n := 0
	for i := range w.verts {
		if w.verts[i].dead {
			remap[i] = -1
			continue
		}
		vb.CopyRecord(n, i)
		vb.Set(n, w.verts[i].pos)
		remap[i] = int32(n)
		n++
	}
	vb.SetLen(n)

	m := 0
	for _, t := range w.tris {
		if t.dead {
			continue
		}
		ib.CopyRecord(m, int(t.src))
		ib.SetTri(m, [3]int{int(remap[t.v[0]]), int(remap[t.v[1]]), int(remap[t.v[2]])})
		m++
	}
	ib.SetLen(m)

	if nb := op.Normals(); nb != nil {
		w.storeNormals(nb, remap, n)
	}

	op.VertexCount = n
	op.TriangleCount = m
}

// storeNormals writes area-weighted vertex normals.
func (w *work) storeNormals(nb *mesh.VertexBuffer, remap []int32, n int) {
	acc := make([]r3.Vec, n)
	for ti := range w.tris {
		t := &w.tris[ti]
		if t.dead {
			continue
		}
		fn := w.faceNormal(int32(ti))
		for _, v := range t.v {
			acc[remap[v]] = r3.Add(acc[remap[v]], fn)
		}
	}
	nb.SetLen(n)
	for i, v := range acc {
		nb.Set(i, unit(v))
	}
}
