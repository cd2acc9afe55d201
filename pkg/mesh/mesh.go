package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a flat triangle mesh suitable for rendering or serialization.
// Vertices has 3 floats per vertex (x,y,z), normals has 3 floats per vertex,
// indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Buffers packs the mesh into float32/uint32 buffers ready for binding,
// reserving spare extra vertex slots.
func (m *Mesh) Buffers(spare int) (*VertexBuffer, *IndexBuffer) {
	return Float32Vertices(m.Vertices, spare), Uint32Indices(m.Indices)
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if m.IsEmpty() {
		return r3.Vec{}, r3.Vec{}
	}
	min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		x, y, z := float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])
		min.X, max.X = math.Min(min.X, x), math.Max(max.X, x)
		min.Y, max.Y = math.Min(min.Y, y), math.Max(max.Y, y)
		min.Z, max.Z = math.Min(min.Z, z), math.Max(max.Z, z)
	}
	return min, max
}

// Diagonal returns the length of the bounding box diagonal.
func (m *Mesh) Diagonal() float64 {
	lo, hi := m.Bounds()
	return r3.Norm(r3.Sub(hi, lo))
}

// FromBuffers decodes bound buffers into a flat mesh. normals may be nil;
// all of its live records are decoded.
func FromBuffers(vertices *VertexBuffer, indices *IndexBuffer, normals *VertexBuffer) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, 3*vertices.Len()),
		Indices:  make([]uint32, 0, 3*indices.Len()),
	}
	for _, v := range vertices.Positions() {
		m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, t := range indices.Triangles() {
		m.Indices = append(m.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	if normals != nil {
		m.Normals = make([]float32, 0, 3*normals.Len())
		for _, n := range normals.Positions() {
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	return m
}
