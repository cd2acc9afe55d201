package shape

import (
	"math"

	"github.com/chazu/meshdecimate/pkg/mesh"
)

// UVSphere returns a closed sphere with one vertex at each pole and
// stacks-1 rings of slices vertices in between. Triangles wind
// counter-clockwise seen from outside. It has 2+(stacks-1)*slices vertices
// and 2*slices*(stacks-1) triangles.
func UVSphere(stacks, slices int, radius float64) *mesh.Mesh {
	stacks = max(stacks, 2)
	slices = max(slices, 3)
	m := &mesh.Mesh{PartName: "uv-sphere"}
	add := func(x, y, z float64) {
		m.Vertices = append(m.Vertices, float32(radius*x), float32(radius*y), float32(radius*z))
	}
	add(0, 0, 1)
	for i := 1; i < stacks; i++ {
		theta := math.Pi * float64(i) / float64(stacks)
		for j := 0; j < slices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(slices)
			add(math.Sin(theta)*math.Cos(phi), math.Sin(theta)*math.Sin(phi), math.Cos(theta))
		}
	}
	add(0, 0, -1)

	south := uint32(1 + (stacks-1)*slices)
	ring := func(i, j int) uint32 { return uint32(1 + (i-1)*slices + j%slices) }
	for j := 0; j < slices; j++ {
		m.Indices = append(m.Indices, 0, ring(1, j), ring(1, j+1))
	}
	for i := 1; i < stacks-1; i++ {
		for j := 0; j < slices; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			m.Indices = append(m.Indices, a, c, d, a, d, b)
		}
	}
	for j := 0; j < slices; j++ {
		m.Indices = append(m.Indices, south, ring(stacks-1, j+1), ring(stacks-1, j))
	}
	return m
}

// RingSphere returns a unit ring/sector sphere: rings of sectors vertices
// each from pole to pole, including a ring of coincident vertices at each
// pole. The pole triangles have zero area.
func RingSphere(rings, sectors int) *mesh.Mesh {
	rings = max(rings, 2)
	sectors = max(sectors, 3)
	m := &mesh.Mesh{PartName: "ring-sphere"}
	for i := 0; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings-1)
		for j := 0; j < sectors; j++ {
			phi := 2 * math.Pi * float64(j) / float64(sectors)
			m.Vertices = append(m.Vertices,
				float32(math.Sin(theta)*math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta)*math.Sin(phi)))
		}
	}
	for i := 0; i < rings-1; i++ {
		cur, next := uint32(i*sectors), uint32((i+1)*sectors)
		for j := 0; j < sectors; j++ {
			nj := uint32((j + 1) % sectors)
			uj := uint32(j)
			m.Indices = append(m.Indices,
				cur+uj, next+uj, next+nj,
				cur+uj, next+nj, cur+nj)
		}
	}
	return m
}

// Cube returns an axis-aligned cube centred on the origin: 8 vertices and
// 12 outward-facing triangles.
func Cube(size float64) *mesh.Mesh {
	h := float32(size / 2)
	return &mesh.Mesh{
		PartName: "cube",
		Vertices: []float32{
			-h, -h, -h, h, -h, -h, h, h, -h, -h, h, -h,
			-h, -h, h, h, -h, h, h, h, h, -h, h, h,
		},
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // -z
			4, 5, 6, 4, 6, 7, // +z
			0, 1, 5, 0, 5, 4, // -y
			3, 7, 6, 3, 6, 2, // +y
			0, 4, 7, 0, 7, 3, // -x
			1, 2, 6, 1, 6, 5, // +x
		},
	}
}

// Grid returns a flat n x n grid of quads in the z=0 plane, each split into
// two triangles: (n+1)^2 vertices and 2n^2 triangles.
func Grid(n int, size float64) *mesh.Mesh {
	n = max(n, 1)
	m := &mesh.Mesh{PartName: "grid"}
	step := size / float64(n)
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			m.Vertices = append(m.Vertices, float32(float64(j)*step), float32(float64(i)*step), 0)
		}
	}
	at := func(i, j int) uint32 { return uint32(i*(n+1) + j) }
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, b, c, d := at(i, j), at(i, j+1), at(i+1, j+1), at(i+1, j)
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	return m
}
