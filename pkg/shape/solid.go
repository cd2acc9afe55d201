// Package shape produces indexed triangle meshes to decimate: sdfx solids
// tessellated with marching cubes, and a few analytic meshes with known
// vertex and triangle counts.
package shape

import (
	"fmt"

	"github.com/chazu/meshdecimate/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 64

// Solid wraps an sdf.SDF3.
type Solid struct {
	s sdf.SDF3
}

// Sphere returns a sphere of the given radius centred on the origin.
func Sphere(radius float64) (Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return Solid{}, fmt.Errorf("shape: sphere: %w", err)
	}
	return Solid{s: s}, nil
}

// Box returns a box with its minimum corner at the origin. round is the
// edge rounding radius.
func Box(x, y, z, round float64) (Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, round)
	if err != nil {
		return Solid{}, fmt.Errorf("shape: box: %w", err)
	}
	// Box3D is centred on the origin.
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return Solid{s: sdf.Transform3D(s, m)}, nil
}

// Cylinder returns a cylinder along Z centred on the origin.
func Cylinder(height, radius, round float64) (Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return Solid{}, fmt.Errorf("shape: cylinder: %w", err)
	}
	return Solid{s: s}, nil
}

// Union returns the union of two solids.
func Union(a, b Solid) Solid {
	return Solid{s: sdf.Union3D(a.s, b.s)}
}

// Difference returns the difference a - b.
func Difference(a, b Solid) Solid {
	return Solid{s: sdf.Difference3D(a.s, b.s)}
}

// Translate moves a solid by (x, y, z).
func Translate(s Solid, x, y, z float64) Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return Solid{s: sdf.Transform3D(s.s, m)}
}

// BoundingBox returns the axis-aligned bounding box.
func (s Solid) BoundingBox() (min, max r3.Vec) {
	bb := s.s.BoundingBox()
	min = r3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z}
	max = r3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z}
	return min, max
}

// Mesh tessellates the solid with uniform marching cubes and welds the
// triangle soup into an indexed mesh. cells <= 0 uses DefaultCells.
func (s Solid) Mesh(cells int) (*mesh.Mesh, error) {
	if s.s == nil {
		return nil, fmt.Errorf("shape: empty solid")
	}
	if cells <= 0 {
		cells = DefaultCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s.s, renderer)

	var w welder
	for _, tri := range triangles {
		w.add(tri[0], tri[1], tri[2])
	}
	if len(w.m.Indices) == 0 {
		return nil, fmt.Errorf("shape: tessellation produced no triangles")
	}
	return &w.m, nil
}

// welder merges vertices that round to the same float32 position.
type welder struct {
	m     mesh.Mesh
	index map[[3]float32]uint32
}

func (w *welder) vertex(v v3.Vec) uint32 {
	key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
	if i, ok := w.index[key]; ok {
		return i
	}
	if w.index == nil {
		w.index = make(map[[3]float32]uint32)
	}
	i := uint32(len(w.m.Vertices) / 3)
	w.index[key] = i
	w.m.Vertices = append(w.m.Vertices, key[0], key[1], key[2])
	return i
}

func (w *welder) add(a, b, c v3.Vec) {
	i, j, k := w.vertex(a), w.vertex(b), w.vertex(c)
	if i == j || j == k || i == k {
		return
	}
	w.m.Indices = append(w.m.Indices, i, j, k)
}
