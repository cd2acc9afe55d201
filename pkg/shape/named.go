package shape

import (
	"fmt"
	"slices"

	"github.com/chazu/meshdecimate/pkg/mesh"
)

// Kinds lists the names accepted by Named.
var Kinds = []string{"sphere", "box", "bracket", "uv-sphere", "ring-sphere", "cube", "grid"}

// Named builds a mesh by kind. size is the overall extent: the diameter for
// spheres and the edge length for boxes, cubes and grids. resolution is the
// marching cubes cell count for sdfx solids and the subdivision count for
// the analytic meshes; zero picks a default.
func Named(kind string, size float64, resolution int) (*mesh.Mesh, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shape: %s: size must be positive, got %g", kind, size)
	}
	if !slices.Contains(Kinds, kind) {
		return nil, fmt.Errorf("shape: unknown kind %q", kind)
	}

	var s Solid
	var err error
	switch kind {
	case "uv-sphere":
		n := resolutionOr(resolution, 24)
		return UVSphere(n, 2*n, size/2), nil
	case "ring-sphere":
		n := resolutionOr(resolution, 20)
		m := RingSphere(n, n)
		scale(m, size/2)
		return m, nil
	case "cube":
		return Cube(size), nil
	case "grid":
		return Grid(resolutionOr(resolution, 16), size), nil
	case "sphere":
		s, err = Sphere(size / 2)
	case "box":
		s, err = Box(size, size, size, 0)
	case "bracket":
		s, err = bracket(size)
	}
	if err != nil {
		return nil, err
	}
	m, err := s.Mesh(resolution)
	if err != nil {
		return nil, err
	}
	m.PartName = kind
	return m, nil
}

// bracket is a plate with a raised block and a hole through both.
func bracket(size float64) (Solid, error) {
	plate, err := Box(size, size, size/4, 0)
	if err != nil {
		return Solid{}, err
	}
	block, err := Box(size/2, size, size/2, 0)
	if err != nil {
		return Solid{}, err
	}
	hole, err := Cylinder(2*size, size/8, 0)
	if err != nil {
		return Solid{}, err
	}
	body := Union(plate, Translate(block, size/4, 0, size/4))
	return Difference(body, Translate(hole, size/2, size/2, 0)), nil
}

func resolutionOr(r, def int) int {
	if r > 0 {
		return r
	}
	return def
}

func scale(m *mesh.Mesh, k float64) {
	for i := range m.Vertices {
		m.Vertices[i] = float32(float64(m.Vertices[i]) * k)
	}
}
