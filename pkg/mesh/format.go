package mesh

import "fmt"

// VertexFormat is the numeric type of a vertex coordinate.
type VertexFormat int

const (
	Float32 VertexFormat = iota + 1
	Float64
)

// Size returns the size in bytes of one coordinate.
func (f VertexFormat) Size() int {
	switch f {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (f VertexFormat) String() string {
	switch f {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("VertexFormat(%d)", int(f))
	}
}

// Valid reports whether f is a supported vertex format.
func (f VertexFormat) Valid() bool {
	return f == Float32 || f == Float64
}

// IndexFormat is the integer type of a triangle index.
type IndexFormat int

const (
	Uint32 IndexFormat = iota + 1
	Int32
)

// Size returns the size in bytes of one index.
func (f IndexFormat) Size() int {
	switch f {
	case Uint32, Int32:
		return 4
	default:
		return 0
	}
}

func (f IndexFormat) String() string {
	switch f {
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("IndexFormat(%d)", int(f))
	}
}

// Valid reports whether f is a supported index format.
func (f IndexFormat) Valid() bool {
	return f == Uint32 || f == Int32
}
