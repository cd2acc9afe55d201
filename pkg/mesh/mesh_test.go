package mesh

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// --- Mesh helper method tests ---

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      Mesh
		wantVerts int
		wantTris  int
		wantEmpty bool
	}{
		{"empty", Mesh{}, 0, 0, true},
		{"one vertex", Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, false},
		{"quad", Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2, 2, 3, 0},
		}, 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.wantVerts {
				t.Errorf("VertexCount() = %d, want %d", got, tt.wantVerts)
			}
			if got := tt.mesh.TriangleCount(); got != tt.wantTris {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.wantTris)
			}
			if got := tt.mesh.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{-1, 0, 2, 3, -4, 5, 0, 1, 0}}
	lo, hi := m.Bounds()
	if lo != (r3.Vec{X: -1, Y: -4, Z: 0}) {
		t.Errorf("min = %v", lo)
	}
	if hi != (r3.Vec{X: 3, Y: 1, Z: 5}) {
		t.Errorf("max = %v", hi)
	}
}

func TestMeshBuffersRoundTrip(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
	}
	vb, ib := m.Buffers(4)
	if vb.Len() != 4 || vb.Cap() != 8 {
		t.Fatalf("Len/Cap = %d/%d, want 4/8", vb.Len(), vb.Cap())
	}
	back := FromBuffers(vb, ib, nil)
	for i, v := range m.Vertices {
		if back.Vertices[i] != v {
			t.Fatalf("vertex component %d = %v, want %v", i, back.Vertices[i], v)
		}
	}
	for i, idx := range m.Indices {
		if back.Indices[i] != idx {
			t.Fatalf("index %d = %d, want %d", i, back.Indices[i], idx)
		}
	}
	if back.Normals != nil {
		t.Error("Normals set without a normal buffer")
	}

	normals := Float32Vertices([]float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1}, 0)
	withNormals := FromBuffers(vb, ib, normals)
	if len(withNormals.Normals) != 12 || withNormals.Normals[11] != 1 {
		t.Errorf("normals = %v", withNormals.Normals)
	}
}

// --- Buffer tests ---

func TestNewVertexBufferValidation(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		count  int
		format VertexFormat
		stride int
		field  string
	}{
		{"zero count", make([]byte, 12), 0, Float32, 12, "vertex count"},
		{"negative count", make([]byte, 12), -1, Float32, 12, "vertex count"},
		{"bad format", make([]byte, 12), 1, VertexFormat(9), 12, "vertex format"},
		{"zero format", make([]byte, 12), 1, 0, 12, "vertex format"},
		{"short stride float32", make([]byte, 12), 1, Float32, 8, "vertex stride"},
		{"short stride float64", make([]byte, 48), 1, Float64, 16, "vertex stride"},
		{"short data", make([]byte, 20), 2, Float32, 12, "vertex buffer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVertexBuffer(tt.data, tt.count, tt.format, tt.stride)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestNewIndexBufferValidation(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		format IndexFormat
		stride int
	}{
		{"zero count", 0, Uint32, 12},
		{"bad format", 1, IndexFormat(7), 12},
		{"short stride", 1, Int32, 11},
		{"short data", 3, Uint32, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIndexBuffer(make([]byte, 24), tt.count, tt.format, tt.stride)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestVertexBufferWideStride(t *testing.T) {
	// 64-bit coordinates followed by 16 bytes of caller attributes.
	data := make([]byte, 3*40)
	vb, err := NewVertexBuffer(data, 2, Float64, 40)
	if err != nil {
		t.Fatalf("NewVertexBuffer: %v", err)
	}
	vb.Set(0, r3.Vec{X: 1, Y: 2, Z: 3})
	vb.Set(1, r3.Vec{X: 4, Y: 5, Z: 6})
	data[1*40+24] = 0xAB

	vb.CopyRecord(0, 1)
	if got := vb.At(0); got != (r3.Vec{X: 4, Y: 5, Z: 6}) {
		t.Errorf("At(0) = %v after CopyRecord", got)
	}
	if data[24] != 0xAB {
		t.Error("CopyRecord did not carry the extra attribute bytes")
	}
	if vb.Cap() != 3 {
		t.Errorf("Cap() = %d, want 3", vb.Cap())
	}
}

func TestVertexBufferAppend(t *testing.T) {
	vb := Float32Vertices([]float32{0, 0, 0}, 1)
	i, err := vb.Append(r3.Vec{X: 1})
	if err != nil || i != 1 {
		t.Fatalf("Append = %d, %v; want 1, nil", i, err)
	}
	if _, err := vb.Append(r3.Vec{X: 2}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Append past capacity err = %v, want ErrCapacityExceeded", err)
	}
	if vb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", vb.Len())
	}
}

func TestVertexBufferRound(t *testing.T) {
	v := r3.Vec{X: 0.1, Y: 1.0 / 3, Z: -2.7}
	f32 := Float32Vertices([]float32{0, 0, 0}, 0)
	f32.Set(0, v)
	if got := f32.At(0); got != f32.Round(v) {
		t.Errorf("float32 At = %v, Round = %v", got, f32.Round(v))
	}
	f64 := Float64Vertices([]float64{0, 0, 0}, 0)
	if f64.Round(v) != v {
		t.Error("float64 Round altered the value")
	}
}

func TestIndexBufferSignedFormat(t *testing.T) {
	ib := Int32Indices([]int32{0, 1, 2, 2, 1, 3})
	if got := ib.Tri(1); got != [3]int{2, 1, 3} {
		t.Errorf("Tri(1) = %v", got)
	}
	ib.SetTri(0, [3]int{-1, 0, 1})
	if got := ib.Tri(0)[0]; got != -1 {
		t.Errorf("signed index decoded as %d, want -1", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	vb := Float32Vertices([]float32{1, 2, 3, 4, 5, 6}, 0)
	c := vb.Clone()
	vb.Set(0, r3.Vec{})
	vb.SetLen(1)
	if c.Len() != 2 || c.At(0) != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Fatal("clone shares state with the original")
	}
	vb.CopyFrom(c)
	if vb.Len() != 2 || vb.At(0) != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Error("CopyFrom did not restore contents")
	}
}

// --- Operation tests ---

func quad() (*VertexBuffer, *IndexBuffer) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
	}
	return m.Buffers(2)
}

func TestOperationBind(t *testing.T) {
	vb, ib := quad()
	op := NewOperation()
	if err := op.Bind(vb, ib); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if op.VertexCount != 4 || op.TriangleCount != 2 {
		t.Errorf("counts = %d/%d, want 4/2", op.VertexCount, op.TriangleCount)
	}
	if op.VertexCapacity() != 6 {
		t.Errorf("VertexCapacity() = %d, want 6", op.VertexCapacity())
	}
}

func TestOperationBindRejectsWithoutMutation(t *testing.T) {
	vb, ib := quad()
	op := NewOperation()
	if err := op.Bind(vb, ib); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := op.Bind(nil, ib); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Bind(nil) err = %v, want ErrConfiguration", err)
	}
	if op.Vertices() != vb || op.VertexCount != 4 {
		t.Error("failed Bind changed the operation")
	}
}

func TestOperationValidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(op *Operation)
		ok    bool
	}{
		{"defaults", func(op *Operation) {}, true},
		{"negative strength", func(op *Operation) { op.SetStrength(-1) }, false},
		{"NaN strength", func(op *Operation) { op.SetStrength(math.NaN()) }, false},
		{"infinite strength", func(op *Operation) { op.SetStrength(math.Inf(1)) }, true},
		{"negative cap", func(op *Operation) { op.SetTargetVertexCap(-1) }, false},
		{"capacity below count", func(op *Operation) { op.SetVertexCapacity(3) }, false},
		{"capacity above buffer", func(op *Operation) { op.SetVertexCapacity(7) }, false},
		{"capacity exact", func(op *Operation) { op.SetVertexCapacity(4) }, true},
		{"small normal buffer", func(op *Operation) {
			op.SetNormalOutput(Float32Vertices([]float32{0, 0, 0}, 0))
		}, false},
		{"normal buffer", func(op *Operation) {
			op.SetNormalOutput(Float32Vertices(nil, 6))
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vb, ib := quad()
			op := NewOperation()
			if err := op.Bind(vb, ib); err != nil {
				t.Fatalf("Bind: %v", err)
			}
			tt.setup(op)
			err := op.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfiguration) {
				t.Errorf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestOperationValidateUnbound(t *testing.T) {
	if err := NewOperation().Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Validate() on unbound operation = %v, want ErrConfiguration", err)
	}
}

func TestOperationAcquire(t *testing.T) {
	op := NewOperation()
	if err := op.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	first := op.RunID()
	if first == "" {
		t.Error("RunID empty after Acquire")
	}
	if err := op.Acquire(); !errors.Is(err, ErrInUse) {
		t.Errorf("second Acquire = %v, want ErrInUse", err)
	}
	op.Release()
	if err := op.Acquire(); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	if op.RunID() == first {
		t.Error("RunID reused across runs")
	}
	op.Release()
}

func TestOperationReset(t *testing.T) {
	op := NewOperation()
	vb, ib := Float32Vertices([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, 2), Uint32Indices([]uint32{0, 1, 2})
	if err := op.Bind(vb, ib); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	op.SetStrength(0.5)
	op.SetTargetVertexCap(3)
	op.Collapses = 7
	op.Deferrals = 2
	op.Reset()
	if op.Vertices() != nil || op.Indices() != nil || op.FeatureSize() != 0 || op.TargetVertexCap() != 0 || op.Collapses != 0 || op.Deferrals != 0 {
		t.Errorf("Reset left state behind: %+v", op)
	}
	if err := op.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Validate after Reset = %v, want ErrConfiguration", err)
	}
}
