package mesh

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// VertexBuffer is a fixed-capacity sequence of vertex records backed by a
// caller-owned byte slice. Each record starts with three coordinates of the
// buffer's format; the remaining stride bytes are opaque to the engine.
//
// The buffer never reallocates: Len may grow up to Cap through Append, and
// Append fails with ErrCapacityExceeded once the slice is full.
type VertexBuffer struct {
	data   []byte
	format VertexFormat
	stride int
	count  int
}

// NewVertexBuffer describes count vertex records stored in data. The
// capacity is len(data)/stride.
func NewVertexBuffer(data []byte, count int, format VertexFormat, stride int) (*VertexBuffer, error) {
	b := &VertexBuffer{data: data, format: format, stride: stride, count: count}
	if err := b.validate("vertex"); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *VertexBuffer) validate(what string) error {
	if b == nil {
		return configErrorf(what+" buffer", "not bound")
	}
	if !b.format.Valid() {
		return configErrorf(what+" format", "unsupported format %v", b.format)
	}
	if b.stride < 3*b.format.Size() {
		return configErrorf(what+" stride", "stride %d smaller than element size %d", b.stride, 3*b.format.Size())
	}
	if b.count <= 0 {
		return configErrorf(what+" count", "count must be positive, got %d", b.count)
	}
	if len(b.data) < b.count*b.stride {
		return configErrorf(what+" buffer", "%d bytes cannot hold %d records of stride %d", len(b.data), b.count, b.stride)
	}
	return nil
}

// Float32Vertices packs xyz triples into a float32 buffer with room for
// spare additional vertices.
func Float32Vertices(xyz []float32, spare int) *VertexBuffer {
	n := len(xyz) / 3
	b := &VertexBuffer{
		data:   make([]byte, (n+max(spare, 0))*12),
		format: Float32,
		stride: 12,
		count:  n,
	}
	for i := 0; i < n; i++ {
		b.Set(i, r3.Vec{X: float64(xyz[3*i]), Y: float64(xyz[3*i+1]), Z: float64(xyz[3*i+2])})
	}
	return b
}

// Float64Vertices packs xyz triples into a float64 buffer with room for
// spare additional vertices.
func Float64Vertices(xyz []float64, spare int) *VertexBuffer {
	n := len(xyz) / 3
	b := &VertexBuffer{
		data:   make([]byte, (n+max(spare, 0))*24),
		format: Float64,
		stride: 24,
		count:  n,
	}
	for i := 0; i < n; i++ {
		b.Set(i, r3.Vec{X: xyz[3*i], Y: xyz[3*i+1], Z: xyz[3*i+2]})
	}
	return b
}

// Len returns the number of live vertex records.
func (b *VertexBuffer) Len() int { return b.count }

// Cap returns the number of records the backing slice can hold.
func (b *VertexBuffer) Cap() int { return len(b.data) / b.stride }

// Format returns the coordinate format.
func (b *VertexBuffer) Format() VertexFormat { return b.format }

// Stride returns the record size in bytes.
func (b *VertexBuffer) Stride() int { return b.stride }

// Bytes returns the backing slice.
func (b *VertexBuffer) Bytes() []byte { return b.data }

// At returns the coordinates of record i.
func (b *VertexBuffer) At(i int) r3.Vec {
	off := i * b.stride
	if b.format == Float64 {
		return r3.Vec{
			X: math.Float64frombits(binary.LittleEndian.Uint64(b.data[off:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(b.data[off+8:])),
			Z: math.Float64frombits(binary.LittleEndian.Uint64(b.data[off+16:])),
		}
	}
	return r3.Vec{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(b.data[off:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b.data[off+4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b.data[off+8:]))),
	}
}

// Set overwrites the coordinates of record i. The slot may lie beyond Len
// but must lie below Cap.
func (b *VertexBuffer) Set(i int, v r3.Vec) {
	off := i * b.stride
	if b.format == Float64 {
		binary.LittleEndian.PutUint64(b.data[off:], math.Float64bits(v.X))
		binary.LittleEndian.PutUint64(b.data[off+8:], math.Float64bits(v.Y))
		binary.LittleEndian.PutUint64(b.data[off+16:], math.Float64bits(v.Z))
		return
	}
	binary.LittleEndian.PutUint32(b.data[off:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b.data[off+4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b.data[off+8:], math.Float32bits(float32(v.Z)))
}

// Append stores v in the next free slot and returns its index.
func (b *VertexBuffer) Append(v r3.Vec) (int, error) {
	if b.count >= b.Cap() {
		return 0, ErrCapacityExceeded
	}
	b.Set(b.count, v)
	b.count++
	return b.count - 1, nil
}

// Round returns v as it would read back after being stored in b.
func (b *VertexBuffer) Round(v r3.Vec) r3.Vec {
	if b.format == Float64 {
		return v
	}
	return r3.Vec{X: float64(float32(v.X)), Y: float64(float32(v.Y)), Z: float64(float32(v.Z))}
}

// CopyRecord copies the whole record at src, extra attributes included,
// over the record at dst.
func (b *VertexBuffer) CopyRecord(dst, src int) {
	if dst == src {
		return
	}
	copy(b.data[dst*b.stride:(dst+1)*b.stride], b.data[src*b.stride:(src+1)*b.stride])
}

// SetLen changes the live record count. n must not exceed Cap.
func (b *VertexBuffer) SetLen(n int) {
	if n < 0 || n > b.Cap() {
		panic("mesh: VertexBuffer.SetLen out of range")
	}
	b.count = n
}

// Clone returns a deep copy of the buffer.
func (b *VertexBuffer) Clone() *VertexBuffer {
	c := *b
	c.data = append([]byte(nil), b.data...)
	return &c
}

// CopyFrom restores contents and length from src, which must have the same
// layout and capacity. The backing slice is reused, never replaced.
func (b *VertexBuffer) CopyFrom(src *VertexBuffer) {
	copy(b.data, src.data)
	b.count = src.count
}

// Positions decodes the live coordinates.
func (b *VertexBuffer) Positions() []r3.Vec {
	out := make([]r3.Vec, b.count)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// IndexBuffer is a sequence of triangle records backed by a caller-owned
// byte slice. Each record starts with three indices of the buffer's format.
type IndexBuffer struct {
	data   []byte
	format IndexFormat
	stride int
	count  int
}

// NewIndexBuffer describes count triangle records stored in data.
func NewIndexBuffer(data []byte, count int, format IndexFormat, stride int) (*IndexBuffer, error) {
	b := &IndexBuffer{data: data, format: format, stride: stride, count: count}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *IndexBuffer) validate() error {
	if b == nil {
		return configErrorf("index buffer", "not bound")
	}
	if !b.format.Valid() {
		return configErrorf("index format", "unsupported format %v", b.format)
	}
	if b.stride < 3*b.format.Size() {
		return configErrorf("index stride", "stride %d smaller than element size %d", b.stride, 3*b.format.Size())
	}
	if b.count <= 0 {
		return configErrorf("triangle count", "count must be positive, got %d", b.count)
	}
	if len(b.data) < b.count*b.stride {
		return configErrorf("index buffer", "%d bytes cannot hold %d records of stride %d", len(b.data), b.count, b.stride)
	}
	return nil
}

// Uint32Indices packs index triples into a uint32 buffer.
func Uint32Indices(idx []uint32) *IndexBuffer {
	n := len(idx) / 3
	b := &IndexBuffer{data: make([]byte, n*12), format: Uint32, stride: 12, count: n}
	for i := 0; i < n; i++ {
		b.SetTri(i, [3]int{int(idx[3*i]), int(idx[3*i+1]), int(idx[3*i+2])})
	}
	return b
}

// Int32Indices packs index triples into an int32 buffer.
func Int32Indices(idx []int32) *IndexBuffer {
	n := len(idx) / 3
	b := &IndexBuffer{data: make([]byte, n*12), format: Int32, stride: 12, count: n}
	for i := 0; i < n; i++ {
		b.SetTri(i, [3]int{int(idx[3*i]), int(idx[3*i+1]), int(idx[3*i+2])})
	}
	return b
}

// Len returns the number of triangles.
func (b *IndexBuffer) Len() int { return b.count }

// Format returns the index format.
func (b *IndexBuffer) Format() IndexFormat { return b.format }

// Stride returns the record size in bytes.
func (b *IndexBuffer) Stride() int { return b.stride }

// Bytes returns the backing slice.
func (b *IndexBuffer) Bytes() []byte { return b.data }

// Tri returns the three indices of triangle i.
func (b *IndexBuffer) Tri(i int) [3]int {
	off := i * b.stride
	var t [3]int
	for k := range t {
		u := binary.LittleEndian.Uint32(b.data[off+4*k:])
		if b.format == Int32 {
			t[k] = int(int32(u))
		} else {
			t[k] = int(u)
		}
	}
	return t
}

// SetTri overwrites the indices of triangle i.
func (b *IndexBuffer) SetTri(i int, t [3]int) {
	off := i * b.stride
	for k, v := range t {
		binary.LittleEndian.PutUint32(b.data[off+4*k:], uint32(v))
	}
}

// CopyRecord copies the whole record at src over the record at dst.
func (b *IndexBuffer) CopyRecord(dst, src int) {
	if dst == src {
		return
	}
	copy(b.data[dst*b.stride:(dst+1)*b.stride], b.data[src*b.stride:(src+1)*b.stride])
}

// SetLen shrinks the triangle count. n must not exceed the current length.
func (b *IndexBuffer) SetLen(n int) {
	if n < 0 || n > b.count {
		panic("mesh: IndexBuffer.SetLen out of range")
	}
	b.count = n
}

// Clone returns a deep copy of the buffer.
func (b *IndexBuffer) Clone() *IndexBuffer {
	c := *b
	c.data = append([]byte(nil), b.data...)
	return &c
}

// CopyFrom restores contents and length from src, which must share the
// layout of b.
func (b *IndexBuffer) CopyFrom(src *IndexBuffer) {
	copy(b.data, src.data)
	b.count = src.count
}

// Triangles decodes all index triples.
func (b *IndexBuffer) Triangles() [][3]int {
	out := make([][3]int, b.count)
	for i := range out {
		out[i] = b.Tri(i)
	}
	return out
}
