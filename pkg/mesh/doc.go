// Package mesh binds caller-owned vertex and index buffers to a decimation
// operation. Buffers are raw little-endian byte slices described by an
// element format and a byte stride, so records may carry attributes beyond
// the coordinates or indices the engine reads and writes.
package mesh
