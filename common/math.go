package common

import "unsafe"

// QuadVertexCount is the number of vertices drawn for the full-surface quad (triangle strip).
const QuadVertexCount = 4

// QuadPositions holds the clip-space positions of the full-surface quad, four float32 components
// (x, y, z, w) per vertex, in triangle-strip order.
var QuadPositions = [16]float32{
	-1, -1, 0, 1,
	1, -1, 0, 1,
	-1, 1, 0, 1,
	1, 1, 0, 1,
}

// QuadTexCoords holds the texture coordinates matching QuadPositions, two float32 components
// (u, v) per vertex. V is flipped so row 0 of the frame is drawn at the top of the surface.
var QuadTexCoords = [8]float32{
	0, 1,
	1, 1,
	0, 0,
	1, 0,
}

// SliceToBytes reinterprets a slice of any fixed-size type as a raw byte slice using unsafe.
// The returned slice shares memory with data.
//
// Parameters:
//   - data: the slice to reinterpret
//
// Returns:
//   - []byte: byte slice view of the slice's memory, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
