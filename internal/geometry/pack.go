package geometry

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Interleaved vertex layout. The draw path configures its attribute pointers
// from these values; field order or count changes must update both sides.
const (
	FloatsPerVertex = 8
	Stride          = FloatsPerVertex * 4
	PositionOffset  = 0
	NormalOffset    = 3 * 4
	TexCoordOffset  = 6 * 4
)

// MaxShortIndexVertices is the largest vertex count addressable with 16-bit indices.
const MaxShortIndexVertices = math.MaxUint16 + 1

// Interleaved holds position, normal and texture coordinate per vertex,
// FloatsPerVertex floats each.
type Interleaved []float32

// VertexCount returns the number of packed vertices.
func (b Interleaved) VertexCount() int {
	return len(b) / FloatsPerVertex
}

// Bytes returns a native-endian view of the buffer for upload. The view
// aliases b.
func (b Interleaved) Bytes() []byte {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b[0])), len(b)*4)
}

// Pack interleaves the per-vertex arrays, which must have equal length.
func Pack(vertices, normals []mgl32.Vec3, texcoords []mgl32.Vec2) (Interleaved, error) {
	if len(normals) != len(vertices) || len(texcoords) != len(vertices) {
		return nil, fmt.Errorf("pack %d vertices with %d normals and %d texcoords: %w",
			len(vertices), len(normals), len(texcoords), ErrUnsupportedInput)
	}

	out := make(Interleaved, 0, len(vertices)*FloatsPerVertex)
	for i, p := range vertices {
		n, t := normals[i], texcoords[i]
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], t[0], t[1])
	}
	return out, nil
}

// Unpack splits an interleaved buffer back into its per-vertex arrays.
func Unpack(b Interleaved) (vertices, normals []mgl32.Vec3, texcoords []mgl32.Vec2, err error) {
	if len(b)%FloatsPerVertex != 0 {
		return nil, nil, nil, fmt.Errorf("unpack %d floats, not a multiple of %d: %w", len(b), FloatsPerVertex, ErrUnsupportedInput)
	}

	n := b.VertexCount()
	vertices = make([]mgl32.Vec3, n)
	normals = make([]mgl32.Vec3, n)
	texcoords = make([]mgl32.Vec2, n)
	for i := 0; i < n; i++ {
		v := b[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
		vertices[i] = mgl32.Vec3{v[0], v[1], v[2]}
		normals[i] = mgl32.Vec3{v[3], v[4], v[5]}
		texcoords[i] = mgl32.Vec2{v[6], v[7]}
	}
	return vertices, normals, texcoords, nil
}

// IndexWidth is the element size of a packed index buffer.
type IndexWidth int

const (
	Index16 IndexWidth = 2
	Index32 IndexWidth = 4
)

// Indices is a flattened triangle index buffer. Exactly one of Short and Long
// is populated, matching Width.
type Indices struct {
	Width IndexWidth
	Short []uint16
	Long  []uint32
}

// Len returns the number of indices.
func (ix Indices) Len() int {
	if ix.Width == Index32 {
		return len(ix.Long)
	}
	return len(ix.Short)
}

// At returns index i widened to int.
func (ix Indices) At(i int) int {
	if ix.Width == Index32 {
		return int(ix.Long[i])
	}
	return int(ix.Short[i])
}

// Bytes returns a native-endian view of the indices for upload.
func (ix Indices) Bytes() []byte {
	switch {
	case ix.Width == Index32 && len(ix.Long) > 0:
		return unsafe.Slice((*byte)(unsafe.Pointer(&ix.Long[0])), len(ix.Long)*4)
	case ix.Width == Index16 && len(ix.Short) > 0:
		return unsafe.Slice((*byte)(unsafe.Pointer(&ix.Short[0])), len(ix.Short)*2)
	}
	return nil
}

// PackIndices flattens the first three indices of every face. 16-bit indices
// are used when vertexCount allows it, 32-bit otherwise.
func PackIndices(faces []Face, vertexCount int) (Indices, error) {
	if err := validateFaces(faces, vertexCount); err != nil {
		return Indices{}, err
	}

	if vertexCount <= MaxShortIndexVertices {
		out := make([]uint16, 0, len(faces)*3)
		for _, f := range faces {
			out = append(out, uint16(f[0]), uint16(f[1]), uint16(f[2]))
		}
		return Indices{Width: Index16, Short: out}, nil
	}

	out := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		out = append(out, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return Indices{Width: Index32, Long: out}, nil
}
