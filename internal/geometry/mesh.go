// Package geometry builds the CPU-side data of a geometry buffer: it derives
// vertex normals, checks mesh invariants, and packs vertex attributes and
// triangle indices into the layout the draw path binds.
package geometry

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnsupportedInput is returned for malformed geometry, such as faces that
// reference vertices outside the mesh.
var ErrUnsupportedInput = errors.New("unsupported geometry input")

// Face is a triangle given as indices into the mesh vertices. Entries past the
// third are carried through but never read.
type Face []int

// Mesh is the CPU-side data of one material-homogeneous chunk of a shape.
// Normals may be empty, in which case they are derived from the faces.
type Mesh struct {
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Faces     []Face
}

// Validate checks that every face is a triangle over existing vertices and
// that per-vertex arrays line up. Empty normals are allowed.
func (m Mesh) Validate() error {
	if len(m.TexCoords) != len(m.Vertices) {
		return fmt.Errorf("%d texcoords for %d vertices: %w", len(m.TexCoords), len(m.Vertices), ErrUnsupportedInput)
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%d normals for %d vertices: %w", len(m.Normals), len(m.Vertices), ErrUnsupportedInput)
	}
	return validateFaces(m.Faces, len(m.Vertices))
}

func validateFaces(faces []Face, vertexCount int) error {
	for i, f := range faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d has %d indices: %w", i, len(f), ErrUnsupportedInput)
		}
		for _, idx := range f[:3] {
			if idx < 0 || idx >= vertexCount {
				return fmt.Errorf("face %d index %d out of range [0,%d): %w", i, idx, vertexCount, ErrUnsupportedInput)
			}
		}
	}
	return nil
}
