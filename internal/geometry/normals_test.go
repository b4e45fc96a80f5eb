package geometry

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

// cube returns a unit cube with 8 shared corners and 12 outward-wound triangles.
func cube() ([]mgl32.Vec3, []Face) {
	v := []mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	f := []Face{
		{0, 2, 1}, {0, 3, 2}, // back
		{4, 5, 6}, {4, 6, 7}, // front
		{0, 1, 5}, {0, 5, 4}, // bottom
		{3, 6, 2}, {3, 7, 6}, // top
		{0, 4, 7}, {0, 7, 3}, // left
		{1, 2, 6}, {1, 6, 5}, // right
	}
	return v, f
}

func TestComputeNormalsUnitLength(t *testing.T) {
	vertices, faces := cube()

	for _, smooth := range []bool{true, false} {
		normals, err := ComputeNormals(vertices, faces, smooth)
		require.NoError(t, err)
		require.Len(t, normals, len(vertices))

		for i, n := range normals {
			assert.InDelta(t, 1.0, n.Len(), tolerance, "smooth=%v vertex %d normal %v", smooth, i, n)
		}
	}
}

func TestComputeNormalsSingleTriangle(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{{0, 1, 2}}

	for _, smooth := range []bool{true, false} {
		normals, err := ComputeNormals(vertices, faces, smooth)
		require.NoError(t, err)

		want := mgl32.Vec3{0, 0, 1}
		for i, n := range normals {
			assert.True(t, n.ApproxEqualThreshold(want, tolerance), "vertex %d: got %v want %v", i, n, want)
		}
	}
}

func TestComputeNormalsUntouchedVertex(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}}
	faces := []Face{{0, 1, 2}}

	normals, err := ComputeNormals(vertices, faces, true)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, 0, 0.01}, normals[3])
	assert.Equal(t, StubNormal, normals[3])
}

func TestComputeNormalsSmoothAveragesSharedVertex(t *testing.T) {
	// Two triangles hinged along the x axis: one in the xy plane, one in the xz plane.
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, -1}}
	faces := []Face{
		{0, 1, 2}, // normal +z
		{0, 1, 3}, // normal +y
	}

	smooth, err := ComputeNormals(vertices, faces, true)
	require.NoError(t, err)
	want := mgl32.Vec3{0, 1, 1}.Normalize()
	assert.True(t, smooth[0].ApproxEqualThreshold(want, tolerance), "shared vertex got %v want %v", smooth[0], want)
	assert.True(t, smooth[2].ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, tolerance))
	assert.True(t, smooth[3].ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, tolerance))

	flat, err := ComputeNormals(vertices, faces, false)
	require.NoError(t, err)
	assert.True(t, flat[0].ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, tolerance), "first face wins, got %v", flat[0])
	assert.True(t, flat[1].ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, tolerance))
}

func TestComputeNormalsTrailingFaceData(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{{0, 1, 2, 99}}

	normals, err := ComputeNormals(vertices, faces, true)
	require.NoError(t, err)
	assert.True(t, normals[0].ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, tolerance))
}

func TestComputeNormalsDegenerate(t *testing.T) {
	// Collinear points give a zero cross product.
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	faces := []Face{{0, 1, 2}}

	normals, err := ComputeNormals(vertices, faces, true)
	require.NoError(t, err)
	for _, n := range normals {
		assert.Equal(t, StubNormal, n)
	}
}

func TestComputeNormalsOpposedFacesCancel(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{{0, 1, 2}, {0, 2, 1}}

	normals, err := ComputeNormals(vertices, faces, true)
	require.NoError(t, err)
	assert.Equal(t, StubNormal, normals[0])
}

func TestComputeNormalsRejectsBadFaces(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	tests := []struct {
		name  string
		faces []Face
	}{
		{"out of range", []Face{{0, 1, 3}}},
		{"negative", []Face{{-1, 1, 2}}},
		{"too short", []Face{{0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeNormals(vertices, tt.faces, true)
			assert.ErrorIs(t, err, ErrUnsupportedInput)
		})
	}
}

func TestMeshValidate(t *testing.T) {
	base := Mesh{
		Vertices:  []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Faces:     []Face{{0, 1, 2}},
	}
	require.NoError(t, base.Validate())

	short := base
	short.TexCoords = base.TexCoords[:2]
	assert.ErrorIs(t, short.Validate(), ErrUnsupportedInput)

	badNormals := base
	badNormals.Normals = []mgl32.Vec3{{0, 0, 1}}
	assert.ErrorIs(t, badNormals.Validate(), ErrUnsupportedInput)

	badFace := base
	badFace.Faces = []Face{{0, 1, 7}}
	assert.ErrorIs(t, badFace.Validate(), ErrUnsupportedInput)
}
