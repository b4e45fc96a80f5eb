package obj

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/glshape/internal/geometry"
)

func TestParseQuadFan(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0.5 1.5 0
f 1 2 3 4 5
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, f.Groups, 1)
	g := f.Groups[0]
	assert.Equal(t, DefaultMaterial, g.Material)
	assert.Equal(t, []geometry.Face{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}}, g.Mesh.Faces)
	assert.Len(t, g.Mesh.Vertices, 5)
	assert.Nil(t, g.Mesh.Normals, "no vn, normals left to the normalizer")
	assert.Equal(t, make([]mgl32.Vec2, 5), g.Mesh.TexCoords)
	assert.NoError(t, g.Mesh.Validate())
}

func TestParseNegativeIndices(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
v 5 5 5
f -4 -3 -1
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	mesh := f.Groups[0].Mesh
	assert.Equal(t, []geometry.Face{{0, 1, 2}, {0, 1, 3}}, mesh.Faces)
	assert.Equal(t, mgl32.Vec3{5, 5, 5}, mesh.Vertices[3])
}

func TestParseCornerForms(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0.25 0.25
vn 0 0 1
f 1/1/1 2//1 3/1/1
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	mesh := f.Groups[0].Mesh
	require.Len(t, mesh.Vertices, 3)
	assert.Equal(t, mgl32.Vec2{0.25, 0.75}, mesh.TexCoords[0], "v flipped to image rows")
	assert.Equal(t, mgl32.Vec2{}, mesh.TexCoords[1])
	assert.Equal(t, []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, mesh.Normals)
}

func TestParseSharesCorners(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3
f 1 3 4
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, f.Groups[0].Mesh.Vertices, 4)
}

func TestParseGroupsByMaterial(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
usemtl red
f 1//1 2//1 3//1
usemtl blue
f 1 2 3
usemtl red
f 3//1 2//1 1//1
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, f.Groups, 2)

	red, ok := f.Group("red")
	require.True(t, ok)
	assert.Len(t, red.Mesh.Faces, 2)
	assert.Len(t, red.Mesh.Normals, 3)

	blue, ok := f.Group("blue")
	require.True(t, ok)
	assert.Nil(t, blue.Mesh.Normals)

	_, ok = f.Group("green")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"short vertex":   "v 1 2",
		"bad float":      "v 1 x 3",
		"two-gon":        "v 0 0 0\nv 1 0 0\nf 1 2",
		"out of range":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4",
		"zero index":     "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2",
		"bad texcoord":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1 2/1 3/1",
		"missing vertex": "v 0 0 0\nf /1 /1 /1",
		"usemtl":         "usemtl",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseIgnoresComments(t *testing.T) {
	src := "v 0 0 0 # origin\nv 1 0 0\nv 0 1 0\ng side\ns off\nf 1 2 3 # tri\n"
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, f.Groups[0].Mesh.Faces, 1)
}

func TestLoadWithMaterials(t *testing.T) {
	f, err := Load("testdata/crate.obj")
	require.NoError(t, err)

	assert.Equal(t, []string{"crate.mtl", "missing.mtl"}, f.MaterialLibs)
	require.Len(t, f.Groups, 2)
	assert.Equal(t, "wood", f.Groups[0].Material)
	assert.Equal(t, "metal", f.Groups[1].Material)

	wood := f.Groups[0].Mesh
	assert.Equal(t, []geometry.Face{{0, 1, 2}, {0, 2, 3}}, wood.Faces)
	assert.Len(t, wood.Normals, 4)

	require.Contains(t, f.Materials, "wood")
	assert.Equal(t, mgl32.Vec3{0.6, 0.4, 0.2}, f.Materials["wood"].Diffuse)
	assert.Equal(t, "wood.png", f.Materials["wood"].DiffuseMap)
	assert.InDelta(t, 0.25, f.Materials["wood"].ShininessFactor(), 1e-6)
	assert.Equal(t, float32(0.5), f.Materials["metal"].Alpha)
	assert.Equal(t, float32(1), f.Materials["wood"].Alpha)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.obj")
	assert.Error(t, err)
}

func TestParseMaterialsErrors(t *testing.T) {
	_, err := ParseMaterials(strings.NewReader("newmtl"))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = ParseMaterials(strings.NewReader("newmtl a\nKd 1 1"))
	assert.ErrorIs(t, err, ErrMalformed)

	mats, err := ParseMaterials(strings.NewReader("Kd 1 1 1\nnewmtl a\n"))
	require.NoError(t, err)
	assert.Len(t, mats, 1, "statements before newmtl are ignored")
}
