package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/buffer"
	"github.com/Faultbox/glshape/internal/geometry"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

var quadFacing = mgl32.Vec3{0, 0, -1}

// NewSprite builds a single-sided w×h quad centred on the origin, facing -Z.
func NewSprite(tok gpu.Token, name string, w, h float32) (*Node, error) {
	ww, hh := w/2, h/2
	mesh := geometry.Mesh{
		Vertices:  []mgl32.Vec3{{-ww, hh, 0}, {ww, hh, 0}, {ww, -hh, 0}, {-ww, -hh, 0}},
		Normals:   []mgl32.Vec3{quadFacing, quadFacing, quadFacing, quadFacing},
		TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Faces:     []geometry.Face{{0, 1, 3}, {1, 2, 3}},
	}
	return newSingle(tok, name, mesh)
}

// NewImageSprite builds a sprite drawn with tex and shader by default.
func NewImageSprite(tok gpu.Token, name string, tex gpu.Texture, shader gpu.Program, w, h float32) (*Node, error) {
	n, err := NewSprite(tok, name, w, h)
	if err != nil {
		return nil, err
	}
	n.buffers[0].SetDrawDetails(shader, []gpu.Texture{tex}, 0, 0)
	return n, nil
}

// NewLodSprite builds a w×h sprite split into an n×n grid of quads, so that
// per-vertex effects have more vertices to work with.
func NewLodSprite(tok gpu.Token, name string, w, h float32, n int) (*Node, error) {
	if n < 1 {
		return nil, fmt.Errorf("lod sprite %s: grid %d: %w", name, n, geometry.ErrUnsupportedInput)
	}
	ww, hh := w/2, h/2
	fn := float32(n)
	mesh := geometry.Mesh{
		Vertices:  make([]mgl32.Vec3, 0, 4*n*n),
		Normals:   make([]mgl32.Vec3, 0, 4*n*n),
		TexCoords: make([]mgl32.Vec2, 0, 4*n*n),
		Faces:     make([]geometry.Face, 0, 2*n*n),
	}
	for row := 0; row < n; row++ {
		j := float32(row)
		for col := 0; col < n; col++ {
			i := float32(col)
			// corners as fractions of the sprite, top-left clockwise
			corners := [4]mgl32.Vec2{
				{i / fn, (fn - j) / fn},
				{(i + 1) / fn, (fn - j) / fn},
				{(i + 1) / fn, (fn - 1 - j) / fn},
				{i / fn, (fn - 1 - j) / fn},
			}
			for _, c := range corners {
				mesh.Vertices = append(mesh.Vertices, mgl32.Vec3{-ww + c.X()*w, -hh + c.Y()*h, 0})
				mesh.Normals = append(mesh.Normals, quadFacing)
				mesh.TexCoords = append(mesh.TexCoords, mgl32.Vec2{c.X(), 1 - c.Y()})
			}
			q := (row*n + col) * 4
			mesh.Faces = append(mesh.Faces, geometry.Face{q, q + 1, q + 3}, geometry.Face{q + 1, q + 2, q + 3})
		}
	}
	return newSingle(tok, name, mesh)
}

// ModelPart is one material group of a model.
type ModelPart struct {
	Name     string
	Mesh     geometry.Mesh
	Material mgl32.Vec3
	Textures []gpu.Texture
}

// NewModel builds one buffer per part. Parts without normals get them
// computed, smoothed when smooth is set. If any part fails, buffers already
// created are released.
func NewModel(tok gpu.Token, name string, parts []ModelPart, smooth bool) (*Node, error) {
	n := NewNode(name)
	for _, p := range parts {
		b, err := buffer.New(tok, n, p.Mesh, smooth)
		if err != nil {
			for _, created := range n.buffers {
				_ = created.Release(tok)
			}
			return nil, fmt.Errorf("model %s part %s: %w", name, p.Name, err)
		}
		if p.Material != (mgl32.Vec3{}) {
			b.SetMaterial(p.Material)
		}
		b.SetTextures(p.Textures)
		n.AddBuffer(b)
	}
	logger.Named("scene").Debug("model built",
		zap.String("name", name),
		zap.Int("parts", len(parts)),
	)
	return n, nil
}

func newSingle(tok gpu.Token, name string, mesh geometry.Mesh) (*Node, error) {
	n := NewNode(name)
	b, err := buffer.New(tok, n, mesh, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	n.AddBuffer(b)
	return n, nil
}
