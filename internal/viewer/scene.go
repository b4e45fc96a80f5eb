// Package viewer runs the demo application: it opens a window, builds a scene
// of stock shapes and draws it every frame.
package viewer

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/buffer"
	"github.com/Faultbox/glshape/internal/config"
	"github.com/Faultbox/glshape/internal/font"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/loader/obj"
	"github.com/Faultbox/glshape/internal/logger"
	"github.com/Faultbox/glshape/internal/scene"
	"github.com/Faultbox/glshape/internal/texture"
)

const (
	sceneDepth = -8
	// textSize gives the 13 pixel basic font roughly one world unit of height.
	textSize = 6
	spinRate = 30 // degrees per second
)

// palette colours model groups whose material library gave no diffuse colour.
var palette = []mgl32.Vec3{
	{0.8, 0.3, 0.3},
	{0.3, 0.7, 0.4},
	{0.3, 0.4, 0.8},
	{0.8, 0.7, 0.3},
}

// Programs are the shaders the scene draws with.
type Programs struct {
	Textured gpu.Program
	Material gpu.Program
}

// Scene is the demo content.
type Scene struct {
	Nodes []*scene.Node

	checker *texture.Texture
	font    *font.Grid
	spin    []*scene.Node
	warned  map[string]bool
}

// BuildScene creates the demo shapes. tok must be valid on the calling thread.
func BuildScene(tok gpu.Token, cfg *config.Config, progs Programs) (*Scene, error) {
	s := &Scene{warned: map[string]bool{}}
	sc := cfg.Scene

	s.checker = texture.New("checker",
		texture.Checker(256, 8, color.RGBA{230, 230, 230, 255}, color.RGBA{40, 90, 160, 160}),
		texture.Options{Blend: sc.BlendSprite, PowerOfTwo: true})
	if err := s.checker.Load(tok); err != nil {
		return nil, err
	}

	sprite, err := scene.NewImageSprite(tok, "sprite", s.checker, progs.Textured, sc.SpriteSize, sc.SpriteSize)
	if err != nil {
		return nil, s.fail(tok, err)
	}
	sprite.Position = mgl32.Vec3{-2.5, 0, sceneDepth}
	s.add(sprite, true)

	mirror := sprite.Clone("sprite-mirror")
	mirror.Position = mgl32.Vec3{-2.5, -2.5, sceneDepth}
	mirror.Scale = mgl32.Vec3{0.5, 0.5, 1}
	s.add(mirror, false)

	lod, err := scene.NewLodSprite(tok, "lod", sc.SpriteSize, sc.SpriteSize, sc.LodGrid)
	if err != nil {
		return nil, s.fail(tok, err)
	}
	lod.Buffers()[0].SetDrawDetails(progs.Textured, []gpu.Texture{s.checker}, 2, 0)
	lod.Position = mgl32.Vec3{2.5, 0, sceneDepth}
	s.add(lod, true)

	if sc.ModelPath != "" {
		model, err := buildModel(tok, sc.ModelPath, progs.Material, cfg.Render.SmoothNormals)
		if err != nil {
			return nil, s.fail(tok, err)
		}
		model.Position = mgl32.Vec3{0, -1, sceneDepth}
		s.add(model, true)
	}

	if sc.Text != "" {
		fnt, err := font.NewBasic()
		if err != nil {
			return nil, s.fail(tok, err)
		}
		s.font = fnt
		if err := s.font.Load(tok); err != nil {
			return nil, s.fail(tok, err)
		}
		text, err := scene.NewString(tok, s.font, sc.Text, scene.TextOptions{
			Size:   textSize,
			Shader: progs.Textured,
		})
		if err != nil {
			return nil, s.fail(tok, err)
		}
		text.Position = mgl32.Vec3{0, 2.5, sceneDepth}
		// drawn last so its blended edges see the rest of the scene
		s.add(text, false)
	}

	logger.Named("viewer").Info("scene built", zap.Int("nodes", len(s.Nodes)))
	return s, nil
}

func (s *Scene) add(n *scene.Node, spin bool) {
	s.Nodes = append(s.Nodes, n)
	if spin {
		s.spin = append(s.spin, n)
	}
}

func (s *Scene) fail(tok gpu.Token, err error) error {
	s.Discard(tok.Context())
	return err
}

func buildModel(tok gpu.Token, path string, prog gpu.Program, smooth bool) (*scene.Node, error) {
	file, err := obj.Load(path)
	if err != nil {
		return nil, err
	}
	if len(file.Groups) == 0 {
		return nil, fmt.Errorf("%s: no faces", path)
	}

	parts := make([]scene.ModelPart, 0, len(file.Groups))
	for i, g := range file.Groups {
		part := scene.ModelPart{Name: g.Material, Mesh: g.Mesh, Material: palette[i%len(palette)]}
		if m, ok := file.Materials[g.Material]; ok && m.Diffuse != (mgl32.Vec3{}) {
			part.Material = m.Diffuse
		}
		parts = append(parts, part)
	}

	n, err := scene.NewModel(tok, "model", parts, smooth)
	if err != nil {
		return nil, err
	}
	for i, b := range n.Buffers() {
		if m, ok := file.Materials[file.Groups[i].Material]; ok {
			b.SetShininess(m.ShininessFactor())
		}
	}
	n.SetShader(prog)
	return n, nil
}

// Update advances the animation by dt seconds.
func (s *Scene) Update(dt float64) {
	step := float32(dt * spinRate)
	for _, n := range s.spin {
		n.Rotation[1] += step
		if n.Rotation[1] >= 360 {
			n.Rotation[1] -= 360
		}
	}
}

// Draw draws every node. A failing node is logged once and the frame goes on.
func (s *Scene) Draw(tok gpu.Token, opts buffer.DrawOptions) error {
	var errs []error
	for _, n := range s.Nodes {
		if err := n.Draw(tok, opts); err != nil {
			if errors.Is(err, gpu.ErrThreadAffinity) {
				return err
			}
			if !s.warned[n.Name] {
				logger.Named("viewer").Warn("node draw failed", zap.String("node", n.Name), zap.Error(err))
				s.warned[n.Name] = true
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard releases every GPU resource the scene created.
func (s *Scene) Discard(ctx *gpu.Context) {
	for _, n := range s.Nodes {
		n.Discard(ctx)
	}
	s.Nodes, s.spin = nil, nil
	if s.font != nil {
		s.font.Discard(ctx)
	}
	if s.checker != nil {
		s.checker.Discard(ctx)
	}
}
