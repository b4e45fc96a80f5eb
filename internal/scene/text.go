package scene

import (
	"unicode"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/buffer"
	"github.com/Faultbox/glshape/internal/geometry"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

const (
	// DotsPerInch converts a text size to a world scale.
	DotsPerInch = 72.0
	// DefaultTextSize is used when TextOptions.Size is zero.
	DefaultTextSize = 0.24
	// TextShininess marks text as unlit.
	TextShininess = -1.0
)

// Glyph is one character's quad in font units, relative to the pen position.
// Quad runs top-left, top-right, bottom-right, bottom-left.
type Glyph struct {
	Advance float32
	Height  float32
	Quad    [4]mgl32.Vec3
	UV      [4]mgl32.Vec2
}

// Font is a glyph atlas that is also the texture the glyphs sample.
type Font interface {
	gpu.Texture
	Glyph(r rune) (Glyph, bool)
}

// TextOptions configure NewString.
type TextOptions struct {
	Name string
	// Size scales the string by Size/DotsPerInch.
	Size float32
	// Shader, when set, becomes the string's default program.
	Shader gpu.Program
}

var textFacing = mgl32.Vec3{0, 0, 1}

// NewString lays out text as one quad per glyph, left to right, centred on the
// origin. Whitespace advances the pen without a quad and runes the font lacks
// are skipped. The font is the buffer's only texture.
func NewString(tok gpu.Token, font Font, text string, opts TextOptions) (*Node, error) {
	name := opts.Name
	if name == "" {
		name = text
	}
	size := opts.Size
	if size == 0 {
		size = DefaultTextSize
	}

	var mesh geometry.Mesh
	var pen, maxHeight float32
	for _, r := range text {
		g, ok := font.Glyph(r)
		if !ok {
			logger.Named("scene").Debug("glyph missing", zap.String("string", name), zap.String("rune", string(r)))
			continue
		}
		if unicode.IsSpace(r) {
			pen += g.Advance
			continue
		}
		base := len(mesh.Vertices)
		for k := range g.Quad {
			v := g.Quad[k]
			mesh.Vertices = append(mesh.Vertices, mgl32.Vec3{v.X() + pen, v.Y(), v.Z()})
			mesh.Normals = append(mesh.Normals, textFacing)
			mesh.TexCoords = append(mesh.TexCoords, g.UV[k])
		}
		mesh.Faces = append(mesh.Faces,
			geometry.Face{base, base + 2, base + 1},
			geometry.Face{base, base + 3, base + 2},
		)
		pen += g.Advance
		maxHeight = max(maxHeight, g.Height)
	}
	for i, v := range mesh.Vertices {
		mesh.Vertices[i] = mgl32.Vec3{v.X() - pen/2, v.Y() + maxHeight/2, v.Z()}
	}

	n := NewNode(name)
	scale := size / DotsPerInch
	n.Scale = mgl32.Vec3{scale, scale, 1}
	if len(mesh.Vertices) == 0 {
		return n, nil
	}

	b, err := buffer.New(tok, n, mesh, true)
	if err != nil {
		return nil, err
	}
	if opts.Shader != nil {
		b.SetDrawDetails(opts.Shader, []gpu.Texture{font}, 0, TextShininess)
	} else {
		b.SetTextures([]gpu.Texture{font})
		b.SetShininess(TextShininess)
	}
	n.AddBuffer(b)
	return n, nil
}
