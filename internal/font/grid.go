// Package font provides monospace glyph atlases for scene strings.
package font

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"

	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/scene"
	"github.com/Faultbox/glshape/internal/texture"
)

// ASCII covers the printable ASCII range.
const (
	FirstASCII = ' '
	LastASCII  = '~'
)

// Grid is an atlas of equal cells laid out row-major from First.
type Grid struct {
	tex          *texture.Texture
	first        rune
	count        int
	cols, rows   int
	cellW, cellH int
}

// NewGrid wraps an atlas image of cols×rows cells holding count consecutive
// runes starting at first.
func NewGrid(name string, atlas image.Image, cols, rows int, first rune, count int) (*Grid, error) {
	if cols < 1 || rows < 1 || count < 1 || count > cols*rows {
		return nil, fmt.Errorf("font %s: %d runes in %dx%d grid", name, count, cols, rows)
	}
	b := atlas.Bounds()
	if b.Dx() < cols || b.Dy() < rows {
		return nil, fmt.Errorf("font %s: atlas %v too small for %dx%d grid", name, b, cols, rows)
	}
	return &Grid{
		tex:   texture.New(name, atlas, texture.Options{Blend: true}),
		first: first,
		count: count,
		cols:  cols,
		rows:  rows,
		cellW: b.Dx() / cols,
		cellH: b.Dy() / rows,
	}, nil
}

// NewFace renders the printable ASCII range of face into a 16-column atlas.
func NewFace(name string, face xfont.Face) (*Grid, error) {
	const cols = 16
	count := int(LastASCII-FirstASCII) + 1
	rows := (count + cols - 1) / cols

	m := face.Metrics()
	cellH := m.Height.Ceil()
	adv, ok := face.GlyphAdvance('M')
	if !ok {
		return nil, fmt.Errorf("font %s: face has no 'M'", name)
	}
	cellW := adv.Ceil()

	atlas := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*cellH))
	d := &xfont.Drawer{Dst: atlas, Src: image.White, Face: face}
	for i := 0; i < count; i++ {
		col, row := i%cols, i/cols
		d.Dot = fixed.P(col*cellW, row*cellH+m.Ascent.Ceil())
		d.DrawString(string(FirstASCII + rune(i)))
	}
	return NewGrid(name, atlas, cols, rows, FirstASCII, count)
}

// NewBasic returns the 7x13 fixed font bundled with x/image.
func NewBasic() (*Grid, error) {
	return NewFace("basic7x13", basicfont.Face7x13)
}

// Glyph returns the cell quad for r in pixel units. Full-width forms fall
// back to their narrow equivalents.
func (g *Grid) Glyph(r rune) (scene.Glyph, bool) {
	if gl, ok := g.cell(r); ok {
		return gl, true
	}
	if narrow := width.LookupRune(r).Narrow(); narrow != 0 && narrow != r {
		return g.cell(narrow)
	}
	return scene.Glyph{}, false
}

func (g *Grid) cell(r rune) (scene.Glyph, bool) {
	i := int(r - g.first)
	if r < g.first || i >= g.count {
		return scene.Glyph{}, false
	}
	col, row := i%g.cols, i/g.cols
	w, h := float32(g.cellW), float32(g.cellH)
	u0, v0 := float32(col)/float32(g.cols), float32(row)/float32(g.rows)
	u1, v1 := float32(col+1)/float32(g.cols), float32(row+1)/float32(g.rows)
	return scene.Glyph{
		Advance: w,
		Height:  h,
		Quad:    [4]mgl32.Vec3{{0, 0, 0}, {w, 0, 0}, {w, -h, 0}, {0, -h, 0}},
		UV:      [4]mgl32.Vec2{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}},
	}, true
}

// CellSize returns the glyph cell size in pixels.
func (g *Grid) CellSize() (w, h int) { return g.cellW, g.cellH }

// Texture returns the atlas texture.
func (g *Grid) Texture() *texture.Texture { return g.tex }

// Load uploads the atlas.
func (g *Grid) Load(tok gpu.Token) error { return g.tex.Load(tok) }

// Discard frees the atlas texture.
func (g *Grid) Discard(ctx *gpu.Context) { g.tex.Discard(ctx) }

func (g *Grid) Handle() uint32 { return g.tex.Handle() }
func (g *Grid) Blended() bool  { return g.tex.Blended() }

var _ scene.Font = (*Grid)(nil)
