package gputest

import "github.com/Faultbox/glshape/internal/gpu"

// Program is a fixed-location gpu.Program.
type Program struct {
	ID       uint32
	Locs     gpu.AttribLocations
	Unib     int32
	Samplers []int32
	Model    int32
}

// NewProgram returns a program with distinct, recognisable locations.
func NewProgram(id uint32) *Program {
	return &Program{
		ID:       id,
		Locs:     gpu.AttribLocations{Vertex: 0, Normal: 1, TexCoord: 2},
		Unib:     10,
		Samplers: []int32{20, 21, 22},
		Model:    30,
	}
}

func (p *Program) Handle() uint32               { return p.ID }
func (p *Program) Attribs() gpu.AttribLocations { return p.Locs }
func (p *Program) UnibLocation() int32          { return p.Unib }
func (p *Program) ModelMatrixLocation() int32   { return p.Model }

func (p *Program) SamplerLocation(unit int) int32 {
	if unit < 0 || unit >= len(p.Samplers) {
		return -1
	}
	return p.Samplers[unit]
}

// Texture is a plain gpu.Texture.
type Texture struct {
	ID    uint32
	Blend bool
}

func (t Texture) Handle() uint32 { return t.ID }
func (t Texture) Blended() bool  { return t.Blend }

var (
	_ gpu.Program = (*Program)(nil)
	_ gpu.Texture = Texture{}
)
