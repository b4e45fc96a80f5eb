package buffer

import "github.com/go-gl/mathgl/mgl32"

// Blend factors written to the draw state by Draw.
const (
	OpaqueBlendFactor  float32 = 0.6
	BlendedBlendFactor float32 = 0.05
)

// DrawState is the per-draw shading block. It reaches the shader as two
// packed vec3 uniforms: (NTile, Shininess, BlendFactor) then Material.
type DrawState struct {
	// NTile is the normal map tiling multiple; 0 disables normal mapping.
	NTile float32
	// Shininess is the reflection strength, 0 to 1. Text uses -1.
	Shininess float32
	// BlendFactor is set by Draw from the bound textures.
	BlendFactor float32
	// Material, when non-zero, makes the shader shade with this colour
	// instead of sampling the texture.
	Material mgl32.Vec3
}

// DefaultDrawState is the state a new buffer starts with.
func DefaultDrawState() DrawState {
	return DrawState{Material: mgl32.Vec3{0.5, 0.5, 0.5}}
}

// Pack flattens the state into upload order.
func (s DrawState) Pack() [6]float32 {
	return [6]float32{s.NTile, s.Shininess, s.BlendFactor, s.Material[0], s.Material[1], s.Material[2]}
}
