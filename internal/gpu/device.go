// Package gpu models the single rendering context every GPU-affecting call
// goes through: the narrow command set the toolkit issues, the display-thread
// capability token, and the contracts consumed from shader and texture
// collaborators.
package gpu

// BufferTarget selects the binding point of a buffer object.
type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

func (t BufferTarget) String() string {
	switch t {
	case ArrayBuffer:
		return "ARRAY_BUFFER"
	case ElementArrayBuffer:
		return "ELEMENT_ARRAY_BUFFER"
	}
	return "UNKNOWN_BUFFER"
}

// Capability is a server-side toggle such as blending.
type Capability int

const (
	Blend Capability = iota
	DepthTest
	CullFace
)

// IndexType is the element width of an index buffer.
type IndexType int

const (
	UnsignedShort IndexType = iota
	UnsignedInt
)

// Size returns the byte width of one index.
func (t IndexType) Size() int {
	if t == UnsignedInt {
		return 4
	}
	return 2
}

// TextureFilter is a texture minification or magnification filter.
type TextureFilter int

const (
	Nearest TextureFilter = iota
	Linear
	LinearMipmapNearest
	LinearMipmapLinear
)

// Device is the set of GL commands the toolkit issues. Implementations are not
// safe for concurrent use; every call must happen on the display thread, which
// Context and Token enforce.
type Device interface {
	// GenBuffer returns a new buffer object name, or 0 if allocation failed.
	GenBuffer() uint32
	DeleteBuffer(id uint32)
	BindBuffer(target BufferTarget, id uint32)
	// BufferData uploads data with static-draw usage to the buffer bound at target.
	BufferData(target BufferTarget, data []byte)

	// VertexAttribPointer describes a float attribute read from the bound array
	// buffer: size components, stride and offset in bytes.
	VertexAttribPointer(index uint32, size, stride int32, offset int)
	EnableVertexAttribArray(index uint32)

	Enable(c Capability)
	Disable(c Capability)

	// GenTexture returns a new texture name, or 0 if allocation failed.
	GenTexture() uint32
	DeleteTexture(id uint32)
	ActiveTexture(unit int)
	BindTexture2D(id uint32)
	// TexImage2D uploads tightly packed RGBA pixels to the bound texture and
	// optionally generates its mipmap chain.
	TexImage2D(width, height int, pix []byte, mipmaps bool)
	TexFilter(min, mag TextureFilter)

	UseProgram(id uint32)
	Uniform1i(loc int32, v int32)
	Uniform3fv(loc int32, count int32, v []float32)
	UniformMatrix4fv(loc int32, m [16]float32)

	// DrawElements issues an indexed triangle draw of count indices starting
	// at byte offset within the bound element buffer.
	DrawElements(count int32, typ IndexType, offset int)
}

// AttribLocations are the shader input locations of the interleaved vertex fields.
type AttribLocations struct {
	Vertex   uint32
	Normal   uint32
	TexCoord uint32
}

// Program is what the toolkit needs from a linked shader program.
type Program interface {
	Handle() uint32
	Attribs() AttribLocations
	// UnibLocation is the location of the two packed vec3 draw-state uniforms.
	UnibLocation() int32
	// SamplerLocation is the location of the sampler bound to texture unit.
	SamplerLocation(unit int) int32
	ModelMatrixLocation() int32
}

// Texture is a bindable GPU texture. Textures are borrowed by buffers; their
// lifetime is managed by whoever created them.
type Texture interface {
	Handle() uint32
	// Blended reports whether drawing with this texture needs alpha blending.
	Blended() bool
}
