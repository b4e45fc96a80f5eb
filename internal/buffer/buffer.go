// Package buffer owns the GPU side of one material-homogeneous mesh chunk: a
// static vertex buffer, a static index buffer, the per-draw shading state and
// the textures it is drawn with.
package buffer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/geometry"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

var (
	// ErrMissingDrawState is returned by Draw when no shader or no texture list
	// is available from either the call or a prior SetDrawDetails.
	ErrMissingDrawState = errors.New("missing draw state")

	// ErrReleased is returned when a buffer is used after its GPU objects were freed.
	ErrReleased = errors.New("buffer released")
)

// DefaultMaterial is the material colour of a new buffer.
var DefaultMaterial = mgl32.Vec4{0.5, 0.5, 0.5, 1.0}

// Owner is the shape a buffer belongs to. SetDrawDetails hands the shader up
// so later draws of the shape without an explicit shader fall back to it.
type Owner interface {
	SetShader(p gpu.Program)
}

// DrawOptions override stored draw details for one Draw call.
type DrawOptions struct {
	// Shader and Textures replace the stored ones when set.
	Shader   gpu.Program
	Textures []gpu.Texture
	// NTile and Shiny overwrite the stored values when non-zero; the new
	// values persist for later draws.
	NTile float32
	Shiny float32
	// KeepTextures skips rebinding texture units, reusing whatever the
	// previous draw left bound. Blend flags are still honoured.
	KeepTextures bool
}

// Buffer is a geometry buffer. Geometry is immutable after upload; only the
// draw state changes.
type Buffer struct {
	owner Owner

	vbuf      uint32
	ebuf      uint32
	indexType gpu.IndexType
	ntris     int

	// released may be set by Discard from any goroutine.
	released atomic.Bool

	shader      gpu.Program
	textures    []gpu.Texture
	texturesSet bool
	state       DrawState
	material    mgl32.Vec4

	// CPU copies kept for non-GPU use such as elevation queries.
	mesh geometry.Mesh
}

// New validates the mesh, derives normals if none are given, and uploads the
// packed vertex and index data as static buffers. smooth selects averaged
// rather than first-face normals.
func New(tok gpu.Token, owner Owner, mesh geometry.Mesh, smooth bool) (*Buffer, error) {
	if err := tok.Check("create buffer"); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}

	log := logger.Named("buffer")

	if len(mesh.Normals) == 0 {
		log.Debug("calculating normals", zap.Int("vertices", len(mesh.Vertices)), zap.Bool("smooth", smooth))
		normals, err := geometry.ComputeNormals(mesh.Vertices, mesh.Faces, smooth)
		if err != nil {
			return nil, fmt.Errorf("create buffer: %w", err)
		}
		mesh.Normals = normals
	}

	vertexData, err := geometry.Pack(mesh.Vertices, mesh.Normals, mesh.TexCoords)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	indexData, err := geometry.PackIndices(mesh.Faces, len(mesh.Vertices))
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}

	dev := tok.Device()
	vbuf := dev.GenBuffer()
	if vbuf == 0 {
		return nil, fmt.Errorf("create vertex buffer: %w", gpu.ErrResourceAllocation)
	}
	ebuf := dev.GenBuffer()
	if ebuf == 0 {
		dev.DeleteBuffer(vbuf)
		return nil, fmt.Errorf("create index buffer: %w", gpu.ErrResourceAllocation)
	}

	b := &Buffer{
		owner:     owner,
		vbuf:      vbuf,
		ebuf:      ebuf,
		indexType: indexType(indexData.Width),
		ntris:     len(mesh.Faces),
		state:     DefaultDrawState(),
		material:  DefaultMaterial,
		mesh:      mesh,
	}

	b.bind(dev)
	dev.BufferData(gpu.ArrayBuffer, vertexData.Bytes())
	dev.BufferData(gpu.ElementArrayBuffer, indexData.Bytes())

	log.Debug("geometry uploaded",
		zap.Uint32("vbuf", vbuf),
		zap.Uint32("ebuf", ebuf),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", b.ntris),
		zap.Int("index_bytes", int(indexData.Width)),
	)
	return b, nil
}

func indexType(w geometry.IndexWidth) gpu.IndexType {
	if w == geometry.Index32 {
		return gpu.UnsignedInt
	}
	return gpu.UnsignedShort
}

// Select makes this buffer's vertex and index buffers the current ones.
func (b *Buffer) Select(tok gpu.Token) error {
	if err := tok.Check("select buffer"); err != nil {
		return err
	}
	if b.released.Load() {
		return fmt.Errorf("select: %w", ErrReleased)
	}
	b.bind(tok.Device())
	return nil
}

func (b *Buffer) bind(dev gpu.Device) {
	dev.BindBuffer(gpu.ArrayBuffer, b.vbuf)
	dev.BindBuffer(gpu.ElementArrayBuffer, b.ebuf)
}

// SetDrawDetails stores the shader and textures used when Draw is called
// without them, and sets the tiling and shininess. The shader is also handed
// to the owner.
func (b *Buffer) SetDrawDetails(shader gpu.Program, textures []gpu.Texture, ntiles, shiny float32) {
	b.shader = shader
	if b.owner != nil {
		b.owner.SetShader(shader)
	}
	b.SetTextures(textures)
	b.state.NTile = ntiles
	b.state.Shininess = shiny
}

// SetTextures replaces the stored texture list. The textures are borrowed.
func (b *Buffer) SetTextures(textures []gpu.Texture) {
	b.textures = append([]gpu.Texture(nil), textures...)
	b.texturesSet = true
}

// SetShininess sets the stored shininess.
func (b *Buffer) SetShininess(shiny float32) {
	b.state.Shininess = shiny
}

// SetMaterial sets the material colour carried to the shader. Material
// programs shade with it in place of a texture.
func (b *Buffer) SetMaterial(rgb mgl32.Vec3) {
	b.state.Material = rgb
	b.material = rgb.Vec4(b.material[3])
}

// Draw binds the buffers, attribute layout, textures and draw state, then
// issues one indexed triangle draw. Nothing is sent to the GPU if the call is
// off the display thread or the draw state cannot be resolved.
func (b *Buffer) Draw(tok gpu.Token, opts DrawOptions) error {
	if err := tok.Check("draw"); err != nil {
		return err
	}
	if b.released.Load() {
		return fmt.Errorf("draw: %w", ErrReleased)
	}

	shader := opts.Shader
	if shader == nil {
		shader = b.shader
	}
	if shader == nil {
		return fmt.Errorf("draw: no shader: %w", ErrMissingDrawState)
	}
	textures := opts.Textures
	if len(textures) == 0 {
		if !b.texturesSet {
			return fmt.Errorf("draw: no textures: %w", ErrMissingDrawState)
		}
		textures = b.textures
	}

	if opts.NTile != 0 {
		b.state.NTile = opts.NTile
	}
	if opts.Shiny != 0 {
		b.state.Shininess = opts.Shiny
	}

	dev := tok.Device()
	b.bind(dev)

	loc := shader.Attribs()
	dev.VertexAttribPointer(loc.Vertex, 3, geometry.Stride, geometry.PositionOffset)
	dev.VertexAttribPointer(loc.Normal, 3, geometry.Stride, geometry.NormalOffset)
	dev.VertexAttribPointer(loc.TexCoord, 2, geometry.Stride, geometry.TexCoordOffset)
	dev.EnableVertexAttribArray(loc.Normal)
	dev.EnableVertexAttribArray(loc.Vertex)
	dev.EnableVertexAttribArray(loc.TexCoord)

	dev.Disable(gpu.Blend)
	b.state.BlendFactor = OpaqueBlendFactor

	for unit, tex := range textures {
		if !opts.KeepTextures {
			dev.ActiveTexture(unit)
			dev.BindTexture2D(tex.Handle())
			dev.Uniform1i(shader.SamplerLocation(unit), int32(unit))
			dev.TexFilter(gpu.LinearMipmapNearest, gpu.Linear)
		}
		// Any blended texture turns blending on for the whole draw.
		if tex.Blended() {
			dev.Enable(gpu.Blend)
			b.state.BlendFactor = BlendedBlendFactor
		}
	}

	unib := b.state.Pack()
	dev.Uniform3fv(shader.UnibLocation(), 2, unib[:])
	dev.DrawElements(int32(b.ntris*3), b.indexType, 0)
	return nil
}

// Release deletes the GPU buffer objects. The CPU-side mesh stays readable.
func (b *Buffer) Release(tok gpu.Token) error {
	if err := tok.Check("release buffer"); err != nil {
		return err
	}
	if !b.released.CompareAndSwap(false, true) {
		return nil
	}
	deleteBuffers(tok.Device(), b.vbuf, b.ebuf)
	return nil
}

// Discard releases the buffer now when called on the display thread, and
// otherwise queues the release on ctx for the display thread to run.
func (b *Buffer) Discard(ctx *gpu.Context) {
	if ctx.OnDisplayThread() {
		if tok, err := ctx.Acquire(); err == nil {
			_ = b.Release(tok)
			return
		}
	}
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	vbuf, ebuf := b.vbuf, b.ebuf
	ctx.ScheduleRelease(func(dev gpu.Device) { deleteBuffers(dev, vbuf, ebuf) })
}

func deleteBuffers(dev gpu.Device, vbuf, ebuf uint32) {
	dev.DeleteBuffer(vbuf)
	dev.DeleteBuffer(ebuf)
}

// Vertices returns the retained vertex positions. Callers must not modify them.
func (b *Buffer) Vertices() []mgl32.Vec3 { return b.mesh.Vertices }

// Normals returns the supplied or derived normals.
func (b *Buffer) Normals() []mgl32.Vec3 { return b.mesh.Normals }

// TexCoords returns the retained texture coordinates.
func (b *Buffer) TexCoords() []mgl32.Vec2 { return b.mesh.TexCoords }

// Faces returns the retained faces, including any trailing per-face data.
func (b *Buffer) Faces() []geometry.Face { return b.mesh.Faces }

// TriangleCount returns the number of faces uploaded.
func (b *Buffer) TriangleCount() int { return b.ntris }

// IndexType returns the element type the index buffer was packed with.
func (b *Buffer) IndexType() gpu.IndexType { return b.indexType }

// DrawState returns a copy of the current shading block.
func (b *Buffer) DrawState() DrawState { return b.state }

// Material returns the material colour.
func (b *Buffer) Material() mgl32.Vec4 { return b.material }

// Shader returns the stored shader, or nil.
func (b *Buffer) Shader() gpu.Program { return b.shader }

// Textures returns the stored textures.
func (b *Buffer) Textures() []gpu.Texture { return b.textures }

// Released reports whether the GPU objects have been freed or queued for freeing.
func (b *Buffer) Released() bool { return b.released.Load() }
