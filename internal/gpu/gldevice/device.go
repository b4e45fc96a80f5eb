// Package gldevice implements gpu.Device on go-gl.
package gldevice

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/glshape/internal/gpu"
)

// Device issues commands to the current GL context. gl.Init must have run on
// the display thread before New is called.
type Device struct {
	// Core profiles reject attribute pointers without a bound vertex array,
	// so one shared VAO stays bound for the lifetime of the device.
	vao uint32
}

// New creates the device and binds its vertex array object.
func New() (*Device, error) {
	d := &Device{}
	gl.GenVertexArrays(1, &d.vao)
	if d.vao == 0 {
		return nil, fmt.Errorf("creating vertex array object: error 0x%x", gl.GetError())
	}
	gl.BindVertexArray(d.vao)
	return d, nil
}

// Close deletes the shared vertex array object.
func (d *Device) Close() {
	if d.vao != 0 {
		gl.BindVertexArray(0)
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}

func (d *Device) GenBuffer() uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	return id
}

func (d *Device) DeleteBuffer(id uint32) {
	gl.DeleteBuffers(1, &id)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, id uint32) {
	gl.BindBuffer(bufferTarget(target), id)
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	gl.BufferData(bufferTarget(target), len(data), ptr, gl.STATIC_DRAW)
}

func (d *Device) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, stride, uintptr(offset))
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	gl.EnableVertexAttribArray(index)
}

func (d *Device) Enable(c gpu.Capability) {
	gl.Enable(capability(c))
	if c == gpu.Blend {
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
}

func (d *Device) Disable(c gpu.Capability) {
	gl.Disable(capability(c))
}

func (d *Device) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (d *Device) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture2D(id uint32) {
	gl.BindTexture(gl.TEXTURE_2D, id)
}

func (d *Device) TexImage2D(width, height int, pix []byte, mipmaps bool) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	if mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
}

func (d *Device) TexFilter(min, mag gpu.TextureFilter) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(mag))
}

func (d *Device) UseProgram(id uint32) {
	gl.UseProgram(id)
}

func (d *Device) Uniform1i(loc int32, v int32) {
	gl.Uniform1i(loc, v)
}

func (d *Device) Uniform3fv(loc int32, count int32, v []float32) {
	gl.Uniform3fv(loc, count, &v[0])
}

func (d *Device) UniformMatrix4fv(loc int32, m [16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *Device) DrawElements(count int32, typ gpu.IndexType, offset int) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, count, indexType(typ), uintptr(offset))
}

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func capability(c gpu.Capability) uint32 {
	switch c {
	case gpu.DepthTest:
		return gl.DEPTH_TEST
	case gpu.CullFace:
		return gl.CULL_FACE
	default:
		return gl.BLEND
	}
}

func indexType(t gpu.IndexType) uint32 {
	if t == gpu.UnsignedInt {
		return gl.UNSIGNED_INT
	}
	return gl.UNSIGNED_SHORT
}

func filter(f gpu.TextureFilter) int32 {
	switch f {
	case gpu.Nearest:
		return gl.NEAREST
	case gpu.LinearMipmapNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	case gpu.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

var _ gpu.Device = (*Device)(nil)
