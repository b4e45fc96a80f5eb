// Package gputest provides a recording gpu.Device for tests. It keeps enough
// simulated driver state (bindings, buffer contents, blend toggle, uniforms)
// to assert on what a draw would have done without a GL context.
package gputest

import (
	"fmt"

	"github.com/Faultbox/glshape/internal/gpu"
)

// Call is one recorded device command.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// DrawCall snapshots the state an indexed draw was issued with.
type DrawCall struct {
	Count         int32
	Type          gpu.IndexType
	Offset        int
	ArrayBuffer   uint32
	ElementBuffer uint32
	Program       uint32
	Blend         bool
}

// TextureImage is the last image uploaded to a texture.
type TextureImage struct {
	Width, Height int
	Pix           []byte
	Mipmaps       bool
	Min, Mag      gpu.TextureFilter
}

// Recorder implements gpu.Device.
type Recorder struct {
	Calls []Call
	Draws []DrawCall

	// FailBufferAt makes the n-th GenBuffer call (1-based) return 0.
	FailBufferAt int
	// FailTextures makes every GenTexture call return 0.
	FailTextures bool

	Buffers    map[uint32][]byte
	Bound      map[gpu.BufferTarget]uint32
	Enabled    map[gpu.Capability]bool
	Attribs    map[uint32]bool
	Textures   map[uint32]*TextureImage
	Units      map[int]uint32
	ActiveUnit int
	Program    uint32
	Ints       map[int32]int32
	Vec3s      map[int32][]float32
	Matrices   map[int32][16]float32

	next       uint32
	genBuffers int
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		Buffers:  make(map[uint32][]byte),
		Bound:    make(map[gpu.BufferTarget]uint32),
		Enabled:  make(map[gpu.Capability]bool),
		Attribs:  make(map[uint32]bool),
		Textures: make(map[uint32]*TextureImage),
		Units:    make(map[int]uint32),
		Ints:     make(map[int32]int32),
		Vec3s:    make(map[int32][]float32),
		Matrices: make(map[int32][16]float32),
	}
}

// Reset forgets recorded calls and draws but keeps simulated state.
func (r *Recorder) Reset() {
	r.Calls = nil
	r.Draws = nil
}

// Names returns the recorded command names in order.
func (r *Recorder) Names() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times the named command was recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func (r *Recorder) record(name string, args ...any) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) GenBuffer() uint32 {
	r.genBuffers++
	if r.FailBufferAt > 0 && r.genBuffers == r.FailBufferAt {
		r.record("GenBuffer", uint32(0))
		return 0
	}
	r.next++
	r.Buffers[r.next] = nil
	r.record("GenBuffer", r.next)
	return r.next
}

func (r *Recorder) DeleteBuffer(id uint32) {
	r.record("DeleteBuffer", id)
	delete(r.Buffers, id)
	for target, bound := range r.Bound {
		if bound == id {
			r.Bound[target] = 0
		}
	}
}

func (r *Recorder) BindBuffer(target gpu.BufferTarget, id uint32) {
	r.record("BindBuffer", target, id)
	r.Bound[target] = id
}

func (r *Recorder) BufferData(target gpu.BufferTarget, data []byte) {
	r.record("BufferData", target, len(data))
	id := r.Bound[target]
	r.Buffers[id] = append([]byte(nil), data...)
}

func (r *Recorder) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	r.record("VertexAttribPointer", index, size, stride, offset)
}

func (r *Recorder) EnableVertexAttribArray(index uint32) {
	r.record("EnableVertexAttribArray", index)
	r.Attribs[index] = true
}

func (r *Recorder) Enable(c gpu.Capability) {
	r.record("Enable", c)
	r.Enabled[c] = true
}

func (r *Recorder) Disable(c gpu.Capability) {
	r.record("Disable", c)
	r.Enabled[c] = false
}

func (r *Recorder) GenTexture() uint32 {
	if r.FailTextures {
		r.record("GenTexture", uint32(0))
		return 0
	}
	r.next++
	r.Textures[r.next] = &TextureImage{}
	r.record("GenTexture", r.next)
	return r.next
}

func (r *Recorder) DeleteTexture(id uint32) {
	r.record("DeleteTexture", id)
	delete(r.Textures, id)
}

func (r *Recorder) ActiveTexture(unit int) {
	r.record("ActiveTexture", unit)
	r.ActiveUnit = unit
}

func (r *Recorder) BindTexture2D(id uint32) {
	r.record("BindTexture2D", id)
	r.Units[r.ActiveUnit] = id
}

func (r *Recorder) TexImage2D(width, height int, pix []byte, mipmaps bool) {
	r.record("TexImage2D", width, height, mipmaps)
	if img, ok := r.Textures[r.Units[r.ActiveUnit]]; ok {
		img.Width, img.Height = width, height
		img.Pix = append([]byte(nil), pix...)
		img.Mipmaps = mipmaps
	}
}

func (r *Recorder) TexFilter(min, mag gpu.TextureFilter) {
	r.record("TexFilter", min, mag)
	if img, ok := r.Textures[r.Units[r.ActiveUnit]]; ok {
		img.Min, img.Mag = min, mag
	}
}

func (r *Recorder) UseProgram(id uint32) {
	r.record("UseProgram", id)
	r.Program = id
}

func (r *Recorder) Uniform1i(loc int32, v int32) {
	r.record("Uniform1i", loc, v)
	r.Ints[loc] = v
}

func (r *Recorder) Uniform3fv(loc int32, count int32, v []float32) {
	vals := append([]float32(nil), v[:3*count]...)
	r.record("Uniform3fv", loc, count, vals)
	r.Vec3s[loc] = vals
}

func (r *Recorder) UniformMatrix4fv(loc int32, m [16]float32) {
	r.record("UniformMatrix4fv", loc, m)
	r.Matrices[loc] = m
}

func (r *Recorder) DrawElements(count int32, typ gpu.IndexType, offset int) {
	r.record("DrawElements", count, typ, offset)
	r.Draws = append(r.Draws, DrawCall{
		Count:         count,
		Type:          typ,
		Offset:        offset,
		ArrayBuffer:   r.Bound[gpu.ArrayBuffer],
		ElementBuffer: r.Bound[gpu.ElementArrayBuffer],
		Program:       r.Program,
		Blend:         r.Enabled[gpu.Blend],
	})
}

var _ gpu.Device = (*Recorder)(nil)
