package buffer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/glshape/internal/geometry"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/gpu/gputest"
)

type fakeOwner struct {
	shader gpu.Program
}

func (o *fakeOwner) SetShader(p gpu.Program) { o.shader = p }

func triangle() geometry.Mesh {
	return geometry.Mesh{
		Vertices:  []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Faces:     []geometry.Face{{0, 1, 2}},
	}
}

func floats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(b[i*4:]))
	}
	return out
}

func newTriangle(t *testing.T) (*Buffer, *gputest.Recorder, gpu.Token) {
	t.Helper()
	_, rec, tok := gputest.NewContext(t)
	b, err := New(tok, &fakeOwner{}, triangle(), true)
	require.NoError(t, err)
	return b, rec, tok
}

func TestNewUploadsPackedGeometry(t *testing.T) {
	b, rec, _ := newTriangle(t)

	assert.Equal(t, []string{"GenBuffer", "GenBuffer", "BindBuffer", "BindBuffer", "BufferData", "BufferData"}, rec.Names())
	assert.Equal(t, 1, b.TriangleCount())
	assert.Equal(t, gpu.UnsignedShort, b.IndexType())

	vdata := floats(rec.Buffers[rec.Bound[gpu.ArrayBuffer]])
	require.Len(t, vdata, 3*geometry.FloatsPerVertex)
	// Second vertex: position, derived normal, texcoord.
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 1, 1, 0}, vdata[8:16])

	idata := rec.Buffers[rec.Bound[gpu.ElementArrayBuffer]]
	require.Len(t, idata, 6)
	assert.Equal(t, uint16(2), binary.NativeEndian.Uint16(idata[4:]))
}

func TestNewRetainsCPUArrays(t *testing.T) {
	b, _, _ := newTriangle(t)

	assert.Equal(t, triangle().Vertices, b.Vertices())
	assert.Equal(t, triangle().TexCoords, b.TexCoords())
	assert.Equal(t, triangle().Faces, b.Faces())
	require.Len(t, b.Normals(), 3)
	for _, n := range b.Normals() {
		assert.True(t, n.ApproxEqual(mgl32.Vec3{0, 0, 1}))
	}
	assert.Equal(t, DefaultMaterial, b.Material())
	assert.Equal(t, DefaultDrawState(), b.DrawState())
}

func TestNewKeepsSuppliedNormals(t *testing.T) {
	_, _, tok := gputest.NewContext(t)
	m := triangle()
	m.Normals = []mgl32.Vec3{{0, 0, -1}, {0, 0, -1}, {0, 0, -1}}

	b, err := New(tok, nil, m, true)
	require.NoError(t, err)
	assert.Equal(t, m.Normals, b.Normals())
}

func TestNewRejectsBadGeometry(t *testing.T) {
	_, rec, tok := gputest.NewContext(t)
	m := triangle()
	m.Faces = []geometry.Face{{0, 1, 3}}

	_, err := New(tok, nil, m, true)
	require.ErrorIs(t, err, geometry.ErrUnsupportedInput)
	assert.Empty(t, rec.Calls, "no GPU work for rejected input")
}

func TestNewAllocationFailure(t *testing.T) {
	for _, failAt := range []int{1, 2} {
		_, rec, tok := gputest.NewContext(t)
		rec.FailBufferAt = failAt

		_, err := New(tok, nil, triangle(), true)
		require.ErrorIs(t, err, gpu.ErrResourceAllocation)
		assert.Empty(t, rec.Buffers, "fail at %d leaked a buffer", failAt)
		assert.Zero(t, rec.Bound[gpu.ArrayBuffer])
		assert.Zero(t, rec.Bound[gpu.ElementArrayBuffer])
		assert.Zero(t, rec.Count("BufferData"))
	}
}

func TestNewOffThread(t *testing.T) {
	_, rec, tok := gputest.NewContext(t)

	var err error
	gputest.OffThread(func() {
		_, err = New(tok, nil, triangle(), true)
	})
	require.ErrorIs(t, err, gpu.ErrThreadAffinity)
	assert.Empty(t, rec.Calls)
}

func TestSetDrawDetails(t *testing.T) {
	_, _, tok := gputest.NewContext(t)
	owner := &fakeOwner{}
	b, err := New(tok, owner, triangle(), true)
	require.NoError(t, err)

	prog := gputest.NewProgram(5)
	tex := gputest.Texture{ID: 9}
	b.SetDrawDetails(prog, []gpu.Texture{tex}, 2, 0.3)

	assert.Same(t, prog, owner.shader)
	assert.Equal(t, gpu.Program(prog), b.Shader())
	assert.Equal(t, []gpu.Texture{tex}, b.Textures())
	s := b.DrawState()
	assert.Equal(t, float32(2), s.NTile)
	assert.Equal(t, float32(0.3), s.Shininess)
}

func TestDrawSequence(t *testing.T) {
	b, rec, tok := newTriangle(t)
	prog := gputest.NewProgram(5)
	b.SetDrawDetails(prog, []gpu.Texture{gputest.Texture{ID: 40}, gputest.Texture{ID: 41}}, 0, 0)
	rec.Reset()
	rec.Bound[gpu.ArrayBuffer] = 0

	require.NoError(t, b.Draw(tok, DrawOptions{}))

	want := []gputest.Call{
		{Name: "BindBuffer", Args: []any{gpu.ArrayBuffer, uint32(1)}},
		{Name: "BindBuffer", Args: []any{gpu.ElementArrayBuffer, uint32(2)}},
		{Name: "VertexAttribPointer", Args: []any{uint32(0), int32(3), int32(32), 0}},
		{Name: "VertexAttribPointer", Args: []any{uint32(1), int32(3), int32(32), 12}},
		{Name: "VertexAttribPointer", Args: []any{uint32(2), int32(2), int32(32), 24}},
		{Name: "EnableVertexAttribArray", Args: []any{uint32(1)}},
		{Name: "EnableVertexAttribArray", Args: []any{uint32(0)}},
		{Name: "EnableVertexAttribArray", Args: []any{uint32(2)}},
		{Name: "Disable", Args: []any{gpu.Blend}},
		{Name: "ActiveTexture", Args: []any{0}},
		{Name: "BindTexture2D", Args: []any{uint32(40)}},
		{Name: "Uniform1i", Args: []any{int32(20), int32(0)}},
		{Name: "TexFilter", Args: []any{gpu.LinearMipmapNearest, gpu.Linear}},
		{Name: "ActiveTexture", Args: []any{1}},
		{Name: "BindTexture2D", Args: []any{uint32(41)}},
		{Name: "Uniform1i", Args: []any{int32(21), int32(1)}},
		{Name: "TexFilter", Args: []any{gpu.LinearMipmapNearest, gpu.Linear}},
		{Name: "Uniform3fv", Args: []any{int32(10), int32(2), []float32{0, 0, 0.6, 0.5, 0.5, 0.5}}},
		{Name: "DrawElements", Args: []any{int32(3), gpu.UnsignedShort, 0}},
	}
	assert.Equal(t, want, rec.Calls)

	require.Len(t, rec.Draws, 1)
	assert.Equal(t, uint32(1), rec.Draws[0].ArrayBuffer)
	assert.Equal(t, uint32(2), rec.Draws[0].ElementBuffer)
	assert.False(t, rec.Draws[0].Blend)
	assert.Equal(t, uint32(40), rec.Units[0])
	assert.Equal(t, uint32(41), rec.Units[1])
}

func TestDrawIdempotent(t *testing.T) {
	b, rec, tok := newTriangle(t)
	b.SetDrawDetails(gputest.NewProgram(5), []gpu.Texture{gputest.Texture{ID: 40, Blend: true}}, 1, 0.5)

	rec.Reset()
	require.NoError(t, b.Draw(tok, DrawOptions{}))
	first := rec.Calls

	rec.Reset()
	require.NoError(t, b.Draw(tok, DrawOptions{}))
	assert.Equal(t, first, rec.Calls)
}

func TestDrawBlendedTexture(t *testing.T) {
	b, rec, tok := newTriangle(t)
	prog := gputest.NewProgram(5)
	b.SetDrawDetails(prog, []gpu.Texture{gputest.Texture{ID: 1}, gputest.Texture{ID: 2, Blend: true}}, 0, 0)

	require.NoError(t, b.Draw(tok, DrawOptions{}))
	assert.True(t, rec.Enabled[gpu.Blend])
	assert.Equal(t, BlendedBlendFactor, rec.Vec3s[prog.Unib][2])
	assert.Equal(t, BlendedBlendFactor, b.DrawState().BlendFactor)
	assert.True(t, rec.Draws[0].Blend)

	// The same buffer drawn with opaque textures goes back to the default.
	require.NoError(t, b.Draw(tok, DrawOptions{Textures: []gpu.Texture{gputest.Texture{ID: 3}}}))
	assert.False(t, rec.Enabled[gpu.Blend])
	assert.Equal(t, OpaqueBlendFactor, rec.Vec3s[prog.Unib][2])
	assert.False(t, rec.Draws[1].Blend)
}

func TestSetMaterialReachesUniforms(t *testing.T) {
	b, rec, tok := newTriangle(t)
	prog := gputest.NewProgram(5)
	b.SetDrawDetails(prog, []gpu.Texture{gputest.Texture{ID: 1}}, 3, 0.25)

	b.SetMaterial(mgl32.Vec3{0.9, 0.1, 0.2})
	require.NoError(t, b.Draw(tok, DrawOptions{}))

	unib := rec.Vec3s[prog.Unib]
	assert.Equal(t, []float32{0.9, 0.1, 0.2}, unib[3:6])
	assert.Equal(t, []float32{3, 0.25, OpaqueBlendFactor}, unib[0:3])
	assert.Equal(t, mgl32.Vec4{0.9, 0.1, 0.2, 1}, b.Material())
}

func TestDrawOverrides(t *testing.T) {
	b, rec, tok := newTriangle(t)
	stored := gputest.NewProgram(5)
	b.SetDrawDetails(stored, []gpu.Texture{gputest.Texture{ID: 1}}, 1, 0.1)

	other := gputest.NewProgram(6)
	other.Unib = 11
	require.NoError(t, b.Draw(tok, DrawOptions{
		Shader:   other,
		Textures: []gpu.Texture{gputest.Texture{ID: 7}},
		NTile:    4,
		Shiny:    0.9,
	}))

	assert.Equal(t, []float32{4, 0.9, OpaqueBlendFactor, 0.5, 0.5, 0.5}, rec.Vec3s[11])
	assert.NotContains(t, rec.Vec3s, stored.Unib)
	assert.Equal(t, uint32(7), rec.Units[0])

	// Zero overrides keep the last values.
	require.NoError(t, b.Draw(tok, DrawOptions{}))
	assert.Equal(t, []float32{4, 0.9}, rec.Vec3s[stored.Unib][0:2])
}

func TestDrawKeepTextures(t *testing.T) {
	b, rec, tok := newTriangle(t)
	b.SetDrawDetails(gputest.NewProgram(5), []gpu.Texture{gputest.Texture{ID: 1, Blend: true}}, 0, 0)
	rec.Reset()

	require.NoError(t, b.Draw(tok, DrawOptions{KeepTextures: true}))
	assert.Zero(t, rec.Count("ActiveTexture"))
	assert.Zero(t, rec.Count("BindTexture2D"))
	assert.Zero(t, rec.Count("TexFilter"))
	assert.True(t, rec.Enabled[gpu.Blend])
	assert.Equal(t, 1, rec.Count("DrawElements"))
}

func TestDrawMissingState(t *testing.T) {
	b, rec, tok := newTriangle(t)
	rec.Reset()

	err := b.Draw(tok, DrawOptions{})
	require.ErrorIs(t, err, ErrMissingDrawState)

	err = b.Draw(tok, DrawOptions{Shader: gputest.NewProgram(1)})
	require.ErrorIs(t, err, ErrMissingDrawState)

	err = b.Draw(tok, DrawOptions{Textures: []gpu.Texture{gputest.Texture{ID: 1}}})
	require.ErrorIs(t, err, ErrMissingDrawState)
	assert.Empty(t, rec.Calls)

	// An explicitly empty texture list is a valid material-only setup.
	b.SetDrawDetails(gputest.NewProgram(1), nil, 0, 0)
	require.NoError(t, b.Draw(tok, DrawOptions{}))
}

func TestDrawOffThread(t *testing.T) {
	b, rec, tok := newTriangle(t)
	b.SetDrawDetails(gputest.NewProgram(5), []gpu.Texture{gputest.Texture{ID: 1}}, 2, 0)
	before := b.DrawState()
	rec.Reset()

	var err error
	gputest.OffThread(func() {
		err = b.Draw(tok, DrawOptions{NTile: 8})
	})
	require.ErrorIs(t, err, gpu.ErrThreadAffinity)
	assert.Empty(t, rec.Calls)
	assert.Equal(t, before, b.DrawState())
}

func TestReleaseAndDiscard(t *testing.T) {
	ctx, rec, tok := gputest.NewContext(t)
	b, err := New(tok, nil, triangle(), true)
	require.NoError(t, err)

	require.NoError(t, b.Release(tok))
	assert.Empty(t, rec.Buffers)
	assert.True(t, b.Released())
	require.NoError(t, b.Release(tok))
	assert.Equal(t, 2, rec.Count("DeleteBuffer"))
	assert.ErrorIs(t, b.Draw(tok, DrawOptions{}), ErrReleased)
	assert.Len(t, b.Vertices(), 3, "CPU arrays survive release")

	// Discarded off the display thread: queued, then freed on the next drain.
	b2, err := New(tok, nil, triangle(), true)
	require.NoError(t, err)
	gputest.OffThread(func() { b2.Discard(ctx) })
	assert.Len(t, rec.Buffers, 2)
	assert.Equal(t, 1, ctx.Pending())

	_, err = ctx.ReleasePending(tok)
	require.NoError(t, err)
	assert.Empty(t, rec.Buffers)

	// Discarded on the display thread: freed immediately.
	b3, err := New(tok, nil, triangle(), true)
	require.NoError(t, err)
	b3.Discard(ctx)
	assert.Empty(t, rec.Buffers)
	assert.Zero(t, ctx.Pending())
}

func TestDiscardOffThreadWhileDrawing(t *testing.T) {
	ctx, rec, tok := gputest.NewContext(t)
	b, err := New(tok, nil, triangle(), true)
	require.NoError(t, err)
	b.SetDrawDetails(gputest.NewProgram(5), []gpu.Texture{gputest.Texture{ID: 1}}, 1, 0)

	done := make(chan struct{})
	go gputest.OffThread(func() {
		defer close(done)
		b.Discard(ctx)
	})

	released := false
	for i := 0; i < 1000; i++ {
		err := b.Draw(tok, DrawOptions{})
		if released {
			require.ErrorIs(t, err, ErrReleased, "draw %d after release", i)
			continue
		}
		if err != nil {
			require.ErrorIs(t, err, ErrReleased)
			released = true
		}
	}
	<-done

	assert.True(t, b.Released())
	assert.ErrorIs(t, b.Draw(tok, DrawOptions{}), ErrReleased)
	assert.Len(t, rec.Buffers, 2, "deletion waits for the display thread")

	n, err := ctx.ReleasePending(tok)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, rec.Buffers)

	// A second discard after the deferred one queues nothing.
	gputest.OffThread(func() { b.Discard(ctx) })
	assert.Zero(t, ctx.Pending())
}

func TestSelect(t *testing.T) {
	b, rec, tok := newTriangle(t)
	rec.Bound[gpu.ArrayBuffer] = 0
	rec.Bound[gpu.ElementArrayBuffer] = 0

	require.NoError(t, b.Select(tok))
	assert.Equal(t, uint32(1), rec.Bound[gpu.ArrayBuffer])
	assert.Equal(t, uint32(2), rec.Bound[gpu.ElementArrayBuffer])
}
