// Package scene composes geometry buffers into positioned, drawable nodes and
// builds the stock shapes: sprites, LOD sprites, text strings and models.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/buffer"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

// Node is a drawable shape: a transform, an optional default shader and the
// geometry buffers it owns.
type Node struct {
	Name     string
	Position mgl32.Vec3
	// Rotation holds Euler angles in degrees about X, Y and Z.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3

	shader  gpu.Program
	buffers []*buffer.Buffer
	// shared is set on clones, which do not own their buffers.
	shared bool
}

// NewNode returns an empty node at the origin with unit scale.
func NewNode(name string) *Node {
	return &Node{Name: name, Scale: mgl32.Vec3{1, 1, 1}}
}

// SetShader sets the program used when Draw is given none.
func (n *Node) SetShader(p gpu.Program) { n.shader = p }

// Shader returns the stored program.
func (n *Node) Shader() gpu.Program { return n.shader }

// AddBuffer appends a buffer drawn with the node.
func (n *Node) AddBuffer(b *buffer.Buffer) { n.buffers = append(n.buffers, b) }

// Buffers returns the node's buffers in draw order.
func (n *Node) Buffers() []*buffer.Buffer { return n.buffers }

// Transform returns the model matrix: translate, then rotate Y, X, Z, then scale.
func (n *Node) Transform() mgl32.Mat4 {
	return mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z()).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(n.Rotation.Y()))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(n.Rotation.X()))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(n.Rotation.Z()))).
		Mul4(mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z()))
}

// Draw binds the program and model matrix, then draws every buffer. A buffer
// that fails is logged and skipped; the failures are returned joined.
func (n *Node) Draw(tok gpu.Token, opts buffer.DrawOptions) error {
	if err := tok.Check("draw node"); err != nil {
		return err
	}
	if opts.Shader == nil {
		opts.Shader = n.shader
	}
	if opts.Shader == nil {
		return fmt.Errorf("node %s: no shader: %w", n.Name, buffer.ErrMissingDrawState)
	}

	dev := tok.Device()
	dev.UseProgram(opts.Shader.Handle())
	dev.UniformMatrix4fv(opts.Shader.ModelMatrixLocation(), n.Transform())

	var errs []error
	for i, b := range n.buffers {
		if err := b.Draw(tok, opts); err != nil {
			logger.Named("scene").Warn("buffer draw skipped",
				zap.String("node", n.Name),
				zap.Int("buffer", i),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("node %s buffer %d: %w", n.Name, i, err))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a node sharing this node's buffers and shader with its own
// transform. Discarding a clone leaves the buffers alone.
func (n *Node) Clone(name string) *Node {
	c := *n
	c.Name = name
	c.buffers = append([]*buffer.Buffer(nil), n.buffers...)
	c.shared = true
	return &c
}

// Discard releases the node's buffers, deferring to the next frame when called
// off the display thread.
func (n *Node) Discard(ctx *gpu.Context) {
	if !n.shared {
		for _, b := range n.buffers {
			b.Discard(ctx)
		}
	}
	n.buffers = nil
}
