// Package renderer owns the GL state of the display thread: it initialises
// go-gl, holds the rendering context GPU resources are tied to, and brackets
// frames.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/config"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/gpu/gldevice"
	"github.com/Faultbox/glshape/internal/logger"
)

// Renderer handles frame setup on the display thread.
type Renderer struct {
	cfg    config.RenderConfig
	width  int
	height int

	device *gldevice.Device
	ctx    *gpu.Context
	log    *zap.Logger
}

// New initialises OpenGL and binds the rendering context to the calling
// thread. The GL context must already be current.
func New(cfg config.RenderConfig, width, height int) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r := &Renderer{cfg: cfg, log: logger.Named("renderer")}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	dev, err := gldevice.New()
	if err != nil {
		return nil, err
	}
	r.device = dev
	r.ctx = gpu.NewContext(dev)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	r.Resize(width, height)
	return r, nil
}

// Context returns the rendering context.
func (r *Renderer) Context() *gpu.Context { return r.ctx }

// Acquire returns a token for GPU work outside a frame, such as building
// shapes during startup.
func (r *Renderer) Acquire() (gpu.Token, error) { return r.ctx.Acquire() }

// Aspect returns width/height of the viewport.
func (r *Renderer) Aspect() float32 {
	if r.height == 0 {
		return 1
	}
	return float32(r.width) / float32(r.height)
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	r.width, r.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Begin starts a frame: releases resources discarded since the last frame and
// clears the target. The returned token is valid for the frame's draws.
func (r *Renderer) Begin() (gpu.Token, error) {
	tok, err := r.ctx.Acquire()
	if err != nil {
		return gpu.Token{}, err
	}
	if _, err := r.ctx.ReleasePending(tok); err != nil {
		return gpu.Token{}, err
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return tok, nil
}

// End finishes the frame, logging any GL error raised during it.
func (r *Renderer) End() {
	if code := gl.GetError(); code != gl.NO_ERROR {
		r.log.Warn("gl error during frame", zap.Uint32("code", code))
	}
}

// Close runs outstanding releases and frees the device.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	if tok, err := r.ctx.Acquire(); err == nil {
		if n, _ := r.ctx.ReleasePending(tok); n > 0 {
			r.log.Debug("released on close", zap.Int("count", n))
		}
	}
	r.device.Close()
}
