package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/buffer"
	"github.com/Faultbox/glshape/internal/config"
	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
	"github.com/Faultbox/glshape/internal/renderer"
	"github.com/Faultbox/glshape/internal/shader"
	"github.com/Faultbox/glshape/internal/shader/shaders"
	"github.com/Faultbox/glshape/internal/window"
)

// App is the viewer instance.
type App struct {
	cfg      *config.Config
	window   *window.Window
	renderer *renderer.Renderer
	textured *shader.Program
	material *shader.Program
	scene    *Scene
	paused   bool
	log      *zap.Logger
}

// New opens the window and builds the scene. Must be called on the main thread.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, log: logger.Named("viewer")}

	var err error
	a.window, err = window.New(cfg.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w, h := a.window.Size()
	a.renderer, err = renderer.New(cfg.Render, w, h)
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if err := a.setup(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup() error {
	tok, err := a.renderer.Acquire()
	if err != nil {
		return err
	}

	a.textured, err = shader.Load(tok, "uv_light", shaders.LightVertexShader, shaders.UVLightFragmentShader)
	if err != nil {
		return err
	}
	a.material, err = shader.Load(tok, "mat_light", shaders.LightVertexShader, shaders.MatLightFragmentShader)
	if err != nil {
		return err
	}
	if err := a.updateProjection(tok); err != nil {
		return err
	}

	a.scene, err = BuildScene(tok, a.cfg, Programs{Textured: a.textured, Material: a.material})
	return err
}

func (a *App) updateProjection(tok gpu.Token) error {
	proj := mgl32.Perspective(mgl32.DegToRad(a.cfg.Render.FieldOfView), a.renderer.Aspect(), 0.1, 100)
	return errors.Join(
		a.textured.SetProjection(tok, proj),
		a.material.SetProjection(tok, proj),
	)
}

// Run drives the frame loop until the window is closed or Escape is pressed.
// Space pauses the animation.
func (a *App) Run() error {
	var frameBudget time.Duration
	if a.cfg.Display.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(a.cfg.Display.FPSLimit)
	}
	opts := buffer.DrawOptions{NTile: a.cfg.Render.NTiles, Shiny: a.cfg.Render.Shininess}

	lastTime := time.Now()
	fpsTimer := lastTime
	frameCount := 0

	a.log.Info("starting frame loop")
	for {
		frameStart := time.Now()
		dt := frameStart.Sub(lastTime).Seconds()
		lastTime = frameStart

		ev := a.window.Poll()
		if ev.Quit {
			return nil
		}
		if ev.KeyPressed(sdl.SCANCODE_SPACE) {
			a.paused = !a.paused
		}

		tok, err := a.renderer.Begin()
		if err != nil {
			return err
		}
		if ev.Resized {
			a.renderer.Resize(ev.Width, ev.Height)
			if err := a.updateProjection(tok); err != nil {
				return err
			}
		}
		if !a.paused {
			a.scene.Update(dt)
		}
		if err := a.scene.Draw(tok, opts); errors.Is(err, gpu.ErrThreadAffinity) {
			return err
		}
		a.renderer.End()
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Float64("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
		if frameBudget > 0 {
			if rest := frameBudget - time.Since(frameStart); rest > 0 {
				time.Sleep(rest)
			}
		}
	}
}

// Close releases the scene, shaders, renderer and window.
func (a *App) Close() {
	a.log.Info("closing viewer")
	if a.renderer != nil {
		if a.scene != nil {
			a.scene.Discard(a.renderer.Context())
		}
		if tok, err := a.renderer.Acquire(); err == nil {
			for _, p := range []*shader.Program{a.textured, a.material} {
				if p != nil {
					_ = p.Delete(tok)
				}
			}
		}
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
