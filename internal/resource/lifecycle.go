// Package resource tracks the two-stage loading of assets: a disk stage that
// may run anywhere, and a GPU stage that must run on the display thread.
package resource

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

// Hooks are the asset-specific load and unload steps.
type Hooks interface {
	LoadDisk() error
	LoadGPU(dev gpu.Device) error
	UnloadGPU(dev gpu.Device)
}

// Lifecycle runs Hooks at most once per stage.
type Lifecycle struct {
	name  string
	hooks Hooks

	mu         sync.Mutex
	diskLoaded bool
	gpuLoaded  bool
}

// New returns a lifecycle with nothing loaded.
func New(name string, hooks Hooks) *Lifecycle {
	return &Lifecycle{name: name, hooks: hooks}
}

// Name identifies the asset in log entries.
func (l *Lifecycle) Name() string { return l.name }

// DiskLoaded reports whether the disk stage has completed.
func (l *Lifecycle) DiskLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.diskLoaded
}

// GPULoaded reports whether GPU resources are currently held.
func (l *Lifecycle) GPULoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gpuLoaded
}

// LoadDisk runs the disk stage once. A failed stage is retried on the next call.
func (l *Lifecycle) LoadDisk() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadDiskLocked()
}

func (l *Lifecycle) loadDiskLocked() error {
	if l.diskLoaded {
		return nil
	}
	if err := l.hooks.LoadDisk(); err != nil {
		return fmt.Errorf("%s: load disk: %w", l.name, err)
	}
	l.diskLoaded = true
	return nil
}

// LoadGPU completes the disk stage if needed, then uploads to the GPU. Off the
// display thread the upload is skipped and the violation logged.
func (l *Lifecycle) LoadGPU(tok gpu.Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadDiskLocked(); err != nil {
		return err
	}
	if l.gpuLoaded {
		return nil
	}
	if err := tok.Check("load gpu " + l.name); err != nil {
		return err
	}
	if err := l.hooks.LoadGPU(tok.Device()); err != nil {
		return fmt.Errorf("%s: load gpu: %w", l.name, err)
	}
	l.gpuLoaded = true
	logger.Named("resource").Debug("gpu resources loaded", zap.String("name", l.name))
	return nil
}

// UnloadGPU frees GPU resources on the display thread. It is a no-op when
// nothing is loaded.
func (l *Lifecycle) UnloadGPU(tok gpu.Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.gpuLoaded {
		return nil
	}
	if err := tok.Check("unload gpu " + l.name); err != nil {
		return err
	}
	l.unloadLocked(tok.Device())
	return nil
}

func (l *Lifecycle) unloadLocked(dev gpu.Device) {
	l.hooks.UnloadGPU(dev)
	l.gpuLoaded = false
	logger.Named("resource").Debug("gpu resources released", zap.String("name", l.name))
}

// Discard releases GPU resources immediately when called on the display
// thread, and otherwise queues the release on ctx.
func (l *Lifecycle) Discard(ctx *gpu.Context) {
	if !l.GPULoaded() {
		return
	}
	if ctx.OnDisplayThread() {
		if tok, err := ctx.Acquire(); err == nil {
			_ = l.UnloadGPU(tok)
			return
		}
	}
	ctx.ScheduleRelease(func(dev gpu.Device) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gpuLoaded {
			l.unloadLocked(dev)
		}
	})
}
