// Package texture uploads in-memory images as GL textures.
package texture

import (
	"fmt"
	"image"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
	"github.com/Faultbox/glshape/internal/resource"
)

// Options control how an image is prepared and sampled.
type Options struct {
	// Blend marks the texture as alpha blended when drawn.
	Blend bool
	// PowerOfTwo rescales the image to the next power of two in each dimension.
	PowerOfTwo bool
}

// DefaultOptions returns power-of-two, opaque settings.
func DefaultOptions() Options {
	return Options{PowerOfTwo: true}
}

// Texture is a 2D texture backed by an image. Uploads always carry a mipmap
// chain since buffers sample with a mipmapped minification filter.
type Texture struct {
	life *resource.Lifecycle

	src  image.Image
	opts Options
	rgba *image.RGBA
	// id is read by Handle from any goroutine while the display thread
	// uploads and releases.
	id atomic.Uint32
}

// New wraps img. Nothing is converted or uploaded until Load.
func New(name string, img image.Image, opts Options) *Texture {
	t := &Texture{src: img, opts: opts}
	t.life = resource.New(name, stages{t})
	return t
}

// Name returns the texture's name.
func (t *Texture) Name() string { return t.life.Name() }

// Load prepares the pixels and uploads them on the display thread.
func (t *Texture) Load(tok gpu.Token) error {
	return t.life.LoadGPU(tok)
}

// Unload deletes the GPU texture, keeping the prepared pixels for a reload.
func (t *Texture) Unload(tok gpu.Token) error {
	return t.life.UnloadGPU(tok)
}

// Discard deletes the GPU texture now, or at the next frame when called off
// the display thread.
func (t *Texture) Discard(ctx *gpu.Context) {
	t.life.Discard(ctx)
}

// DiskLoaded reports whether the pixels have been prepared.
func (t *Texture) DiskLoaded() bool { return t.life.DiskLoaded() }

// GPULoaded reports whether the texture is resident.
func (t *Texture) GPULoaded() bool { return t.life.GPULoaded() }

// Handle returns the GL texture name, 0 before Load.
func (t *Texture) Handle() uint32 { return t.id.Load() }

// Blended reports whether draws using this texture enable blending.
func (t *Texture) Blended() bool { return t.opts.Blend }

// SetBlend changes the blend flag for subsequent draws.
func (t *Texture) SetBlend(blend bool) { t.opts.Blend = blend }

// Size returns the prepared pixel size, zero before the disk stage.
func (t *Texture) Size() (width, height int) {
	if t.rgba == nil {
		return 0, 0
	}
	b := t.rgba.Bounds()
	return b.Dx(), b.Dy()
}

// RGBA returns the prepared pixels, nil before the disk stage.
func (t *Texture) RGBA() *image.RGBA { return t.rgba }

// stages adapts a Texture to resource.Hooks.
type stages struct{ t *Texture }

func (s stages) LoadDisk() error             { return s.t.prepare() }
func (s stages) LoadGPU(dev gpu.Device) error { return s.t.upload(dev) }
func (s stages) UnloadGPU(dev gpu.Device)     { s.t.release(dev) }

// prepare converts the source image into upload-ready RGBA.
func (t *Texture) prepare() error {
	if t.src == nil {
		return fmt.Errorf("no source image")
	}
	b := t.src.Bounds()
	if b.Empty() {
		return fmt.Errorf("empty image %v", b)
	}
	w, h := b.Dx(), b.Dy()
	if t.opts.PowerOfTwo {
		w, h = NextPowerOfTwo(w), NextPowerOfTwo(h)
	}
	t.rgba = Resize(t.src, w, h)
	return nil
}

// upload copies the prepared pixels into a new texture object.
func (t *Texture) upload(dev gpu.Device) error {
	id := dev.GenTexture()
	if id == 0 {
		return fmt.Errorf("texture %s: %w", t.Name(), gpu.ErrResourceAllocation)
	}
	w, h := t.Size()
	dev.ActiveTexture(0)
	dev.BindTexture2D(id)
	dev.TexImage2D(w, h, t.rgba.Pix, true)
	dev.TexFilter(gpu.LinearMipmapNearest, gpu.Linear)
	t.id.Store(id)

	logger.Named("texture").Debug("texture uploaded",
		zap.String("name", t.Name()),
		zap.Uint32("id", id),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Bool("blend", t.opts.Blend),
	)
	return nil
}

func (t *Texture) release(dev gpu.Device) {
	dev.DeleteTexture(t.id.Swap(0))
}

// Resize returns img scaled to w×h as RGBA. Images already at that size are
// copied without filtering.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

var _ gpu.Texture = (*Texture)(nil)
