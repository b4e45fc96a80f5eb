package gpu

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/logger"
)

// Context is the single rendering context. It is bound to the OS thread that
// created it (the display thread) and hands out Tokens only there.
type Context struct {
	dev    Device
	thread int64

	mu      sync.Mutex
	pending []func(Device)
}

// NewContext binds a rendering context to the calling thread.
// The caller must have locked its goroutine to the OS thread owning the GL context.
func NewContext(dev Device) *Context {
	c := &Context{
		dev:    dev,
		thread: currentThread(),
	}
	logger.Named("gpu").Debug("rendering context bound", zap.Int64("thread", c.thread))
	return c
}

// OnDisplayThread reports whether the caller runs on the display thread.
func (c *Context) OnDisplayThread() bool {
	return currentThread() == c.thread
}

// Acquire returns the capability token for GPU work. Off the display thread it
// logs the violation and returns ErrThreadAffinity.
func (c *Context) Acquire() (Token, error) {
	tok := Token{ctx: c}
	if err := tok.Check("acquire"); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// ScheduleRelease queues fn to run on the display thread at the next
// ReleasePending. Safe to call from any goroutine.
func (c *Context) ScheduleRelease(fn func(Device)) {
	c.mu.Lock()
	c.pending = append(c.pending, fn)
	c.mu.Unlock()
}

// Pending returns the number of queued releases.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ReleasePending runs and clears queued releases in the order they were
// scheduled. It returns how many ran.
func (c *Context) ReleasePending(tok Token) (int, error) {
	if err := tok.Check("release pending"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	queue := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, fn := range queue {
		fn(c.dev)
	}
	if len(queue) > 0 {
		logger.Named("gpu").Debug("released deferred resources", zap.Int("count", len(queue)))
	}
	return len(queue), nil
}

// Token is the capability to issue GPU commands. It can only be obtained on the
// display thread via Context.Acquire, and every use re-checks the calling
// thread. The zero Token is never valid.
type Token struct {
	ctx *Context
}

// Check returns nil if the token may be used from the calling thread. op names
// the skipped operation in the log entry on violation.
func (t Token) Check(op string) error {
	if t.ctx == nil {
		logger.Named("gpu").Error("gpu call without a rendering context", zap.String("op", op))
		return fmt.Errorf("%s: no rendering context: %w", op, ErrThreadAffinity)
	}
	if cur := currentThread(); cur != t.ctx.thread {
		logger.Named("gpu").Error("gpu call off the display thread",
			zap.String("op", op),
			zap.Int64("thread", cur),
			zap.Int64("display_thread", t.ctx.thread),
		)
		return fmt.Errorf("%s: %w", op, ErrThreadAffinity)
	}
	return nil
}

// Device returns the command set of the token's context.
func (t Token) Device() Device {
	if t.ctx == nil {
		return nil
	}
	return t.ctx.dev
}

// Context returns the context that issued the token.
func (t Token) Context() *Context {
	return t.ctx
}
