package gputest

import (
	"runtime"
	"testing"

	"github.com/Faultbox/glshape/internal/gpu"
)

// NewContext locks the test goroutine to its OS thread, making it the display
// thread, and returns a context over a fresh Recorder with an acquired token.
func NewContext(tb testing.TB) (*gpu.Context, *Recorder, gpu.Token) {
	tb.Helper()
	runtime.LockOSThread()
	tb.Cleanup(runtime.UnlockOSThread)

	rec := New()
	ctx := gpu.NewContext(rec)
	tok, err := ctx.Acquire()
	if err != nil {
		tb.Fatalf("acquire on display thread: %v", err)
	}
	return ctx, rec, tok
}

// OffThread runs fn on a different, locked OS thread and waits for it.
func OffThread(fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		fn()
	}()
	<-done
}
