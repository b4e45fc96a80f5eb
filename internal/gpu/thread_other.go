//go:build !linux && !windows

package gpu

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThread falls back to the goroutine id. The display goroutine locks
// its OS thread, so the two identify the same execution context there.
func currentThread() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}
