package window

import "github.com/veandco/go-sdl2/sdl"

// Events summarises the SDL events drained in one frame.
type Events struct {
	Quit bool
	// Resized is set with the new drawable size when the window changed size.
	Resized       bool
	Width, Height int
	// Keys lists scancodes pressed this frame, in order.
	Keys []sdl.Scancode
}

// KeyPressed reports whether sc was pressed this frame.
func (e Events) KeyPressed(sc sdl.Scancode) bool {
	for _, k := range e.Keys {
		if k == sc {
			return true
		}
	}
	return false
}

// Poll drains the SDL event queue. Escape counts as a quit request.
func (w *Window) Poll() Events {
	var ev Events
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			ev.Quit = true
		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				ev.Resized = true
				ev.Width, ev.Height = w.Size()
			}
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				ev.Quit = true
			}
			ev.Keys = append(ev.Keys, e.Keysym.Scancode)
		}
	}
	return ev
}
