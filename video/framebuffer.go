package video

import (
	"sync"
)

// Framebuffer is the display shared by the processor, its only writer,
// and the renderers.
type Framebuffer struct {
	mutex  sync.Mutex
	pixels Pixels
}

func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

// Update runs fn with the display locked. fn must not block.
func (fb *Framebuffer) Update(fn func(px *Pixels)) {
	fb.mutex.Lock()
	defer fb.mutex.Unlock()

	fn(&fb.pixels)
}

// Snapshot returns a copy of the display.
func (fb *Framebuffer) Snapshot() (px Pixels) {
	fb.mutex.Lock()
	defer fb.mutex.Unlock()

	px = fb.pixels
	return
}
