// Package video holds the display of the processor: a 64x32 grid of
// monochrome cells, shared between the processor and the renderers.
package video

import (
	"strings"
)

const (
	WIDTH  = 64             // Display width in cells.
	HEIGHT = 32             // Display height in cells.
	PIXELS = WIDTH * HEIGHT // Total display cells.
)

// Pixels is the cell grid, row major. Every cell is 0 or 1.
type Pixels [PIXELS]uint8

func (px *Pixels) Clear() {
	clear(px[:])
}

// Set changes a cell, returning false if (x, y) is off the display.
func (px *Pixels) Set(x, y int, on bool) (ok bool) {
	if x < 0 || x >= WIDTH || y < 0 || y >= HEIGHT {
		return
	}

	var value uint8
	if on {
		value = 1
	}
	px[y*WIDTH+x] = value

	return true
}

// Get returns a cell; cells off the display are off.
func (px *Pixels) Get(x, y int) (on bool) {
	if x < 0 || x >= WIDTH || y < 0 || y >= HEIGHT {
		return
	}

	return px[y*WIDTH+x] != 0
}

// Count returns the number of lit cells.
func (px *Pixels) Count() (count int) {
	for _, value := range px {
		count += int(value)
	}
	return
}

// String renders the display as text, one line per row.
func (px *Pixels) String() string {
	var sb strings.Builder
	sb.Grow((WIDTH + 1) * HEIGHT)
	for y := range HEIGHT {
		for x := range WIDTH {
			if px.Get(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
