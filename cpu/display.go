package cpu

import (
	"strings"
)

const (
	DISPLAY_WIDTH  = 64
	DISPLAY_HEIGHT = 32
)

// Display is the monochrome framebuffer, row-major, true for a lit pixel.
type Display [DISPLAY_WIDTH * DISPLAY_HEIGHT]bool

// Pixel reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	return d[d.offset(x, y)]
}

// toggle flips a pixel, returning true if it was lit beforehand.
func (d *Display) toggle(x, y int) (was bool) {
	n := d.offset(x, y)
	was = d[n]
	d[n] = !was
	return
}

func (d *Display) offset(x, y int) int {
	x %= DISPLAY_WIDTH
	if x < 0 {
		x += DISPLAY_WIDTH
	}
	y %= DISPLAY_HEIGHT
	if y < 0 {
		y += DISPLAY_HEIGHT
	}
	return y*DISPLAY_WIDTH + x
}

// Lit returns the number of lit pixels.
func (d *Display) Lit() (count int) {
	for _, on := range d {
		if on {
			count++
		}
	}
	return
}

// Render draws the display as DISPLAY_HEIGHT lines of text, using 'on'
// and 'off' for each pixel.
func (d *Display) Render(on, off rune) string {
	var sb strings.Builder
	for y := range DISPLAY_HEIGHT {
		for x := range DISPLAY_WIDTH {
			if d.Pixel(x, y) {
				sb.WriteRune(on)
			} else {
				sb.WriteRune(off)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (d *Display) String() string {
	return d.Render('#', '.')
}
