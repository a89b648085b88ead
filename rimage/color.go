package rimage

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// NewColor returns a Color from its components.
func NewColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// NewGray returns the gray Color with all channels set to v.
func NewGray(v uint8) Color {
	return Color{R: v, G: v, B: v}
}

// NewColorFromColor converts any color, dropping alpha.
func NewColorFromColor(c color.Color) Color {
	if cc, ok := c.(Color); ok {
		return cc
	}
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// NewColorFromHSV returns the color for hue h in degrees and saturation/value in [0,1].
func NewColorFromHSV(h, s, v float64) Color {
	return newColorFromColorful(colorful.Hsv(h, s, v))
}

func newColorFromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

func (c Color) toColorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

func (c Color) String() string {
	h, s, v := c.toColorful().Hsv()
	return fmt.Sprintf("%s (%3d,%4.2f,%4.2f)", c.Hex(), int(h), s, v)
}

// TheColorModel converts any color into a Color.
var TheColorModel = color.ModelFunc(func(c color.Color) color.Color {
	return NewColorFromColor(c)
})
