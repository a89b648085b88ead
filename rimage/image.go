package rimage

import (
	"image"
	"image/color"
	"image/draw"
)

// Image is an 8-bit RGB image stored row-major, three bytes per pixel. It is the format produced
// by frame normalization and handed to pose estimation and display.
type Image struct {
	pix           []uint8
	width, height int
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		pix:    make([]uint8, 3*width*height),
		width:  width,
		height: height,
	}
}

// NewImageFromBounds returns a black image the size of bounds.
func NewImageFromBounds(bounds image.Rectangle) *Image {
	return NewImage(bounds.Dx(), bounds.Dy())
}

// ConvertImage converts any image into an *Image, re-origined at (0,0). Alpha is dropped.
func ConvertImage(img image.Image) *Image {
	if ii, ok := img.(*Image); ok {
		return ii
	}
	bounds := img.Bounds()
	out := NewImageFromBounds(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetXY(x-bounds.Min.X, y-bounds.Min.Y, NewColorFromColor(img.At(x, y)))
		}
	}
	return out
}

// ColorModel returns the model of Color.
func (i *Image) ColorModel() color.Model {
	return TheColorModel
}

// In returns whether (x, y) lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

func (i *Image) kxy(x, y int) int {
	return 3 * ((y * i.width) + x)
}

// Bounds returns the rectangle of the image with its origin at (0,0).
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// Pix returns the backing RGB bytes.
func (i *Image) Pix() []uint8 {
	return i.pix
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	if !i.In(x, y) {
		return Color{}
	}
	return i.GetXY(x, y)
}

// Get returns the color at p.
func (i *Image) Get(p image.Point) Color {
	return i.GetXY(p.X, p.Y)
}

// GetXY returns the color at (x, y).
func (i *Image) GetXY(x, y int) Color {
	k := i.kxy(x, y)
	return Color{R: i.pix[k], G: i.pix[k+1], B: i.pix[k+2]}
}

// SetXY stores a color at (x, y).
func (i *Image) SetXY(x, y int, c Color) {
	k := i.kxy(x, y)
	i.pix[k] = c.R
	i.pix[k+1] = c.G
	i.pix[k+2] = c.B
}

// Set stores a color at p.
func (i *Image) Set(p image.Point, c Color) {
	i.SetXY(p.X, p.Y, c)
}

// MirrorHorizontal returns a copy flipped along the vertical axis.
func (i *Image) MirrorHorizontal() *Image {
	out := NewImage(i.width, i.height)
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			src := i.kxy(x, y)
			dst := i.kxy(i.width-1-x, y)
			copy(out.pix[dst:dst+3], i.pix[src:src+3])
		}
	}
	return out
}

// SubImage returns a copy of the pixels inside r, re-origined at (0,0). r is clipped to the
// image's bounds.
func (i *Image) SubImage(r image.Rectangle) *Image {
	r = r.Intersect(i.Bounds())
	out := NewImageFromBounds(r)
	rowBytes := 3 * r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := i.kxy(r.Min.X, y)
		dst := out.kxy(0, y-r.Min.Y)
		copy(out.pix[dst:dst+rowBytes], i.pix[src:src+rowBytes])
	}
	return out
}

// ToRGBA converts the image to a fully opaque *image.RGBA.
func (i *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(i.Bounds())
	for k, j := 0, 0; k < len(i.pix); k, j = k+3, j+4 {
		out.Pix[j] = i.pix[k]
		out.Pix[j+1] = i.pix[k+1]
		out.Pix[j+2] = i.pix[k+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// CloneToRGBA draws any image into a new *image.RGBA with its origin at (0,0).
func CloneToRGBA(img image.Image) *image.RGBA {
	if ii, ok := img.(*Image); ok {
		return ii.ToRGBA()
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}
