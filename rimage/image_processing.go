package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// RescaleToByte maps a sample in [0, maxVal] linearly onto [0, 255], rounding half up. Samples at
// or above maxVal map to 255. The arithmetic is exact integer math so results are reproducible
// bit for bit.
func RescaleToByte(v uint16, maxVal int) uint8 {
	if maxVal <= 0 || int(v) >= maxVal {
		return 255
	}
	// round(v*255/max) == floor((2*v*255 + max) / (2*max))
	return uint8((2*int64(v)*255 + int64(maxVal)) / (2 * int64(maxVal)))
}

// GrayImageFromDepthMap rescales every sample against maxVal and replicates the result across
// the three channels.
func GrayImageFromDepthMap(dm *DepthMap, maxVal int) *Image {
	out := NewImage(dm.Width(), dm.Height())
	for k, v := range dm.Data() {
		b := RescaleToByte(v, maxVal)
		out.pix[3*k] = b
		out.pix[3*k+1] = b
		out.pix[3*k+2] = b
	}
	return out
}

// ColorizeDepthMap rescales every sample against maxVal and maps it through cm.
func ColorizeDepthMap(dm *DepthMap, maxVal int, cm *Colormap) *Image {
	out := NewImage(dm.Width(), dm.Height())
	for k, v := range dm.Data() {
		c := cm.Map(RescaleToByte(v, maxVal))
		out.pix[3*k] = c.R
		out.pix[3*k+1] = c.G
		out.pix[3*k+2] = c.B
	}
	return out
}

// AddWeighted blends two equally sized images per channel: round(wa*a + wb*b), saturated to
// [0, 255].
func AddWeighted(a *Image, wa float64, b *Image, wb float64) (*Image, error) {
	if a.Bounds() != b.Bounds() {
		return nil, errors.Errorf("cannot blend images of different sizes %v and %v", a.Bounds(), b.Bounds())
	}
	out := NewImage(a.width, a.height)
	for k := range a.pix {
		out.pix[k] = saturateByte(math.Round(wa*float64(a.pix[k]) + wb*float64(b.pix[k])))
	}
	return out, nil
}

func saturateByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
