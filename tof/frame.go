// Package tof turns raw time-of-flight camera frames into displayable images.
package tof

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/skeletal/rimage"
)

// ErrInvalidShape is returned when the planes of a frame cannot be normalized together.
var ErrInvalidShape = errors.New("invalid frame shape")

// Plane is a row-major grid of 16-bit samples as delivered by the camera.
type Plane struct {
	Width  int
	Height int
	Data   []uint16
}

// NewPlane returns a zeroed plane of the given size.
func NewPlane(width, height int) Plane {
	return Plane{Width: width, Height: height, Data: make([]uint16, width*height)}
}

// Set stores v at (x, y).
func (p Plane) Set(x, y int, v uint16) {
	p.Data[y*p.Width+x] = v
}

// At returns the sample at (x, y).
func (p Plane) At(x, y int) uint16 {
	return p.Data[y*p.Width+x]
}

// Empty reports whether the plane has no samples.
func (p Plane) Empty() bool {
	return p.Width <= 0 || p.Height <= 0 || len(p.Data) == 0
}

// DepthMap views the plane as a depth map sharing the same samples.
func (p Plane) DepthMap() (*rimage.DepthMap, error) {
	return rimage.NewDepthMapFromData(p.Width, p.Height, p.Data)
}

// RawFrame is one acquisition from the camera. The infrared plane is twice as tall as the depth
// plane and only its top half carries the active image.
type RawFrame struct {
	Seq       uint64
	Timestamp time.Time

	Depth Plane
	IR    Plane
}

// Validate checks that the two planes can be normalized together. Every failure wraps
// ErrInvalidShape.
func (f *RawFrame) Validate() error {
	if f.Depth.Empty() {
		return errors.Wrap(ErrInvalidShape, "depth plane is empty")
	}
	if f.IR.Empty() {
		return errors.Wrap(ErrInvalidShape, "ir plane is empty")
	}
	if len(f.Depth.Data) != f.Depth.Width*f.Depth.Height {
		return errors.Wrapf(ErrInvalidShape, "depth plane of %dx%d has %d samples",
			f.Depth.Width, f.Depth.Height, len(f.Depth.Data))
	}
	if len(f.IR.Data) != f.IR.Width*f.IR.Height {
		return errors.Wrapf(ErrInvalidShape, "ir plane of %dx%d has %d samples",
			f.IR.Width, f.IR.Height, len(f.IR.Data))
	}
	if f.IR.Width != f.Depth.Width {
		return errors.Wrapf(ErrInvalidShape, "ir width %d does not match depth width %d", f.IR.Width, f.Depth.Width)
	}
	if f.IR.Height != 2*f.Depth.Height {
		return errors.Wrapf(ErrInvalidShape, "ir height %d is not twice the depth height %d", f.IR.Height, f.Depth.Height)
	}
	return nil
}
