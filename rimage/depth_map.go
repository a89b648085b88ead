package rimage

import (
	"image"
	"image/color"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// MaxDepth is the largest depth value a DepthMap can hold, in millimeters.
const MaxDepth = 65535

// DepthMap is a plane of 16-bit samples stored row-major. It is used both for raw sensor planes
// (depth, infrared) and for the distance map handed to downstream measurements.
type DepthMap struct {
	width  int
	height int

	data []uint16
}

// NewEmptyDepthMap returns a zeroed depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]uint16, width*height),
	}
}

// NewDepthMapFromData wraps row-major samples without copying them. The length of data must be
// exactly width*height.
func NewDepthMapFromData(width, height int, data []uint16) (*DepthMap, error) {
	if width < 0 || height < 0 {
		return nil, errors.Errorf("depth map dimensions must be non-negative, got %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("depth map of %dx%d needs %d samples, got %d", width, height, width*height, len(data))
	}
	return &DepthMap{width: width, height: height, data: data}, nil
}

// HasData returns whether the map holds at least one sample.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.height > 0 && len(dm.data) > 0
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle of the map with its origin at (0,0).
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// ColorModel is Gray16 so a DepthMap can be handed to any image encoder.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// At returns the sample at (x, y) as a Gray16.
func (dm *DepthMap) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(dm.Bounds())) {
		return color.Gray16{}
	}
	return color.Gray16{dm.GetDepth(x, y)}
}

func (dm *DepthMap) kxy(x, y int) int {
	return y*dm.width + x
}

// Get returns the sample at p.
func (dm *DepthMap) Get(p image.Point) uint16 {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// GetDepth returns the sample at (x, y).
func (dm *DepthMap) GetDepth(x, y int) uint16 {
	return dm.data[dm.kxy(x, y)]
}

// Set stores a sample at (x, y).
func (dm *DepthMap) Set(x, y int, val uint16) {
	dm.data[dm.kxy(x, y)] = val
}

// Data returns the backing row-major samples.
func (dm *DepthMap) Data() []uint16 {
	return dm.data
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	data := make([]uint16, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: dm.width, height: dm.height, data: data}
}

// TopRows returns a copy of the first n rows.
func (dm *DepthMap) TopRows(n int) (*DepthMap, error) {
	if n < 0 || n > dm.height {
		return nil, errors.Errorf("cannot take %d rows of a depth map with %d rows", n, dm.height)
	}
	data := make([]uint16, n*dm.width)
	copy(data, dm.data[:n*dm.width])
	return &DepthMap{width: dm.width, height: n, data: data}, nil
}

// Reshape reinterprets the samples as a width x height grid. The element count must not change;
// no resampling happens.
func (dm *DepthMap) Reshape(width, height int) (*DepthMap, error) {
	if width*height != len(dm.data) || width < 0 || height < 0 {
		return nil, errors.Errorf("cannot reshape %d samples (%dx%d) into %dx%d",
			len(dm.data), dm.width, dm.height, width, height)
	}
	data := make([]uint16, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: width, height: height, data: data}, nil
}

// MirrorHorizontal returns a copy flipped along the vertical axis.
func (dm *DepthMap) MirrorHorizontal() *DepthMap {
	out := NewEmptyDepthMap(dm.width, dm.height)
	for y := 0; y < dm.height; y++ {
		row := dm.data[y*dm.width : (y+1)*dm.width]
		outRow := out.data[y*dm.width : (y+1)*dm.width]
		for x, v := range row {
			outRow[dm.width-1-x] = v
		}
	}
	return out
}

// SubImage returns a copy of the samples inside r, re-origined at (0,0). r is clipped to the
// map's bounds.
func (dm *DepthMap) SubImage(r image.Rectangle) *DepthMap {
	r = r.Intersect(dm.Bounds())
	out := NewEmptyDepthMap(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(out.data[(y-r.Min.Y)*out.width:(y-r.Min.Y+1)*out.width], dm.data[dm.kxy(r.Min.X, y):dm.kxy(r.Max.X, y)])
	}
	return out
}

// MinMax returns the smallest and largest non-zero depths. Zero means "no reading" and is skipped.
// Both are zero if the map holds no reading.
func (dm *DepthMap) MinMax() (uint16, uint16) {
	var minVal, maxVal uint16 = MaxDepth, 0
	found := false
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		found = true
		if z < minVal {
			minVal = z
		}
		if z > maxVal {
			maxVal = z
		}
	}
	if !found {
		return 0, 0
	}
	return minVal, maxVal
}

// DepthStats summarizes the readings inside a region of a depth map.
type DepthStats struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
}

// Stats computes statistics over the non-zero samples inside r. A region with no readings
// returns a zero DepthStats.
func (dm *DepthMap) Stats(r image.Rectangle) DepthStats {
	r = r.Intersect(dm.Bounds())
	vals := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if z := dm.GetDepth(x, y); z != 0 {
				vals = append(vals, float64(z))
			}
		}
	}
	if len(vals) == 0 {
		return DepthStats{}
	}
	sort.Float64s(vals)
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		std = 0
	}
	return DepthStats{
		Count:  len(vals),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, vals, nil),
		StdDev: std,
	}
}
