package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// CenterCropRect returns the largest rectangle centered in bounds whose width/height equals
// aspect, up to integer truncation. When bounds is wider than aspect the full height is kept and
// the sides are trimmed; otherwise the full width is kept and the top and bottom are trimmed.
func CenterCropRect(bounds image.Rectangle, aspect float64) (image.Rectangle, error) {
	if aspect <= 0 {
		return image.Rectangle{}, errors.Errorf("aspect ratio must be positive, got %v", aspect)
	}
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols <= 0 || rows <= 0 {
		return image.Rectangle{}, errors.Errorf("cannot crop empty bounds %v", bounds)
	}

	var cropW, cropH int
	if float64(cols)/float64(rows) > aspect {
		cropW, cropH = int(float64(rows)*aspect), rows
	} else {
		cropW, cropH = cols, int(float64(cols)/aspect)
	}
	if cropW <= 0 || cropH <= 0 {
		return image.Rectangle{}, errors.Errorf("aspect ratio %v leaves nothing of %v", aspect, bounds)
	}

	x1 := bounds.Min.X + (cols-cropW)/2
	y1 := bounds.Min.Y + (rows-cropH)/2
	return image.Rect(x1, y1, x1+cropW, y1+cropH), nil
}
