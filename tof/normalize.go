package tof

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/skeletal/rimage"
)

// Result is a normalized frame. All three images cover the same cropped region.
type Result struct {
	// Composite blends the infrared image with the colorized depth.
	Composite *rimage.Image
	// DepthColor is the colorized depth on its own.
	DepthColor *rimage.Image
	// Distance holds the raw depth in millimeters, aligned with Composite.
	Distance *rimage.DepthMap
	// Crop is the region of the full mirrored frame that was kept.
	Crop image.Rectangle
}

// Normalize converts a raw frame into a cropped composite, a colorized depth image and a
// distance map. Both planes are mirrored horizontally so the output reads like a mirror to the
// person in front of the camera. It holds no state and does no I/O.
func Normalize(cfg Config, frame *RawFrame) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	cm, err := rimage.ColormapByName(cfg.Colormap)
	if err != nil {
		return nil, err
	}
	width, height := frame.Depth.Width, frame.Depth.Height

	ir, err := frame.IR.DepthMap()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}
	ir, err = ir.TopRows(height)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}
	irImage := rimage.GrayImageFromDepthMap(ir, cfg.MaxIR()).MirrorHorizontal()

	depth, err := frame.Depth.DepthMap()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}
	depth, err = depth.Reshape(width, height)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}
	distance := depth.MirrorHorizontal()
	depthColor := rimage.ColorizeDepthMap(distance, cfg.MaxRange, cm)

	composite, err := rimage.AddWeighted(irImage, cfg.IRWeight, depthColor, cfg.DepthWeight)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}

	crop, err := rimage.CenterCropRect(composite.Bounds(), cfg.TargetAspectRatio)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidShape, err.Error())
	}

	return &Result{
		Composite:  composite.SubImage(crop),
		DepthColor: depthColor.SubImage(crop),
		Distance:   distance.SubImage(crop),
		Crop:       crop,
	}, nil
}
