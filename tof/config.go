package tof

import (
	"github.com/pkg/errors"

	"go.viam.com/skeletal/rimage"
)

// ErrInvalidConfig is returned when a Config cannot be used to normalize frames.
var ErrInvalidConfig = errors.New("invalid normalizer config")

// Config controls how raw frames are scaled, blended and cropped.
type Config struct {
	// MaxRange is the depth in millimeters that maps to full intensity.
	MaxRange int `json:"max_range"`
	// IRBitDepth is the number of significant bits in an infrared sample.
	IRBitDepth int `json:"ir_bit_depth"`
	// TargetAspectRatio is the width/height of the region handed downstream.
	TargetAspectRatio float64 `json:"target_aspect_ratio"`
	IRWeight          float64 `json:"ir_weight"`
	DepthWeight       float64 `json:"depth_weight"`
	Colormap          string  `json:"colormap"`
}

// DefaultConfig returns the settings the pose model was tuned with: a 5m range, 9-bit infrared,
// a square 300x300 target and a 40/60 infrared/depth blend.
func DefaultConfig() Config {
	return Config{
		MaxRange:          5000,
		IRBitDepth:        9,
		TargetAspectRatio: 300.0 / 300.0,
		IRWeight:          0.4,
		DepthWeight:       0.6,
		Colormap:          rimage.Rainbow.Name(),
	}
}

// MaxIR is the largest infrared sample value, 2^IRBitDepth - 1.
func (c Config) MaxIR() int {
	return 1<<c.IRBitDepth - 1
}

// Validate returns an error wrapping ErrInvalidConfig if the config is unusable.
func (c Config) Validate() error {
	switch {
	case c.MaxRange <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max_range must be positive, got %d", c.MaxRange)
	case c.IRBitDepth < 1 || c.IRBitDepth > 16:
		return errors.Wrapf(ErrInvalidConfig, "ir_bit_depth must be within 1..16, got %d", c.IRBitDepth)
	case c.TargetAspectRatio <= 0:
		return errors.Wrapf(ErrInvalidConfig, "target_aspect_ratio must be positive, got %v", c.TargetAspectRatio)
	case c.IRWeight < 0 || c.DepthWeight < 0:
		return errors.Wrapf(ErrInvalidConfig, "blend weights must not be negative, got %v and %v",
			c.IRWeight, c.DepthWeight)
	}
	if _, err := rimage.ColormapByName(c.Colormap); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}
