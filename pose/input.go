package pose

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// InputConfig describes the blob a pose model expects.
type InputConfig struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	Mean        float64 `json:"mean"`
}

// DefaultInputConfig returns a 300x300 blob scaled into [-1, 1].
func DefaultInputConfig() InputConfig {
	return InputConfig{Width: 300, Height: 300, ScaleFactor: 0.007843, Mean: 127.5}
}

// AspectRatio returns width over height.
func (cfg InputConfig) AspectRatio() float64 {
	return float64(cfg.Width) / float64(cfg.Height)
}

// Validate ensures all parts of the config are valid.
func (cfg InputConfig) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Errorf("input size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.ScaleFactor <= 0 {
		return errors.Errorf("input scale factor must be positive, got %v", cfg.ScaleFactor)
	}
	return nil
}

// PrepareInput resizes img to the configured size and returns it as a 1x3xHxW float32 tensor
// with every channel value v stored as (v - Mean) * ScaleFactor.
func PrepareInput(img image.Image, cfg InputConfig) (*tensor.Dense, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, errors.New("cannot prepare an empty image")
	}
	resized := imaging.Resize(img, cfg.Width, cfg.Height, imaging.Linear)

	plane := cfg.Width * cfg.Height
	backing := make([]float32, 3*plane)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			px := resized.PixOffset(x, y)
			k := y*cfg.Width + x
			for c := 0; c < 3; c++ {
				backing[c*plane+k] = float32((float64(resized.Pix[px+c]) - cfg.Mean) * cfg.ScaleFactor)
			}
		}
	}
	return tensor.New(tensor.WithShape(1, 3, cfg.Height, cfg.Width), tensor.WithBacking(backing)), nil
}
