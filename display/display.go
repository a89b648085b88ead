// Package display shows frames to the user, in a window or as files on disk.
package display

import (
	"context"
	"image"

	"github.com/pkg/errors"
)

// Window names frames are shown under.
const (
	WindowMain  = "Skeletal Tracking"
	WindowDepth = "Depth"
)

// Sink kinds selectable by name.
const (
	SinkWindow = "window"
	SinkFile   = "file"
	SinkOpenCV = "opencv"
)

// A Sink presents named frames. Frames with the same name replace each other.
type Sink interface {
	Show(ctx context.Context, name string, img image.Image) error
	// StopRequested reports, without blocking, whether the user asked to quit.
	StopRequested() bool
	Close() error
}

// Config selects a sink and how it presents frames.
type Config struct {
	Sink      string `json:"sink"`
	ShowDepth bool   `json:"show_depth"`
	// Directory and MaxFrames apply to the file sink.
	Directory string `json:"directory"`
	MaxFrames int    `json:"max_frames"`
	// Width scales saved frames to this many columns; zero keeps their size.
	Width int `json:"width"`
	// WindowWidth and WindowHeight size newly opened windows.
	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`
}

// DefaultConfig shows the composite in a 600x600 window.
func DefaultConfig() Config {
	return Config{
		Sink:         SinkWindow,
		Directory:    "frames",
		WindowWidth:  600,
		WindowHeight: 600,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	switch cfg.Sink {
	case SinkWindow, SinkOpenCV:
		if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
			return errors.Errorf("window size must be positive, got %dx%d", cfg.WindowWidth, cfg.WindowHeight)
		}
	case SinkFile:
		if cfg.Directory == "" {
			return errors.New("file sink needs a directory")
		}
	default:
		return errors.Errorf("unknown display sink %q, expected %q, %q or %q", cfg.Sink, SinkWindow, SinkFile, SinkOpenCV)
	}
	if cfg.MaxFrames < 0 {
		return errors.Errorf("max frames must not be negative, got %d", cfg.MaxFrames)
	}
	if cfg.Width < 0 {
		return errors.Errorf("width must not be negative, got %d", cfg.Width)
	}
	return nil
}
