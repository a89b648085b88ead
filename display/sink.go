package display

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/logging"
)

// newOpenCVSink is set when built with OpenCV support.
var newOpenCVSink func() (Sink, error)

// NewSink builds the sink named in cfg. Window sinks need the main goroutine and are created with
// RunWindow instead.
func NewSink(cfg Config, logger logging.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Sink {
	case SinkFile:
		return NewFileSink(cfg.Directory, cfg.MaxFrames, cfg.Width, logger)
	case SinkOpenCV:
		if newOpenCVSink == nil {
			return nil, errors.New("opencv display not available, rebuild with -tags gocv")
		}
		return newOpenCVSink()
	default:
		return nil, errors.Errorf("display sink %q must be run with RunWindow", cfg.Sink)
	}
}

// Run calls fn with the sink named in cfg, owning the main goroutine for window sinks, and closes
// the sink afterwards.
func Run(cfg Config, logger logging.Logger, fn func(Sink) error) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Sink == SinkWindow {
		return RunWindow(cfg, logger, fn)
	}
	sink, err := NewSink(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sink.Close())
	}()
	return fn(sink)
}
