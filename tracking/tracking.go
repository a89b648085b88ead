// Package tracking runs the skeletal tracking loop: acquire a frame, normalize it, find people,
// measure how far away they are and show the result.
package tracking

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/display"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/pose"
	"go.viam.com/skeletal/tof"
)

// Config controls when the loop gives up or finishes.
type Config struct {
	// MaxConsecutiveFailures is how many frames in a row may fail before the loop aborts.
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
	// MaxFrames stops the loop after this many frames were shown; zero runs until stopped.
	MaxFrames int `json:"max_frames"`
}

// DefaultConfig tolerates ten failed frames in a row and runs until stopped.
func DefaultConfig() Config {
	return Config{MaxConsecutiveFailures: 10}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	if cfg.MaxConsecutiveFailures < 0 {
		return errors.Errorf("max_consecutive_failures must not be negative, got %d", cfg.MaxConsecutiveFailures)
	}
	if cfg.MaxFrames < 0 {
		return errors.Errorf("max_frames must not be negative, got %d", cfg.MaxFrames)
	}
	return nil
}

// An Option changes how a Tracker presents its results.
type Option func(*Tracker)

// WithDepthWindow also shows the colorized depth image.
func WithDepthWindow() Option {
	return func(t *Tracker) {
		t.showDepth = true
	}
}

// WithKeypointThreshold sets the minimum score a keypoint needs to be measured and drawn.
func WithKeypointThreshold(threshold float64) Option {
	return func(t *Tracker) {
		t.threshold = threshold
	}
}

// Stats counts what a Tracker has done so far.
type Stats struct {
	Frames     uint64
	Failures   uint64
	LastPeople int
}

// A Tracker ties a frame source, an estimator and a sink together.
type Tracker struct {
	cfg        Config
	normalizer tof.Config
	source     camera.FrameSource
	estimator  pose.Estimator
	sink       display.Sink
	logger     logging.Logger

	showDepth bool
	threshold float64

	frames      atomic.Uint64
	failures    atomic.Uint64
	lastPeople  atomic.Int64
	consecutive int
}

// New returns a Tracker. It does not take ownership of source, estimator or sink.
func New(
	cfg Config,
	normalizer tof.Config,
	source camera.FrameSource,
	estimator pose.Estimator,
	sink display.Sink,
	logger logging.Logger,
	opts ...Option,
) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := normalizer.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{
		cfg:        cfg,
		normalizer: normalizer,
		source:     source,
		estimator:  estimator,
		sink:       sink,
		logger:     logger,
		threshold:  pose.DefaultConfig().Threshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Stats returns the counters so far. It is safe to call while Run is running.
func (t *Tracker) Stats() Stats {
	return Stats{
		Frames:     t.frames.Load(),
		Failures:   t.failures.Load(),
		LastPeople: int(t.lastPeople.Load()),
	}
}

// Run processes frames until the sink asks to stop, the source runs out of frames, ctx is
// cancelled or a failure is fatal. Only fatal failures are returned.
func (t *Tracker) Run(ctx context.Context) error {
	runID := uuid.New()
	logger := t.logger
	logger.Infow("tracking started", "run", runID.String())
	defer func() {
		stats := t.Stats()
		logger.Infow("tracking stopped", "run", runID.String(), "frames", stats.Frames, "failures", stats.Failures)
	}()

	for {
		if t.sink.StopRequested() {
			logger.Info("stop requested by display")
			return nil
		}
		if t.cfg.MaxFrames > 0 && t.frames.Load() >= uint64(t.cfg.MaxFrames) {
			return nil
		}
		err := ctx.Err()
		if err == nil {
			err = t.step(ctx)
		}
		if stop, fatal := t.decide(ctx, err); stop {
			return fatal
		}
	}
}

type stage string

const (
	stageAcquire   stage = "acquire"
	stageNormalize stage = "normalize"
	stageEstimate  stage = "estimate"
	stageDisplay   stage = "display"
)

type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// step processes a single frame.
func (t *Tracker) step(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "tracking::step")
	defer span.End()

	frame, err := t.acquire(ctx)
	if err != nil {
		return &stageError{stageAcquire, err}
	}

	_, normSpan := trace.StartSpan(ctx, "tracking::normalize")
	res, err := tof.Normalize(t.normalizer, frame)
	normSpan.End()
	if err != nil {
		return &stageError{stageNormalize, err}
	}

	estCtx, estSpan := trace.StartSpan(ctx, "tracking::estimate")
	people, err := t.estimator.Estimate(estCtx, res.Composite)
	if err == nil {
		pose.Measure(people, res.Distance, t.threshold)
	}
	estSpan.End()
	if err != nil {
		return &stageError{stageEstimate, err}
	}

	showCtx, showSpan := trace.StartSpan(ctx, "tracking::display")
	defer showSpan.End()
	if err := t.sink.Show(showCtx, display.WindowMain, pose.DrawSkeleton(res.Composite, people, t.threshold)); err != nil {
		return &stageError{stageDisplay, err}
	}
	if t.showDepth {
		if err := t.sink.Show(showCtx, display.WindowDepth, res.DepthColor); err != nil {
			return &stageError{stageDisplay, err}
		}
	}

	t.frames.Inc()
	t.lastPeople.Store(int64(len(people)))
	t.logger.CDebugw(ctx, "frame processed", "seq", frame.Seq, "people", len(people), "crop", res.Crop.String())
	return nil
}

func (t *Tracker) acquire(ctx context.Context) (*tof.RawFrame, error) {
	ctx, span := trace.StartSpan(ctx, "tracking::acquire")
	defer span.End()
	return t.source.NextFrame(ctx)
}

// decide is the single place loop failures are judged. It reports whether the loop must stop
// and, if so, the error to stop with.
func (t *Tracker) decide(ctx context.Context, err error) (bool, error) {
	if err == nil {
		t.consecutive = 0
		return false, nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		t.logger.Debug("tracking cancelled")
		return true, nil
	}
	if errors.Is(err, io.EOF) {
		t.logger.Info("frame source exhausted")
		return true, nil
	}

	var se *stageError
	if errors.As(err, &se) && se.stage == stageDisplay {
		return true, errors.Wrap(err, "display failed")
	}

	t.failures.Inc()
	t.consecutive++
	if errors.Is(err, tof.ErrInvalidShape) {
		t.logger.Warnw("dropping malformed frame", "error", err, "consecutive", t.consecutive)
	} else {
		t.logger.Warnw("frame failed", "error", err, "consecutive", t.consecutive)
	}
	if t.consecutive > t.cfg.MaxConsecutiveFailures {
		return true, errors.Wrapf(err, "giving up after %d consecutive failures", t.consecutive)
	}
	return false, nil
}
