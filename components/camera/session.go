package camera

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/tof"
)

// Operating modes, in the order devices list them.
const (
	ModeNear   = "near"
	ModeMedium = "medium"
	ModeFar    = "far"
)

// ModeNames lists the operating modes by their index in a device's available modes.
var ModeNames = []string{ModeNear, ModeMedium, ModeFar}

// ErrSessionClosed is returned when frames are requested from a closed session.
var ErrSessionClosed = errors.New("camera session closed")

// SessionConfig selects a device and how to set it up.
type SessionConfig struct {
	// URI names the system and the devices to enumerate, e.g. "ip:10.42.0.1" or "fake:64x48".
	URI string `json:"uri"`
	// ConfigPath is the device initialization file handed over as the initialization_config control.
	ConfigPath              string `json:"config_path"`
	Mode                    string `json:"mode"`
	FrameType               string `json:"frame_type"`
	NoiseReductionThreshold int    `json:"noise_reduction_threshold"`
}

// DefaultSessionConfig returns the setup used for skeletal tracking: the near mode, quarter
// resolution short-range frames and a small-signal threshold of 100.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		URI:                     "ip:10.42.0.1",
		ConfigPath:              "config/config_adsd3500_adsd3100.json",
		Mode:                    ModeNear,
		FrameType:               "sr-qnative",
		NoiseReductionThreshold: 100,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg SessionConfig) Validate() error {
	if cfg.URI == "" {
		return errors.New("camera uri is required")
	}
	if !lo.Contains(ModeNames, cfg.Mode) {
		return errors.Errorf("unknown camera mode %q, expected one of %v", cfg.Mode, ModeNames)
	}
	if cfg.FrameType == "" {
		return errors.New("camera frame type is required")
	}
	if cfg.NoiseReductionThreshold < 0 {
		return errors.Errorf("noise reduction threshold must not be negative, got %d", cfg.NoiseReductionThreshold)
	}
	return nil
}

// A Session is a started device delivering frames.
type Session struct {
	mu      sync.Mutex
	device  Device
	details Details
	closed  bool
	logger  logging.Logger
}

// OpenSession enumerates the devices of system at cfg.URI and sets up the first one. If any
// step after initialization fails the device is stopped again. Errors name the failing step.
func OpenSession(ctx context.Context, system System, cfg SessionConfig, logger logging.Logger) (_ *Session, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	devices, err := system.Cameras(ctx, cfg.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list cameras at %q", cfg.URI)
	}
	if len(devices) == 0 {
		return nil, errors.Errorf("no cameras found at %q", cfg.URI)
	}
	device := devices[0]
	logger.Debugf("found %d camera(s) at %q", len(devices), cfg.URI)

	if err := device.SetControl(ctx, ControlInitializationConfig, cfg.ConfigPath); err != nil {
		return nil, errors.Wrap(err, "failed to set initialization config")
	}
	if err := device.Initialize(ctx, cfg.ConfigPath); err != nil {
		return nil, errors.Wrap(err, "failed to initialize camera")
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, device.Stop(ctx))
		}
	}()

	modes, err := device.AvailableModes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get available modes")
	}
	modeIdx := lo.IndexOf(ModeNames, cfg.Mode)
	if modeIdx >= len(modes) {
		return nil, errors.Errorf("camera offers %d modes, cannot select %q", len(modes), cfg.Mode)
	}
	if err := device.SetMode(ctx, modes[modeIdx]); err != nil {
		return nil, errors.Wrapf(err, "failed to set mode %q", modes[modeIdx])
	}

	frameTypes, err := device.AvailableFrameTypes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get available frame types")
	}
	if !lo.Contains(frameTypes, cfg.FrameType) {
		return nil, errors.Errorf("frame type %q not available, camera offers %v", cfg.FrameType, frameTypes)
	}
	if err := device.SetFrameType(ctx, cfg.FrameType); err != nil {
		return nil, errors.Wrapf(err, "failed to set frame type %q", cfg.FrameType)
	}

	if err := device.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to start camera")
	}
	details, err := device.Details(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get camera details")
	}
	threshold := strconv.Itoa(cfg.NoiseReductionThreshold)
	if err := device.SetControl(ctx, ControlNoiseReductionThreshold, threshold); err != nil {
		return nil, errors.Wrap(err, "failed to set noise reduction threshold")
	}
	logger.Infow("camera started", "camera", details.CameraID, "mode", details.Mode,
		"frame_type", details.FrameType, "width", details.Width, "height", details.Height)

	return &Session{device: device, details: details, logger: logger}, nil
}

// NextFrame requests one frame from the device.
func (s *Session) NextFrame(ctx context.Context) (*tof.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	frame, err := s.device.RequestFrame(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request frame")
	}
	return frame, nil
}

// Details returns what the device reported when it started.
func (s *Session) Details() Details {
	return s.details
}

// Close stops the device. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("stopping camera")
	return s.device.Stop(ctx)
}
