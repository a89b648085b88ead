// Package replay implements a camera that plays back frames from a recording, and the recorder
// that makes such recordings.
package replay

import (
	"context"
	"io"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/tof"
)

// Scheme is the URI scheme recordings are opened under, as in "file:/tmp/run.tofr?loop=true".
const Scheme = "file"

const (
	recordedIRBitDepth = 9
	recordedMaxRange   = 5000
)

var modes = []string{"near", "medium", "far"}

func init() {
	camera.RegisterSystem(Scheme, func(logger logging.Logger) (camera.System, error) {
		return &System{logger: logger}, nil
	})
}

// Config describes which recording to play back.
type Config struct {
	Path string
	// Loop restarts the recording after the last frame instead of returning io.EOF.
	Loop bool
}

// ParseConfig reads a config from a URI such as "file:run.tofr" or "file:/tmp/run.tofr?loop=1".
func ParseConfig(uri string) (*Config, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "bad recording uri %q", uri)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return nil, errors.Errorf("recording uri %q names no file", uri)
	}
	conf := &Config{Path: path}
	if loop := u.Query().Get("loop"); loop != "" {
		if conf.Loop, err = strconv.ParseBool(loop); err != nil {
			return nil, errors.Wrapf(err, "bad loop value %q", loop)
		}
	}
	return conf, nil
}

// System lists the single camera backed by a recording.
type System struct {
	logger logging.Logger
}

// Cameras returns a camera that replays the recording named by uri.
func (s *System) Cameras(ctx context.Context, uri string) ([]camera.Device, error) {
	conf, err := ParseConfig(uri)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(conf.Path); err != nil {
		return nil, err
	}
	return []camera.Device{NewDevice(conf, s.logger)}, nil
}

// Device replays a recording as if it were a live camera.
type Device struct {
	mu     sync.Mutex
	conf   Config
	logger logging.Logger

	file    *os.File
	reader  *Reader
	pending *tof.RawFrame
	mode    string
	started bool
	frames  int
}

// NewDevice returns a stopped replay camera.
func NewDevice(conf *Config, logger logging.Logger) *Device {
	return &Device{conf: *conf, logger: logger}
}

// Initialize opens the recording and reads its first frame.
func (d *Device) Initialize(ctx context.Context, configPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rewind(); err != nil {
		return err
	}
	frame, err := d.reader.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Errorf("recording %q holds no frames", d.conf.Path)
		}
		return err
	}
	d.pending = frame
	return nil
}

func (d *Device) rewind() error {
	if err := d.closeFile(); err != nil {
		return err
	}
	f, err := os.Open(d.conf.Path)
	if err != nil {
		return err
	}
	reader, err := NewReader(f)
	if err != nil {
		return multierr.Combine(err, f.Close())
	}
	d.file, d.reader = f, reader
	return nil
}

func (d *Device) closeFile() error {
	if d.file == nil {
		return nil
	}
	d.reader.Close()
	err := d.file.Close()
	d.file, d.reader = nil, nil
	return err
}

// AvailableModes returns near, medium and far. A recording plays back the same in every mode.
func (d *Device) AvailableModes(ctx context.Context) ([]string, error) {
	return append([]string(nil), modes...), nil
}

// SetMode records the requested mode.
func (d *Device) SetMode(ctx context.Context, mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return errors.New("replay camera not initialized")
	}
	if !lo.Contains(modes, mode) {
		return errors.Errorf("replay camera has no mode %q", mode)
	}
	d.mode = mode
	return nil
}

// AvailableFrameTypes returns the frame type the recording was made with.
func (d *Device) AvailableFrameTypes(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return nil, errors.New("replay camera not initialized")
	}
	return []string{d.reader.FrameType()}, nil
}

// SetFrameType accepts only the recorded frame type.
func (d *Device) SetFrameType(ctx context.Context, frameType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return errors.New("replay camera not initialized")
	}
	if frameType != d.reader.FrameType() {
		return errors.Errorf("recording holds %q frames, not %q", d.reader.FrameType(), frameType)
	}
	return nil
}

// SetControl accepts and ignores every control since recorded frames cannot change.
func (d *Device) SetControl(ctx context.Context, name, value string) error {
	d.logger.Debugw("ignoring control on replay camera", "control", name, "value", value)
	return nil
}

// Start begins playback.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return errors.New("replay camera not initialized")
	}
	d.started = true
	return nil
}

// Details describes the recording, sized after its first frame.
func (d *Device) Details(ctx context.Context) (camera.Details, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.reader == nil {
		return camera.Details{}, errors.New("replay camera not started")
	}
	details := camera.Details{
		CameraID:   d.reader.ID().String(),
		Connection: Scheme + ":" + d.conf.Path,
		Mode:       d.mode,
		FrameType:  d.reader.FrameType(),
		IRBitDepth: recordedIRBitDepth,
		MaxRange:   recordedMaxRange,
	}
	if d.pending != nil {
		details.Width, details.Height = d.pending.Depth.Width, d.pending.Depth.Height
	}
	return details, nil
}

// RequestFrame returns the next recorded frame. At the end of the recording it starts over if
// looping and returns io.EOF otherwise.
func (d *Device) RequestFrame(ctx context.Context) (*tof.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil, errors.New("replay camera not started")
	}
	if d.pending != nil {
		frame := d.pending
		d.pending = nil
		d.frames++
		return frame, nil
	}

	frame, err := d.reader.Next()
	if errors.Is(err, io.EOF) && d.conf.Loop && d.frames > 0 {
		d.logger.Debugw("restarting recording", "frames", d.frames)
		if err := d.rewind(); err != nil {
			return nil, err
		}
		frame, err = d.reader.Next()
	}
	if err != nil {
		return nil, err
	}
	d.frames++
	return frame, nil
}

// Stop ends playback and closes the recording.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	d.pending = nil
	return d.closeFile()
}
