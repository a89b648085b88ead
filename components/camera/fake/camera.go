// Package fake implements a synthetic time-of-flight camera that renders a person-sized block in
// front of a sloped background.
package fake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/tof"
)

// Scheme is the URI scheme fake cameras are listed under, as in "fake:" or "fake:160x120".
const Scheme = "fake"

const (
	initialWidth  = 160
	initialHeight = 120

	irBitDepth    = 9
	frameInterval = 33 * time.Millisecond
)

var (
	modes      = []string{"near", "medium", "far"}
	frameTypes = []string{"sr-qnative", "lr-qnative", "sr-native"}
	modeRanges = map[string]int{"near": 3000, "medium": 5000, "far": 8000}
)

func init() {
	camera.RegisterSystem(Scheme, func(logger logging.Logger) (camera.System, error) {
		return NewSystem(logger), nil
	})
}

// Config are the attributes of a fake camera.
type Config struct {
	Width  int
	Height int
}

// Validate checks that the config attributes are valid for a fake camera.
func (conf *Config) Validate() error {
	if conf.Width < 0 || conf.Height < 0 {
		return errors.Errorf("got illegal negative dimensions %dx%d for fake camera", conf.Width, conf.Height)
	}
	return nil
}

// ParseConfig reads the size from a URI of the form "fake:WIDTHxHEIGHT". An empty size selects
// the default and one zero side keeps a 4:3 aspect ratio.
func ParseConfig(uri string) (*Config, error) {
	_, size, _ := strings.Cut(uri, ":")
	conf := &Config{}
	if size != "" {
		w, h, ok := strings.Cut(size, "x")
		if !ok {
			return nil, errors.Errorf("fake camera size %q must look like WIDTHxHEIGHT", size)
		}
		var err error
		if conf.Width, err = strconv.Atoi(w); err != nil {
			return nil, errors.Wrapf(err, "bad fake camera width %q", w)
		}
		if conf.Height, err = strconv.Atoi(h); err != nil {
			return nil, errors.Wrapf(err, "bad fake camera height %q", h)
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	switch {
	case conf.Width == 0 && conf.Height == 0:
		conf.Width, conf.Height = initialWidth, initialHeight
	case conf.Width == 0:
		conf.Width = conf.Height * 4 / 3
	case conf.Height == 0:
		conf.Height = conf.Width * 3 / 4
	}
	return conf, nil
}

// System lists a single fake camera.
type System struct {
	logger logging.Logger
}

// NewSystem returns a system of fake cameras.
func NewSystem(logger logging.Logger) *System {
	return &System{logger: logger}
}

// Cameras returns one camera with the size encoded in uri.
func (s *System) Cameras(ctx context.Context, uri string) ([]camera.Device, error) {
	conf, err := ParseConfig(uri)
	if err != nil {
		return nil, err
	}
	return []camera.Device{NewDevice(conf, s.logger)}, nil
}

// Device is a fake camera. Frames are a pure function of the frame size and sequence number.
type Device struct {
	mu     sync.Mutex
	conf   Config
	logger logging.Logger
	clock  clock.Clock

	initialized bool
	started     bool
	startedAt   time.Time
	mode        string
	frameType   string
	controls    map[string]string
	seq         uint64
}

// NewDevice returns a stopped fake camera.
func NewDevice(conf *Config, logger logging.Logger) *Device {
	return &Device{conf: *conf, logger: logger, clock: clock.New(), controls: map[string]string{}}
}

// SetClock replaces the clock frames are timestamped with.
func (d *Device) SetClock(clk clock.Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clk
}

// Initialize readies the camera. The config path is only recorded.
func (d *Device) Initialize(ctx context.Context, configPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = true
	d.controls[camera.ControlInitializationConfig] = configPath
	return nil
}

// AvailableModes returns near, medium and far.
func (d *Device) AvailableModes(ctx context.Context) ([]string, error) {
	return append([]string(nil), modes...), nil
}

// SetMode selects an operating mode.
func (d *Device) SetMode(ctx context.Context, mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return errors.New("fake camera not initialized")
	}
	if !lo.Contains(modes, mode) {
		return errors.Errorf("fake camera has no mode %q", mode)
	}
	d.mode = mode
	return nil
}

// AvailableFrameTypes returns the frame types this camera can produce.
func (d *Device) AvailableFrameTypes(ctx context.Context) ([]string, error) {
	return append([]string(nil), frameTypes...), nil
}

// SetFrameType selects a frame type. sr-native frames are twice as large in each direction.
func (d *Device) SetFrameType(ctx context.Context, frameType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == "" {
		return errors.New("fake camera mode not set")
	}
	if !lo.Contains(frameTypes, frameType) {
		return errors.Errorf("fake camera has no frame type %q", frameType)
	}
	d.frameType = frameType
	return nil
}

// SetControl stores a control value. The noise reduction threshold must be an integer.
func (d *Device) SetControl(ctx context.Context, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch name {
	case camera.ControlInitializationConfig:
	case camera.ControlNoiseReductionThreshold:
		if _, err := strconv.Atoi(value); err != nil {
			return errors.Wrapf(err, "bad %s %q", name, value)
		}
	default:
		return errors.Errorf("fake camera has no control %q", name)
	}
	d.controls[name] = value
	return nil
}

// Control returns the value last set for a control.
func (d *Device) Control(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controls[name]
}

// Start begins streaming.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frameType == "" {
		return errors.New("fake camera frame type not set")
	}
	d.started = true
	d.startedAt = d.clock.Now()
	return nil
}

// Details describes the running camera.
func (d *Device) Details(ctx context.Context) (camera.Details, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return camera.Details{}, errors.New("fake camera not started")
	}
	w, h := d.frameSize()
	return camera.Details{
		CameraID:   fmt.Sprintf("fake-%dx%d", d.conf.Width, d.conf.Height),
		Connection: Scheme,
		Mode:       d.mode,
		FrameType:  d.frameType,
		Width:      w,
		Height:     h,
		IRBitDepth: irBitDepth,
		MaxRange:   modeRanges[d.mode],
	}, nil
}

func (d *Device) frameSize() (int, int) {
	if d.frameType == "sr-native" {
		return 2 * d.conf.Width, 2 * d.conf.Height
	}
	return d.conf.Width, d.conf.Height
}

// RequestFrame renders the next frame.
func (d *Device) RequestFrame(ctx context.Context) (*tof.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil, errors.New("fake camera not started")
	}
	w, h := d.frameSize()
	threshold, _ := strconv.Atoi(d.controls[camera.ControlNoiseReductionThreshold])
	frame := Render(w, h, d.seq, threshold)
	frame.Timestamp = d.startedAt.Add(time.Duration(d.seq) * frameInterval)
	d.seq++
	return frame, nil
}

// Stop ends streaming. Stopping a stopped camera is a no-op.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.logger.Debugw("fake camera stopped", "frames", d.seq)
	}
	d.started = false
	return nil
}

// Render draws frame seq of a width x height scene: a floor sloping from 2.5m to 4.5m and a
// figure at 1.5m in the middle third that sways a few pixels from frame to frame. Depth samples
// whose infrared signal falls below threshold are zeroed.
func Render(width, height int, seq uint64, threshold int) *tof.RawFrame {
	frame := &tof.RawFrame{
		Seq:   seq,
		Depth: tof.NewPlane(width, height),
		IR:    tof.NewPlane(width, 2*height),
	}
	sway := int(seq%8) - 4
	left, right := width/3+sway, 2*width/3+sway
	top := height / 6
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			depth := 2500 + 2000*y/height
			ir := 120 + 200*x/width
			if x >= left && x < right && y >= top {
				depth = 1500
				ir = 420
			}
			if ir < threshold {
				depth = 0
			}
			frame.Depth.Set(x, y, uint16(depth))
			frame.IR.Set(x, y, uint16(ir))
		}
	}
	// the lower half of the infrared plane carries no image
	maxIR := uint64(1<<irBitDepth - 1)
	for y := height; y < 2*height; y++ {
		for x := 0; x < width; x++ {
			frame.IR.Set(x, y, uint16((uint64(x*31+y*17)+seq)%maxIR))
		}
	}
	return frame
}
