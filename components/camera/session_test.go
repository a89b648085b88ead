package camera_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/components/camera/fake"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/tof"
)

// scriptedDevice records the calls made to it and fails the step named in failOn.
type scriptedDevice struct {
	calls      []string
	failOn     string
	modes      []string
	frameTypes []string
	stopped    int
}

func (d *scriptedDevice) step(name string) error {
	d.calls = append(d.calls, name)
	if d.failOn == name {
		return errors.Errorf("%s exploded", name)
	}
	return nil
}

func (d *scriptedDevice) Initialize(ctx context.Context, configPath string) error {
	return d.step("initialize")
}

func (d *scriptedDevice) AvailableModes(ctx context.Context) ([]string, error) {
	return d.modes, d.step("modes")
}

func (d *scriptedDevice) SetMode(ctx context.Context, mode string) error {
	return d.step("mode=" + mode)
}

func (d *scriptedDevice) AvailableFrameTypes(ctx context.Context) ([]string, error) {
	return d.frameTypes, d.step("frame_types")
}

func (d *scriptedDevice) SetFrameType(ctx context.Context, frameType string) error {
	return d.step("frame_type=" + frameType)
}

func (d *scriptedDevice) SetControl(ctx context.Context, name, value string) error {
	return d.step(name + "=" + value)
}

func (d *scriptedDevice) Start(ctx context.Context) error {
	return d.step("start")
}

func (d *scriptedDevice) Details(ctx context.Context) (camera.Details, error) {
	return camera.Details{CameraID: "scripted", Width: 2, Height: 2}, d.step("details")
}

func (d *scriptedDevice) RequestFrame(ctx context.Context) (*tof.RawFrame, error) {
	if err := d.step("frame"); err != nil {
		return nil, err
	}
	return &tof.RawFrame{Depth: tof.NewPlane(2, 2), IR: tof.NewPlane(2, 4)}, nil
}

func (d *scriptedDevice) Stop(ctx context.Context) error {
	d.stopped++
	return d.step("stop")
}

type scriptedSystem struct {
	devices []camera.Device
	err     error
}

func (s *scriptedSystem) Cameras(ctx context.Context, uri string) ([]camera.Device, error) {
	return s.devices, s.err
}

func newScripted(failOn string) *scriptedDevice {
	return &scriptedDevice{
		failOn:     failOn,
		modes:      []string{"m0", "m1", "m2"},
		frameTypes: []string{"sr-qnative", "lr-qnative"},
	}
}

func TestOpenSessionSequence(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dev := newScripted("")
	cfg := camera.DefaultSessionConfig()
	cfg.Mode = camera.ModeMedium

	sess, err := camera.OpenSession(context.Background(), &scriptedSystem{devices: []camera.Device{dev}}, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dev.calls, test.ShouldResemble, []string{
		"initialization_config=" + cfg.ConfigPath,
		"initialize",
		"modes",
		"mode=m1",
		"frame_types",
		"frame_type=sr-qnative",
		"start",
		"details",
		"noise_reduction_threshold=100",
	})
	test.That(t, sess.Details().CameraID, test.ShouldEqual, "scripted")

	frame, err := sess.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Validate(), test.ShouldBeNil)

	test.That(t, sess.Close(context.Background()), test.ShouldBeNil)
	test.That(t, sess.Close(context.Background()), test.ShouldBeNil)
	test.That(t, dev.stopped, test.ShouldEqual, 1)

	_, err = sess.NextFrame(context.Background())
	test.That(t, errors.Is(err, camera.ErrSessionClosed), test.ShouldBeTrue)
}

func TestOpenSessionFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg := camera.DefaultSessionConfig()

	t.Run("no cameras", func(t *testing.T) {
		_, err := camera.OpenSession(ctx, &scriptedSystem{}, cfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no cameras")
	})

	t.Run("listing fails", func(t *testing.T) {
		_, err := camera.OpenSession(ctx, &scriptedSystem{err: errors.New("unreachable")}, cfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unreachable")
	})

	t.Run("unknown frame type", func(t *testing.T) {
		dev := newScripted("")
		badCfg := cfg
		badCfg.FrameType = "sr-native"
		_, err := camera.OpenSession(ctx, &scriptedSystem{devices: []camera.Device{dev}}, badCfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "sr-native")
		test.That(t, dev.calls, test.ShouldNotContain, "start")
		test.That(t, dev.stopped, test.ShouldEqual, 1)
	})

	t.Run("too few modes", func(t *testing.T) {
		dev := newScripted("")
		dev.modes = []string{"only"}
		farCfg := cfg
		farCfg.Mode = camera.ModeFar
		_, err := camera.OpenSession(ctx, &scriptedSystem{devices: []camera.Device{dev}}, farCfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "far")
	})

	t.Run("initialize fails", func(t *testing.T) {
		dev := newScripted("initialize")
		_, err := camera.OpenSession(ctx, &scriptedSystem{devices: []camera.Device{dev}}, cfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "initialize exploded")
		test.That(t, dev.stopped, test.ShouldEqual, 0)
	})

	// once initialized, a failure stops the device again
	for _, step := range []string{"modes", "frame_types", "start", "details", "noise_reduction_threshold=100"} {
		t.Run("stops after "+step, func(t *testing.T) {
			dev := newScripted(step)
			_, err := camera.OpenSession(ctx, &scriptedSystem{devices: []camera.Device{dev}}, cfg, logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, step+" exploded")
			test.That(t, dev.stopped, test.ShouldEqual, 1)
		})
	}
}

func TestSessionConfigValidate(t *testing.T) {
	test.That(t, camera.DefaultSessionConfig().Validate(), test.ShouldBeNil)

	cfg := camera.DefaultSessionConfig()
	cfg.Mode = "ultra"
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = camera.DefaultSessionConfig()
	cfg.URI = ""
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = camera.DefaultSessionConfig()
	cfg.NoiseReductionThreshold = -1
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestOpenSystem(t *testing.T) {
	logger := logging.NewTestLogger(t)
	test.That(t, camera.RegisteredSchemes(), test.ShouldContain, fake.Scheme)
	test.That(t, camera.SchemeOf("fake:64x48"), test.ShouldEqual, "fake")
	test.That(t, camera.SchemeOf("nothing"), test.ShouldEqual, "")

	_, err := camera.OpenSystem("carrier-pigeon:1", logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fake")

	system, err := camera.OpenSystem("fake:8x6", logger)
	test.That(t, err, test.ShouldBeNil)

	cfg := camera.DefaultSessionConfig()
	cfg.URI = "fake:8x6"
	sess, err := camera.OpenSession(context.Background(), system, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, sess.Close(context.Background()), test.ShouldBeNil)
	}()

	details := sess.Details()
	test.That(t, details.Width, test.ShouldEqual, 8)
	test.That(t, details.Height, test.ShouldEqual, 6)
	test.That(t, details.IRBitDepth, test.ShouldEqual, 9)

	frame, err := sess.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Validate(), test.ShouldBeNil)
	test.That(t, frame.Depth.Width, test.ShouldEqual, 8)
	test.That(t, frame.IR.Height, test.ShouldEqual, 12)
}
