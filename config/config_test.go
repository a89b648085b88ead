package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/display"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/pose"
	"go.viam.com/skeletal/tof"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Camera, test.ShouldResemble, camera.DefaultSessionConfig())
	test.That(t, cfg.Normalizer, test.ShouldResemble, tof.DefaultConfig())
	test.That(t, cfg.Display.Sink, test.ShouldEqual, display.SinkWindow)
	test.That(t, cfg.Tracking.MaxConsecutiveFailures, test.ShouldEqual, 10)
}

func TestRead(t *testing.T) {
	t.Setenv("SKELETAL_CAMERA", "fake:64x48")
	path := filepath.Join(t.TempDir(), "app.json5")
	contents := `{
	// run against the simulated camera
	camera: {
		uri: "${SKELETAL_CAMERA}",
		mode: "far",
	},
	normalizer: {max_range: 8000, colormap: "jet"},
	display: {sink: "file", directory: "out", max_frames: 30},
	log: [{pattern: "camera.*", level: "debug"}],
}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Camera.URI, test.ShouldEqual, "fake:64x48")
	test.That(t, cfg.Camera.Mode, test.ShouldEqual, camera.ModeFar)
	test.That(t, cfg.Camera.FrameType, test.ShouldEqual, camera.DefaultSessionConfig().FrameType)
	test.That(t, cfg.Normalizer.MaxRange, test.ShouldEqual, 8000)
	test.That(t, cfg.Normalizer.Colormap, test.ShouldEqual, "jet")
	test.That(t, cfg.Normalizer.IRWeight, test.ShouldEqual, tof.DefaultConfig().IRWeight)
	test.That(t, cfg.Display.Sink, test.ShouldEqual, display.SinkFile)
	test.That(t, cfg.Display.MaxFrames, test.ShouldEqual, 30)
	test.That(t, cfg.Log, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "camera.*", Level: "debug"}})
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json5"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "broken.json5")
	test.That(t, os.WriteFile(path, []byte(`{camera: {mode: }`), 0o600), test.ShouldBeNil)
	_, err = Read(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broken.json5")
}

func TestFromBytesEmpty(t *testing.T) {
	cfg, err := FromBytes([]byte("  \n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyOverrides([]string{
		"camera.uri=ip:192.168.1.20",
		"camera.mode=medium",
		"normalizer.max_range=4000",
		"normalizer.ir_weight=0.5",
		"display.show_depth=true",
		"pose.estimator=template",
		"pose.input.width=320",
		"display.directory=123",
		"normalizer.colormap=gray",
		"config/camera_near.json",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Camera.URI, test.ShouldEqual, "ip:192.168.1.20")
	test.That(t, cfg.Camera.Mode, test.ShouldEqual, camera.ModeMedium)
	test.That(t, cfg.Camera.ConfigPath, test.ShouldEqual, "config/camera_near.json")
	test.That(t, cfg.Normalizer.MaxRange, test.ShouldEqual, 4000)
	test.That(t, cfg.Normalizer.IRWeight, test.ShouldEqual, 0.5)
	test.That(t, cfg.Display.ShowDepth, test.ShouldBeTrue)
	test.That(t, cfg.Pose.Estimator, test.ShouldEqual, pose.EstimatorTemplate)
	test.That(t, cfg.Pose.Input.Width, test.ShouldEqual, 320)
	test.That(t, cfg.Pose.Input.Height, test.ShouldEqual, 300)
	test.That(t, cfg.Display.Directory, test.ShouldEqual, "123")
	test.That(t, cfg.Normalizer.Colormap, test.ShouldEqual, "gray")
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestApplyOverridesKeepsTextVerbatim(t *testing.T) {
	for _, uri := range []string{
		"ip:10.42.0.1",
		"ip:192.168.1.20:8080",
		"file:/data/walk.tofr?loop=true",
		"fake:64x48",
		"{not json",
	} {
		t.Run(uri, func(t *testing.T) {
			cfg := Default()
			test.That(t, cfg.ApplyOverrides([]string{"camera.uri=" + uri}), test.ShouldBeNil)
			test.That(t, cfg.Camera.URI, test.ShouldEqual, uri)
		})
	}
}

func TestApplyOverridesErrors(t *testing.T) {
	for _, tc := range []struct {
		arg string
		msg string
	}{
		{"verbose", "expected key=value"},
		{"=5", "expected key=value"},
		{"camera.zoom=2", "unknown config key"},
		{"lens.focus=2", "unknown config section"},
		{"camera=fast", "is a section"},
		{"normalizer.max_range=far", "normalizer.max_range=far"},
		{"normalizer.max_range=null", "expected a number"},
		{"normalizer.max_range=12.5", "normalizer.max_range"},
		{"display.show_depth=yes", "expected true or false"},
	} {
		t.Run(tc.arg, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyOverrides([]string{tc.arg})
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
			test.That(t, cfg, test.ShouldResemble, Default())
		})
	}
}

func TestValidateCombinesErrors(t *testing.T) {
	cfg := Default()
	cfg.Camera.Mode = "macro"
	cfg.Normalizer.MaxRange = 0
	cfg.Display.Sink = "projector"
	cfg.Log = []logging.LoggerPatternConfig{{Pattern: "*", Level: "loud"}}

	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 4)
	test.That(t, errors.Is(err, tof.ErrInvalidConfig), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera: unknown camera mode")
	test.That(t, err.Error(), test.ShouldContainSubstring, "display: unknown display sink")
	test.That(t, err.Error(), test.ShouldContainSubstring, `log pattern "*"`)
}
