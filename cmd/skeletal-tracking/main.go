// Package main is the skeletal tracking demo: it reads frames from a time of flight camera, finds
// people in them and shows how far away they stand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/components/camera"
	_ "go.viam.com/skeletal/components/camera/register"
	"go.viam.com/skeletal/components/camera/replay"
	"go.viam.com/skeletal/config"
	"go.viam.com/skeletal/display"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/pose"
	"go.viam.com/skeletal/tracking"
)

const (
	flagIP        = "ip"
	flagConfig    = "config"
	flagSettings  = "settings"
	flagFake      = "fake"
	flagReplay    = "replay"
	flagLoop      = "loop"
	flagRecord    = "record"
	flagOutput    = "output"
	flagMaxFrames = "max-frames"
	flagShowDepth = "show-depth"
	flagEstimator = "estimator"
	flagDebug     = "debug"
	flagLogFile   = "log-file"
)

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:      "skeletal-tracking",
		Usage:     "track people in front of a time of flight camera",
		ArgsUsage: "[key=value ...] [camera-config.json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagIP,
				Usage: "camera `ADDRESS`",
			},
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "camera initialization `FILE`",
			},
			&cli.StringFlag{
				Name:    flagSettings,
				Aliases: []string{"s"},
				Usage:   "load application settings from a JSON5 `FILE`",
			},
			&cli.StringFlag{
				Name:  flagFake,
				Usage: "use a simulated camera of `WIDTHxHEIGHT`",
			},
			&cli.StringFlag{
				Name:  flagReplay,
				Usage: "play frames back from a recording `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagLoop,
				Usage: "loop the recording given with --replay",
			},
			&cli.StringFlag{
				Name:  flagRecord,
				Usage: "record every frame into `FILE`",
			},
			&cli.StringFlag{
				Name:  flagOutput,
				Usage: "write frames as PNGs into `DIR` instead of opening a window",
			},
			&cli.IntFlag{
				Name:  flagMaxFrames,
				Usage: "stop after `N` frames",
			},
			&cli.BoolFlag{
				Name:  flagShowDepth,
				Usage: "also show the colorized depth image",
			},
			&cli.StringFlag{
				Name:  flagEstimator,
				Usage: fmt.Sprintf("pose estimator, %q or %q", pose.EstimatorNoop, pose.EstimatorTemplate),
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotating it as it grows",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: action,
	}
}

// loadConfig builds the config from the settings file, the flags and the positional overrides,
// in that order.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagSettings); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyOverrides(c.Args().Slice()); err != nil {
		return nil, err
	}

	switch {
	case c.String(flagReplay) != "":
		cfg.Camera.URI = "file:" + c.String(flagReplay)
		if c.Bool(flagLoop) {
			cfg.Camera.URI += "?loop=true"
		}
	case c.String(flagFake) != "":
		cfg.Camera.URI = "fake:" + c.String(flagFake)
	case c.String(flagIP) != "":
		cfg.Camera.URI = "ip:" + c.String(flagIP)
	}
	if path := c.String(flagConfig); path != "" {
		cfg.Camera.ConfigPath = path
	}
	if dir := c.String(flagOutput); dir != "" {
		cfg.Display.Sink = display.SinkFile
		cfg.Display.Directory = dir
	}
	if n := c.Int(flagMaxFrames); n > 0 {
		cfg.Tracking.MaxFrames = n
	}
	if c.Bool(flagShowDepth) {
		cfg.Display.ShowDepth = true
	}
	if name := c.String(flagEstimator); name != "" {
		cfg.Pose.Estimator = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logger logging.Logger
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("skeletal")
		ctx = logging.EnableDebugMode(ctx, "")
	} else {
		logger = logging.NewLogger("skeletal")
	}
	if path := c.String(flagLogFile); path != "" {
		appender := logging.NewFileAppender(path)
		logger.AddAppender(appender)
		defer func() {
			err = multierr.Combine(err, appender.Close())
		}()
	}
	defer func() {
		//nolint:errcheck
		logger.Sync()
	}()
	if err := logging.UpdateLoggerLevels(cfg.Log, logger); err != nil {
		return err
	}
	if cfg.ConfigFilePath != "" {
		logger.Infow("loaded settings", "path", cfg.ConfigFilePath)
	}

	return display.Run(cfg.Display, logger.Sublogger("display"), func(sink display.Sink) error {
		return track(ctx, cfg, c.String(flagRecord), sink, logger)
	})
}

func track(ctx context.Context, cfg *config.Config, recordPath string, sink display.Sink, logger logging.Logger) (err error) {
	system, err := camera.OpenSystem(cfg.Camera.URI, logger.Sublogger("camera"))
	if err != nil {
		return err
	}
	session, err := camera.OpenSession(ctx, system, cfg.Camera, logger.Sublogger("camera"))
	if err != nil {
		return err
	}

	var source camera.FrameSource = session
	if recordPath != "" {
		rec, err := replay.CreateRecorder(recordPath, session.Details().FrameType)
		if err != nil {
			return multierr.Combine(err, session.Close(ctx))
		}
		logger.Infow("recording frames", "path", recordPath, "recording", rec.ID().String())
		source = replay.Tee(session, rec)
	}
	defer func() {
		err = multierr.Combine(err, source.Close(context.Background()))
	}()

	estimator, err := pose.New(cfg.Pose, logger.Sublogger("pose"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, estimator.Close(context.Background()))
	}()

	opts := []tracking.Option{tracking.WithKeypointThreshold(cfg.Pose.Threshold)}
	if cfg.Display.ShowDepth {
		opts = append(opts, tracking.WithDepthWindow())
	}
	tracker, err := tracking.New(cfg.Tracking, cfg.Normalizer, source, estimator, sink, logger.Sublogger("tracking"), opts...)
	if err != nil {
		return err
	}
	if err := tracker.Run(ctx); err != nil {
		return errors.Wrap(err, "tracking failed")
	}
	stats := tracker.Stats()
	logger.Infow("done", "frames", stats.Frames, "failures", stats.Failures)
	return nil
}
