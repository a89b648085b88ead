// Package main is a command that renders the frames of a recording into images.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/skeletal/components/camera/replay"
	"go.viam.com/skeletal/config"
	"go.viam.com/skeletal/display"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/rimage"
	"go.viam.com/skeletal/tof"
)

// HistogramFile is written into the output directory when a histogram is requested.
const HistogramFile = "depth-histogram.png"

// histogramBins is the number of equal bins between zero and the normalizer's max range.
const histogramBins = 50

func main() {
	app := &cli.App{
		Name:      "depthview",
		Usage:     "render the frames of a recording into PNGs",
		ArgsUsage: "<recording> <outdir>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max",
				Usage: "render at most `N` frames",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "scale images to `PIXELS` wide",
			},
			&cli.StringFlag{
				Name:  "settings",
				Usage: "read normalizer settings from a JSON5 `FILE`",
			},
			&cli.BoolFlag{
				Name:  "histogram",
				Usage: "also plot the distribution of measured distances",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("need two args <recording> <outdir>")
			}
			cfg := config.Default()
			if path := c.String("settings"); path != "" {
				var err error
				if cfg, err = config.Read(path); err != nil {
					return err
				}
			}
			logger := logging.NewLogger("depthview")
			summary, err := Render(c.Context, Options{
				Recording:  c.Args().Get(0),
				OutputDir:  c.Args().Get(1),
				MaxFrames:  c.Int("max"),
				Width:      c.Int("width"),
				Histogram:  c.Bool("histogram"),
				Normalizer: cfg.Normalizer,
			}, logger)
			if err != nil {
				return err
			}
			writeSummary(c.App.Writer, summary)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Options says what to render and where.
type Options struct {
	Recording  string
	OutputDir  string
	MaxFrames  int
	Width      int
	Histogram  bool
	Normalizer tof.Config
}

// FrameStats describes one rendered frame.
type FrameStats struct {
	Seq   uint64
	Crop  image.Rectangle
	Depth rimage.DepthStats
	MinMM uint16
	MaxMM uint16
}

// Summary describes a finished render.
type Summary struct {
	RecordingID string
	SizeBytes   int64
	Frames      int
	Skipped     int
	Stats       []FrameStats
}

func writeSummary(w io.Writer, summary Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Seq", "Crop", "Min mm", "Median mm", "Max mm"})
	for _, fs := range summary.Stats {
		t.AppendRow(table.Row{fs.Seq, fs.Crop.String(), fs.MinMM, fmt.Sprintf("%.0f", fs.Depth.Median), fs.MaxMM})
	}
	t.AppendFooter(table.Row{
		"recording", summary.RecordingID,
		units.HumanSize(float64(summary.SizeBytes)),
		fmt.Sprintf("%d frames", summary.Frames),
		fmt.Sprintf("%d skipped", summary.Skipped),
	})
	t.Render()
}

// Render normalizes every frame in the recording and writes the composite and the colorized
// depth of each. Frames that cannot be normalized are skipped.
func Render(ctx context.Context, opts Options, logger logging.Logger) (_ Summary, err error) {
	if err := opts.Normalizer.Validate(); err != nil {
		return Summary{}, err
	}
	f, err := os.Open(opts.Recording)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	reader, err := replay.NewReader(f)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "cannot read %q", opts.Recording)
	}
	defer reader.Close()

	sink, err := display.NewFileSink(opts.OutputDir, opts.MaxFrames, opts.Width, logger)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		err = multierr.Combine(err, sink.Close())
	}()

	summary := Summary{RecordingID: reader.ID().String()}
	if info, err := f.Stat(); err == nil {
		summary.SizeBytes = info.Size()
	}
	var hist *distanceHistogram
	if opts.Histogram {
		hist = newDistanceHistogram(opts.Normalizer.MaxRange, histogramBins)
	}
	for !sink.StopRequested() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, errors.Wrapf(err, "frame %d", summary.Frames+summary.Skipped)
		}
		res, err := tof.Normalize(opts.Normalizer, frame)
		if err != nil {
			logger.Warnw("skipping frame", "seq", frame.Seq, "error", err)
			summary.Skipped++
			continue
		}
		if err := sink.Show(ctx, display.WindowMain, res.Composite); err != nil {
			return summary, err
		}
		if err := sink.Show(ctx, display.WindowDepth, res.DepthColor); err != nil {
			return summary, err
		}
		summary.Frames++
		minMM, maxMM := res.Distance.MinMax()
		summary.Stats = append(summary.Stats, FrameStats{
			Seq:   frame.Seq,
			Crop:  res.Crop,
			Depth: res.Distance.Stats(res.Distance.Bounds()),
			MinMM: minMM,
			MaxMM: maxMM,
		})
		if hist != nil {
			hist.add(res.Distance)
		}
	}

	if hist != nil {
		if err := hist.save(filepath.Join(opts.OutputDir, HistogramFile)); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// distanceHistogram counts measured distances into fixed bins as frames arrive. Readings at or
// beyond the top of the range land in the last bin and zero readings are not counted.
type distanceHistogram struct {
	width  float64
	counts []float64
	total  int
}

func newDistanceHistogram(maxMM, bins int) *distanceHistogram {
	return &distanceHistogram{
		width:  float64(maxMM) / float64(bins),
		counts: make([]float64, bins),
	}
}

func (h *distanceHistogram) add(dm *rimage.DepthMap) {
	last := len(h.counts) - 1
	for _, z := range dm.Data() {
		if z == 0 {
			continue
		}
		bin := int(float64(z) / h.width)
		if bin > last {
			bin = last
		}
		h.counts[bin]++
		h.total++
	}
}

func (h *distanceHistogram) bins() []plotter.HistogramBin {
	bins := make([]plotter.HistogramBin, len(h.counts))
	for i, n := range h.counts {
		bins[i] = plotter.HistogramBin{
			Min:    float64(i) * h.width,
			Max:    float64(i+1) * h.width,
			Weight: n,
		}
	}
	return bins
}

func (h *distanceHistogram) save(path string) error {
	if h.total == 0 {
		return errors.New("no distance readings to plot")
	}
	p := plot.New()
	p.Title.Text = "Measured distance"
	p.X.Label.Text = "mm"
	p.Y.Label.Text = "samples"

	p.Add(&plotter.Histogram{
		Bins:      h.bins(),
		Width:     h.width,
		FillColor: color.Gray{Y: 128},
		LineStyle: plotter.DefaultLineStyle,
	})
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
