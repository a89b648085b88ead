// Package pose defines people detected in an image and the estimators that find them.
package pose

import (
	"context"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/skeletal/logging"
)

// KeypointID names one of the COCO body keypoints.
type KeypointID int

// The COCO body keypoints, in model output order.
const (
	Nose KeypointID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	NumKeypoints = int(RightAnkle) + 1
)

var keypointNames = [NumKeypoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow", "left_wrist", "right_wrist",
	"left_hip", "right_hip", "left_knee", "right_knee", "left_ankle", "right_ankle",
}

func (id KeypointID) String() string {
	if id < 0 || int(id) >= NumKeypoints {
		return "unknown"
	}
	return keypointNames[id]
}

// Limbs pairs the keypoints a skeleton is drawn between.
var Limbs = [][2]KeypointID{
	{RightAnkle, RightKnee}, {RightKnee, RightHip}, {LeftAnkle, LeftKnee}, {LeftKnee, LeftHip},
	{RightHip, LeftHip}, {LeftShoulder, RightHip}, {RightShoulder, LeftHip},
	{LeftShoulder, RightShoulder}, {LeftShoulder, LeftElbow}, {RightShoulder, RightElbow},
	{LeftElbow, LeftWrist}, {RightElbow, RightWrist},
	{LeftEye, RightEye}, {Nose, LeftEye}, {Nose, RightEye}, {LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftEar, LeftShoulder}, {RightEar, RightShoulder},
}

// Keypoint is one detected body point in image pixel coordinates.
type Keypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
	// DistanceMM is filled in by Measure; zero means unmeasured.
	DistanceMM uint16 `json:"distance_mm,omitempty"`
}

// Point returns the pixel the keypoint falls in.
func (k Keypoint) Point() image.Point {
	return image.Pt(int(math.Floor(k.X)), int(math.Floor(k.Y)))
}

// Person is one detected body.
type Person struct {
	Keypoints [NumKeypoints]Keypoint `json:"keypoints"`
	Score     float64                `json:"score"`
}

// Keypoint returns the keypoint with the given id.
func (p *Person) Keypoint(id KeypointID) Keypoint {
	return p.Keypoints[id]
}

// Bounds returns the smallest rectangle holding every keypoint scoring at least threshold. It
// reports false when no keypoint does.
func (p *Person) Bounds(threshold float64) (image.Rectangle, bool) {
	var r image.Rectangle
	found := false
	for _, kp := range p.Keypoints {
		if kp.Score < threshold {
			continue
		}
		pt := kp.Point()
		cell := image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))}
		if !found {
			r, found = cell, true
			continue
		}
		r = r.Union(cell)
	}
	return r, found
}

// DistanceMM returns the median distance of the measured keypoints, or zero if none were measured.
func (p *Person) DistanceMM() uint16 {
	var dists []int
	for _, kp := range p.Keypoints {
		if kp.DistanceMM > 0 {
			dists = append(dists, int(kp.DistanceMM))
		}
	}
	if len(dists) == 0 {
		return 0
	}
	sort.Ints(dists)
	return uint16(dists[len(dists)/2])
}

// An Estimator finds people in an image.
type Estimator interface {
	Estimate(ctx context.Context, img image.Image) ([]Person, error)
	Close(ctx context.Context) error
}

// Estimator kinds selectable by name.
const (
	EstimatorNoop     = "noop"
	EstimatorTemplate = "template"
)

// Config selects an estimator and how its output is used.
type Config struct {
	Estimator string `json:"estimator"`
	// Threshold is the minimum keypoint score that is measured and drawn.
	Threshold float64     `json:"threshold"`
	Input     InputConfig `json:"input"`
}

// DefaultConfig returns a config with no estimator, a 0.2 keypoint threshold and the 300x300
// input blob used by MobileNet-style pose models.
func DefaultConfig() Config {
	return Config{
		Estimator: EstimatorNoop,
		Threshold: 0.2,
		Input:     DefaultInputConfig(),
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	switch strings.ToLower(cfg.Estimator) {
	case EstimatorNoop, EstimatorTemplate:
	default:
		return errors.Errorf("unknown pose estimator %q, expected %q or %q", cfg.Estimator, EstimatorNoop, EstimatorTemplate)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return errors.Errorf("keypoint threshold must be within [0, 1], got %v", cfg.Threshold)
	}
	return cfg.Input.Validate()
}

// New builds the estimator named in cfg.
func New(cfg Config, logger logging.Logger) (Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debugw("creating pose estimator", "estimator", cfg.Estimator)
	if strings.ToLower(cfg.Estimator) == EstimatorTemplate {
		return NewTemplateEstimator(cfg.Input), nil
	}
	return NewNoopEstimator(), nil
}
