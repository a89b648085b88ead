package pose

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

type noopEstimator struct{}

// NewNoopEstimator returns an estimator that never finds anyone.
func NewNoopEstimator() Estimator {
	return noopEstimator{}
}

func (noopEstimator) Estimate(ctx context.Context, img image.Image) ([]Person, error) {
	return nil, ctx.Err()
}

func (noopEstimator) Close(ctx context.Context) error {
	return nil
}

// StaticEstimator returns the same people for every image.
type StaticEstimator struct {
	people []Person
	calls  int
}

// NewStaticEstimator returns an estimator that always reports a copy of people.
func NewStaticEstimator(people []Person) *StaticEstimator {
	return &StaticEstimator{people: people}
}

// Estimate returns a copy of the configured people.
func (se *StaticEstimator) Estimate(ctx context.Context, img image.Image) ([]Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	se.calls++
	return append([]Person(nil), se.people...), nil
}

// Calls returns how many times Estimate was called.
func (se *StaticEstimator) Calls() int {
	return se.calls
}

// Close does nothing.
func (se *StaticEstimator) Close(ctx context.Context) error {
	return nil
}

// standing holds the keypoints of an upright person facing the camera, as fractions of the image
// size.
var standing = [NumKeypoints][2]float64{
	Nose:          {0.50, 0.22},
	LeftEye:       {0.52, 0.20},
	RightEye:      {0.48, 0.20},
	LeftEar:       {0.55, 0.21},
	RightEar:      {0.45, 0.21},
	LeftShoulder:  {0.60, 0.32},
	RightShoulder: {0.40, 0.32},
	LeftElbow:     {0.64, 0.46},
	RightElbow:    {0.36, 0.46},
	LeftWrist:     {0.66, 0.58},
	RightWrist:    {0.34, 0.58},
	LeftHip:       {0.56, 0.60},
	RightHip:      {0.44, 0.60},
	LeftKnee:      {0.57, 0.76},
	RightKnee:     {0.43, 0.76},
	LeftAnkle:     {0.57, 0.92},
	RightAnkle:    {0.43, 0.92},
}

// A BlobEstimator runs a model on a prepared input tensor and reports keypoints in the tensor's
// pixel coordinates.
type BlobEstimator interface {
	EstimateBlob(ctx context.Context, blob *tensor.Dense) ([]Person, error)
	Close(ctx context.Context) error
}

type blobAdapter struct {
	model BlobEstimator
	input InputConfig
}

// FromBlobEstimator returns an Estimator that prepares every image with PrepareInput and maps the
// model's keypoints back onto the image.
func FromBlobEstimator(model BlobEstimator, input InputConfig) Estimator {
	return &blobAdapter{model: model, input: input}
}

func (ba *blobAdapter) Estimate(ctx context.Context, img image.Image) ([]Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}
	blob, err := PrepareInput(img, ba.input)
	if err != nil {
		return nil, err
	}
	people, err := ba.model.EstimateBlob(ctx, blob)
	if err != nil {
		return nil, err
	}
	sx := float64(bounds.Dx()) / float64(ba.input.Width)
	sy := float64(bounds.Dy()) / float64(ba.input.Height)
	for i := range people {
		for j := range people[i].Keypoints {
			kp := &people[i].Keypoints[j]
			kp.X = float64(bounds.Min.X) + kp.X*sx
			kp.Y = float64(bounds.Min.Y) + kp.Y*sy
		}
	}
	return people, nil
}

func (ba *blobAdapter) Close(ctx context.Context) error {
	return ba.model.Close(ctx)
}

type templateModel struct{}

// NewTemplateEstimator returns an estimator that reports one upright person filling the image.
// It stands in for a real model when running the pipeline end to end.
func NewTemplateEstimator(input InputConfig) Estimator {
	return FromBlobEstimator(templateModel{}, input)
}

func (templateModel) EstimateBlob(ctx context.Context, blob *tensor.Dense) ([]Person, error) {
	shape := blob.Shape()
	if len(shape) != 4 {
		return nil, errors.Errorf("expected a 1x3xHxW blob, got shape %v", shape)
	}
	height, width := float64(shape[2]), float64(shape[3])
	var person Person
	for id, frac := range standing {
		person.Keypoints[id] = Keypoint{X: frac[0] * width, Y: frac[1] * height, Score: 1}
	}
	person.Score = 1
	return []Person{person}, nil
}

func (templateModel) Close(ctx context.Context) error {
	return nil
}
