package pose

import (
	"context"
	"image"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/rimage"
)

func TestKeypointNames(t *testing.T) {
	test.That(t, Nose.String(), test.ShouldEqual, "nose")
	test.That(t, RightAnkle.String(), test.ShouldEqual, "right_ankle")
	test.That(t, KeypointID(NumKeypoints).String(), test.ShouldEqual, "unknown")
	test.That(t, NumKeypoints, test.ShouldEqual, 17)

	for _, limb := range Limbs {
		test.That(t, limb[0], test.ShouldNotEqual, limb[1])
		test.That(t, int(limb[0]), test.ShouldBeLessThan, NumKeypoints)
		test.That(t, int(limb[1]), test.ShouldBeLessThan, NumKeypoints)
	}
}

func TestEstimators(t *testing.T) {
	ctx := context.Background()
	img := rimage.NewImage(100, 200)

	people, err := NewNoopEstimator().Estimate(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, people, test.ShouldBeEmpty)

	people, err = NewTemplateEstimator(DefaultInputConfig()).Estimate(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, people, test.ShouldHaveLength, 1)
	nose := people[0].Keypoint(Nose)
	test.That(t, nose.X, test.ShouldAlmostEqual, 50.0)
	test.That(t, nose.Y, test.ShouldAlmostEqual, 44.0)
	for _, kp := range people[0].Keypoints {
		test.That(t, kp.Point().In(img.Bounds()), test.ShouldBeTrue)
	}

	static := NewStaticEstimator(people)
	got, err := static.Estimate(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, people)
	got[0].Score = 0
	again, err := static.Estimate(ctx, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again[0].Score, test.ShouldEqual, 1.0)
	test.That(t, static.Calls(), test.ShouldEqual, 2)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = static.Estimate(cancelled, img)
	test.That(t, err, test.ShouldEqual, context.Canceled)
	_, err = NewTemplateEstimator(DefaultInputConfig()).Estimate(cancelled, img)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)

	est, err := New(DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est, test.ShouldResemble, NewNoopEstimator())

	cfg := DefaultConfig()
	cfg.Estimator = "Template"
	est, err = New(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est, test.ShouldResemble, NewTemplateEstimator(DefaultInputConfig()))
	test.That(t, est.Close(context.Background()), test.ShouldBeNil)

	cfg.Estimator = "openpose"
	_, err = New(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)

	cfg = DefaultConfig()
	cfg.Threshold = 1.5
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = DefaultConfig()
	cfg.Input.Width = 0
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestMeasure(t *testing.T) {
	dm := rimage.NewEmptyDepthMap(20, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			dm.Set(x, y, uint16(1000+10*x))
		}
	}
	// a hole with no readings around (15, 15)
	for y := 12; y < 20; y++ {
		for x := 12; x < 20; x++ {
			dm.Set(x, y, 0)
		}
	}

	var person Person
	person.Keypoints[Nose] = Keypoint{X: 5.5, Y: 5.5, Score: 0.9}
	person.Keypoints[LeftEye] = Keypoint{X: 5, Y: 5, Score: 0.1, DistanceMM: 42}
	person.Keypoints[RightEye] = Keypoint{X: 40, Y: 5, Score: 0.9}
	person.Keypoints[LeftEar] = Keypoint{X: 15, Y: 15, Score: 0.9}
	person.Keypoints[RightEar] = Keypoint{X: 0, Y: 0, Score: 0.9}
	people := []Person{person}

	Measure(people, dm, 0.2)
	measured := people[0]
	// the window around column 5 spans columns 3..7, whose median is column 5
	test.That(t, measured.Keypoint(Nose).DistanceMM, test.ShouldEqual, uint16(1050))
	test.That(t, measured.Keypoint(LeftEye).DistanceMM, test.ShouldEqual, uint16(0))
	test.That(t, measured.Keypoint(RightEye).DistanceMM, test.ShouldEqual, uint16(0))
	test.That(t, measured.Keypoint(LeftEar).DistanceMM, test.ShouldEqual, uint16(0))
	// the window is clipped at the border to columns 0..2
	test.That(t, measured.Keypoint(RightEar).DistanceMM, test.ShouldEqual, uint16(1010))
	test.That(t, measured.DistanceMM(), test.ShouldEqual, uint16(1050))

	Measure(people, nil, 0.2)
	test.That(t, people[0].Keypoint(Nose).DistanceMM, test.ShouldEqual, uint16(1050))
	test.That(t, (&Person{}).DistanceMM(), test.ShouldEqual, uint16(0))
}

func TestPrepareInput(t *testing.T) {
	img := rimage.NewImage(8, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetXY(x, y, rimage.NewColor(255, 0, 127))
		}
	}
	cfg := InputConfig{Width: 4, Height: 2, ScaleFactor: 1.0 / 127.5, Mean: 127.5}

	blob, err := PrepareInput(img, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int(blob.Shape()), test.ShouldResemble, []int{1, 3, 2, 4})

	data, ok := blob.Data().([]float32)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, data, test.ShouldHaveLength, 24)
	// planes are R, G, B in turn
	test.That(t, data[0], test.ShouldAlmostEqual, float32(1), 1e-6)
	test.That(t, data[8], test.ShouldAlmostEqual, float32(-1), 1e-6)
	test.That(t, data[23], test.ShouldAlmostEqual, float32(-0.5/127.5), 1e-6)

	_, err = PrepareInput(img, InputConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = PrepareInput(rimage.NewImage(0, 0), DefaultInputConfig())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, DefaultInputConfig().AspectRatio(), test.ShouldAlmostEqual, 1.0)
}

func TestDrawSkeleton(t *testing.T) {
	img := rimage.NewImage(100, 100)
	people, err := NewTemplateEstimator(DefaultInputConfig()).Estimate(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)

	drawn := DrawSkeleton(img, people, 0.2)
	test.That(t, drawn.Bounds(), test.ShouldResemble, image.Rect(0, 0, 100, 100))

	hip := people[0].Keypoint(LeftHip).Point()
	test.That(t, rimage.NewColorFromColor(drawn.At(hip.X, hip.Y)), test.ShouldNotResemble, rimage.NewGray(0))
	test.That(t, rimage.NewColorFromColor(drawn.At(2, 2)), test.ShouldResemble, rimage.NewGray(0))
	// the source is left untouched
	test.That(t, img.GetXY(hip.X, hip.Y), test.ShouldResemble, rimage.NewGray(0))

	// the person is boxed just outside their keypoints
	box, ok := people[0].Bounds(0.2)
	test.That(t, ok, test.ShouldBeTrue)
	edge := image.Pt(box.Min.X-2*jointRadius, (box.Min.Y+box.Max.Y)/2)
	test.That(t, rimage.NewColorFromColor(drawn.At(edge.X, edge.Y)), test.ShouldResemble, PersonColor(0))
	test.That(t, PersonColor(0), test.ShouldResemble, rimage.NewColor(255, 51, 51))
	test.That(t, PersonColor(1), test.ShouldNotResemble, PersonColor(0))

	people[0].Keypoints[LeftHip].Score = 0
	hidden := DrawSkeleton(img, people, 0.2)
	test.That(t, rimage.NewColorFromColor(hidden.At(hip.X+2, hip.Y+2)), test.ShouldResemble, rimage.NewGray(0))

	people[0].Keypoints[Nose].DistanceMM = 1520
	labeled := DrawSkeleton(img, people, 0.2)
	test.That(t, labeled.Pix, test.ShouldNotResemble, hidden.Pix)
}

func TestPersonBounds(t *testing.T) {
	var p Person
	_, ok := p.Bounds(0.5)
	test.That(t, ok, test.ShouldBeFalse)

	p.Keypoints[Nose] = Keypoint{X: 10, Y: 4, Score: 0.9}
	p.Keypoints[LeftAnkle] = Keypoint{X: 14, Y: 30, Score: 0.8}
	p.Keypoints[RightAnkle] = Keypoint{X: 2, Y: 40, Score: 0.1}
	box, ok := p.Bounds(0.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, box, test.ShouldResemble, image.Rect(10, 4, 15, 31))

	// unset keypoints sit at the origin with a zero score
	box, ok = p.Bounds(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, box, test.ShouldResemble, image.Rect(0, 0, 15, 41))
}

type centerModel struct {
	shapes [][]int
	err    error
}

func (cm *centerModel) EstimateBlob(ctx context.Context, blob *tensor.Dense) ([]Person, error) {
	cm.shapes = append(cm.shapes, []int(blob.Shape()))
	if cm.err != nil {
		return nil, cm.err
	}
	var person Person
	person.Keypoints[Nose] = Keypoint{X: 2, Y: 1, Score: 0.5}
	return []Person{person}, nil
}

func (cm *centerModel) Close(ctx context.Context) error {
	return nil
}

func TestFromBlobEstimator(t *testing.T) {
	model := &centerModel{}
	est := FromBlobEstimator(model, InputConfig{Width: 4, Height: 2, ScaleFactor: 1, Mean: 0})

	img := image.NewRGBA(image.Rect(10, 20, 50, 40))
	people, err := est.Estimate(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.shapes, test.ShouldResemble, [][]int{{1, 3, 2, 4}})
	// blob (2, 1) is the center of a 40x20 image starting at (10, 20)
	test.That(t, people[0].Keypoint(Nose).X, test.ShouldAlmostEqual, 30.0)
	test.That(t, people[0].Keypoint(Nose).Y, test.ShouldAlmostEqual, 30.0)
	test.That(t, people[0].Keypoint(Nose).Score, test.ShouldAlmostEqual, 0.5)

	model.err = errors.New("model crashed")
	_, err = est.Estimate(context.Background(), img)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, est.Close(context.Background()), test.ShouldBeNil)

	_, err = templateModel{}.EstimateBlob(context.Background(), tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float32)))
	test.That(t, err, test.ShouldNotBeNil)
}
