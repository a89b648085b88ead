package pose

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"go.viam.com/skeletal/rimage"
)

var (
	limbColor     = color.RGBA{0, 255, 0, 255}
	jointColor    = color.RGBA{255, 255, 255, 255}
	distanceColor = color.RGBA{255, 255, 0, 255}
)

const (
	limbWidth   = 3
	jointRadius = 3
	labelSize   = 12
	boxWidth    = 2
	// boxHueStep spaces the box colors of successive people around the hue circle.
	boxHueStep = 137.5
)

// DrawSkeleton returns a copy of img with the limbs and joints of every person drawn on it. Only
// keypoints scoring at least threshold are drawn, and a limb only when both its ends are. A
// measured person is labeled with their distance in meters next to the head, and every measured
// joint gets a crosshair. Each person is boxed in a color of their own.
func DrawSkeleton(img image.Image, people []Person, threshold float64) *image.RGBA {
	dc := gg.NewContextForRGBA(rimage.CloneToRGBA(img))

	for i := range people {
		person := &people[i]
		if box, ok := person.Bounds(threshold); ok {
			box = box.Inset(-2 * jointRadius).Intersect(dc.Image().Bounds())
			rimage.DrawRectangleEmpty(dc, box, PersonColor(i), boxWidth)
		}

		dc.SetColor(limbColor)
		dc.SetLineWidth(limbWidth)
		for _, limb := range Limbs {
			from, to := person.Keypoint(limb[0]), person.Keypoint(limb[1])
			if from.Score < threshold || to.Score < threshold {
				continue
			}
			dc.DrawLine(from.X, from.Y, to.X, to.Y)
			dc.Stroke()
		}

		dc.SetColor(jointColor)
		for _, kp := range person.Keypoints {
			if kp.Score < threshold {
				continue
			}
			dc.DrawCircle(kp.X, kp.Y, jointRadius)
			dc.Fill()
			if kp.DistanceMM > 0 {
				rimage.DrawCrosshair(dc, kp.Point(), distanceColor, 2*jointRadius)
			}
		}

		if dist := person.DistanceMM(); dist > 0 {
			head := person.Keypoint(Nose).Point()
			label := fmt.Sprintf("%.2f m", float64(dist)/1000)
			rimage.DrawString(dc, label, head.Add(image.Pt(2*jointRadius, -labelSize)), distanceColor, labelSize)
		}
	}

	rgba, ok := dc.Image().(*image.RGBA)
	if !ok {
		return rimage.CloneToRGBA(dc.Image())
	}
	return rgba
}

// PersonColor returns the box color of the i-th person in a frame.
func PersonColor(i int) rimage.Color {
	return rimage.NewColorFromHSV(math.Mod(float64(i)*boxHueStep, 360), 0.8, 1)
}
