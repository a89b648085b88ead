package pose

import (
	"image"
	"math"

	"go.viam.com/skeletal/rimage"
)

// measureRadius is how far around a keypoint depth samples are pooled.
const measureRadius = 2

// Measure fills in DistanceMM for every keypoint scoring at least threshold, using the median of
// the non-zero distances in a small window around it. Keypoints outside the map, or whose window
// holds no reading, are left unmeasured.
func Measure(people []Person, distance *rimage.DepthMap, threshold float64) {
	if distance == nil || !distance.HasData() {
		return
	}
	bounds := distance.Bounds()
	for i := range people {
		for j := range people[i].Keypoints {
			kp := &people[i].Keypoints[j]
			kp.DistanceMM = 0
			if kp.Score < threshold {
				continue
			}
			p := kp.Point()
			if !p.In(bounds) {
				continue
			}
			window := image.Rect(p.X-measureRadius, p.Y-measureRadius, p.X+measureRadius+1, p.Y+measureRadius+1)
			stats := distance.Stats(window)
			if stats.Count == 0 {
				continue
			}
			kp.DistanceMM = uint16(math.Round(stats.Median))
		}
	}
}
