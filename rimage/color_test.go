package rimage

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestColorConversions(t *testing.T) {
	c := NewColor(10, 200, 255)
	test.That(t, c.Hex(), test.ShouldEqual, "#0ac8ff")
	test.That(t, NewColorFromColor(c), test.ShouldResemble, c)
	test.That(t, NewColorFromColor(color.RGBA{10, 200, 255, 255}), test.ShouldResemble, c)
	test.That(t, NewColorFromColor(color.Gray{77}), test.ShouldResemble, NewGray(77))

	r, g, b, a := c.RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0x0a0a))
	test.That(t, g, test.ShouldEqual, uint32(0xc8c8))
	test.That(t, b, test.ShouldEqual, uint32(0xffff))
	test.That(t, a, test.ShouldEqual, uint32(0xffff))

	test.That(t, NewColorFromHSV(0, 1, 1), test.ShouldResemble, NewColor(255, 0, 0))
	test.That(t, NewColorFromHSV(120, 1, 1), test.ShouldResemble, NewColor(0, 255, 0))
}

func TestColormaps(t *testing.T) {
	test.That(t, Rainbow.Map(0), test.ShouldResemble, NewColor(255, 0, 0))
	test.That(t, Rainbow.Map(51), test.ShouldResemble, NewColor(255, 255, 0))
	test.That(t, Rainbow.Map(102), test.ShouldResemble, NewColor(0, 255, 0))
	test.That(t, Rainbow.Map(255), test.ShouldResemble, NewColor(127, 0, 255))
	test.That(t, Jet.Map(0), test.ShouldResemble, NewColor(0, 0, 143))
	test.That(t, Jet.Map(255), test.ShouldResemble, NewColor(128, 0, 0))

	for v := 0; v < 256; v++ {
		test.That(t, Gray.Map(uint8(v)), test.ShouldResemble, NewGray(uint8(v)))
	}

	// green rises monotonically across the first rainbow segment
	for v := 1; v <= 51; v++ {
		test.That(t, Rainbow.Map(uint8(v)).G, test.ShouldBeGreaterThanOrEqualTo, Rainbow.Map(uint8(v-1)).G)
	}

	cm, err := ColormapByName("RAINBOW")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cm, test.ShouldEqual, Rainbow)
	test.That(t, cm.Name(), test.ShouldEqual, "rainbow")

	_, err = ColormapByName("viridis")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "viridis")
	test.That(t, ColormapNames(), test.ShouldResemble, []string{"gray", "jet", "rainbow"})
}
