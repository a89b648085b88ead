package rimage

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Colormap is a lookup table from an 8-bit intensity to a false color.
type Colormap struct {
	name  string
	table [256]Color
}

type colormapAnchor struct {
	at    int
	color Color
}

// newColormap builds a table by blending linearly in RGB between anchors. The first anchor must
// be at 0 and the last at 255.
func newColormap(name string, anchors ...colormapAnchor) *Colormap {
	cm := &Colormap{name: name}
	for i := 0; i < len(anchors)-1; i++ {
		from, to := anchors[i], anchors[i+1]
		span := float64(to.at - from.at)
		for v := from.at; v <= to.at; v++ {
			t := float64(v-from.at) / span
			cm.table[v] = newColorFromColorful(from.color.toColorful().BlendRgb(to.color.toColorful(), t))
		}
	}
	return cm
}

// Name returns the name the colormap is registered under.
func (cm *Colormap) Name() string {
	return cm.name
}

// Map returns the color for intensity v.
func (cm *Colormap) Map(v uint8) Color {
	return cm.table[v]
}

var (
	// Rainbow runs red, yellow, green, cyan, blue to violet as intensity grows, so near objects
	// are warm and far objects are cold.
	Rainbow = newColormap("rainbow",
		colormapAnchor{0, NewColor(255, 0, 0)},
		colormapAnchor{51, NewColor(255, 255, 0)},
		colormapAnchor{102, NewColor(0, 255, 0)},
		colormapAnchor{153, NewColor(0, 255, 255)},
		colormapAnchor{204, NewColor(0, 0, 255)},
		colormapAnchor{255, NewColor(127, 0, 255)},
	)

	// Jet runs dark blue through cyan and yellow to dark red.
	Jet = newColormap("jet",
		colormapAnchor{0, NewColor(0, 0, 143)},
		colormapAnchor{32, NewColor(0, 0, 255)},
		colormapAnchor{96, NewColor(0, 255, 255)},
		colormapAnchor{160, NewColor(255, 255, 0)},
		colormapAnchor{224, NewColor(255, 0, 0)},
		colormapAnchor{255, NewColor(128, 0, 0)},
	)

	// Gray maps intensity to the same gray level.
	Gray = newColormap("gray",
		colormapAnchor{0, NewGray(0)},
		colormapAnchor{255, NewGray(255)},
	)

	colormaps = map[string]*Colormap{
		Rainbow.name: Rainbow,
		Jet.name:     Jet,
		Gray.name:    Gray,
	}
)

// ColormapByName looks up a colormap case-insensitively.
func ColormapByName(name string) (*Colormap, error) {
	cm, ok := colormaps[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown colormap %q, expected one of %v", name, ColormapNames())
	}
	return cm, nil
}

// ColormapNames returns the names of all known colormaps, sorted.
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
