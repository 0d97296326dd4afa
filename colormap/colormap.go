// Package colormap maps 8-bit density samples to colors. Alpha encodes opacity.
package colormap

import (
	"fmt"
	"sort"

	"github.com/echoflaresat/ctscan/colors"
)

// Map is a density to color lookup.
type Map interface {
	At(value byte) colors.Color4
}

// Func adapts a plain function to Map.
type Func func(value byte) colors.Color4

func (f Func) At(value byte) colors.Color4 { return f(value) }

// Table is a fully precomputed lookup, one entry per density value.
type Table [256]colors.Color4

func (t *Table) At(value byte) colors.Color4 { return t[value] }

// Stop anchors a ramp: densities equal to Value map to Color.
type Stop struct {
	Value byte
	Color colors.Color4
}

// NewRamp builds a table that interpolates linearly between stops. Values
// below the first stop take the first color, values above the last stop take
// the last color.
func NewRamp(stops ...Stop) (*Table, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("colormap: ramp needs at least one stop")
	}
	sorted := append([]Stop(nil), stops...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Value == sorted[i-1].Value {
			return nil, fmt.Errorf("colormap: duplicate stop at %d", sorted[i].Value)
		}
	}

	var t Table
	k := 0
	for v := 0; v < 256; v++ {
		for k < len(sorted)-1 && v > int(sorted[k+1].Value) {
			k++
		}
		lo := sorted[k]
		switch {
		case v <= int(lo.Value):
			t[v] = lo.Color
		case k == len(sorted)-1:
			t[v] = lo.Color
		default:
			hi := sorted[k+1]
			f := float64(v-int(lo.Value)) / float64(int(hi.Value)-int(lo.Value))
			t[v] = lo.Color.Mix(hi.Color, f)
		}
	}
	return &t, nil
}

// Default returns a CT-style ramp: air is transparent, soft tissue is a faint
// red and bone is opaque white.
func Default() *Table {
	t, err := NewRamp(
		Stop{Value: 0, Color: colors.New(0, 0, 0, 0)},
		Stop{Value: 40, Color: colors.New(0, 0, 0, 0)},
		Stop{Value: 80, Color: colors.New(0.8, 0.3, 0.25, 0.05)},
		Stop{Value: 140, Color: colors.New(0.9, 0.75, 0.6, 0.6)},
		Stop{Value: 255, Color: colors.New(1, 1, 1, 1)},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Threshold returns a map that is transparent below cutoff and c at or above it.
func Threshold(cutoff byte, c colors.Color4) Map {
	return Func(func(v byte) colors.Color4 {
		if v < cutoff {
			return colors.Color4{}
		}
		return c
	})
}
