package colormap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/echoflaresat/ctscan/colors"
)

func TestRampInterpolates(t *testing.T) {
	ramp, err := NewRamp(
		Stop{Value: 100, Color: colors.New(0, 0, 0, 0)},
		Stop{Value: 200, Color: colors.New(1, 1, 1, 1)},
	)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		v    byte
		want colors.Color4
	}{
		{0, colors.New(0, 0, 0, 0)},
		{100, colors.New(0, 0, 0, 0)},
		{150, colors.New(0.5, 0.5, 0.5, 0.5)},
		{200, colors.New(1, 1, 1, 1)},
		{255, colors.New(1, 1, 1, 1)},
	}
	for _, c := range cases {
		if got := ramp.At(c.v); got != c.want {
			t.Errorf("At(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestRampRejectsBadStops(t *testing.T) {
	if _, err := NewRamp(); err == nil {
		t.Fatal("expected error for empty ramp")
	}
	if _, err := NewRamp(Stop{Value: 3}, Stop{Value: 3}); err == nil {
		t.Fatal("expected error for duplicate stops")
	}
}

func TestDefaultAirIsTransparent(t *testing.T) {
	m := Default()
	if a := m.At(0).A; a != 0 {
		t.Fatalf("density 0 alpha = %v, want 0", a)
	}
	if a := m.At(255).A; a != 1 {
		t.Fatalf("density 255 alpha = %v, want 1", a)
	}
	prev := -1.0
	for v := 0; v < 256; v++ {
		a := m.At(byte(v)).A
		if a < prev {
			t.Fatalf("alpha decreases at %d: %v < %v", v, a, prev)
		}
		prev = a
	}
}

func TestThreshold(t *testing.T) {
	m := Threshold(10, colors.White())
	if m.At(9).A != 0 || m.At(10) != colors.White() {
		t.Fatalf("threshold map misbehaves: %v %v", m.At(9), m.At(10))
	}
}

func TestLoadGradientPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 1))
	for x := 0; x < 256; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: uint8(x), G: 0, B: 255 - uint8(x), A: uint8(x)})
	}
	path := filepath.Join(t.TempDir(), "grad.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m, err := LoadGradient(path)
	if err != nil {
		t.Fatalf("LoadGradient: %v", err)
	}
	if m.At(0).A != 0 {
		t.Fatalf("At(0) alpha = %v, want 0", m.At(0).A)
	}
	if got := m.At(255).ToNRGBA(); got != (color.NRGBA{R: 255, G: 0, B: 0, A: 255}) {
		t.Fatalf("At(255) = %v", got)
	}
}
