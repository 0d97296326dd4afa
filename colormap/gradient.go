package colormap

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG format with image.Decode
	_ "image/png"  // register PNG format with image.Decode
	"io"
	"os"

	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/tiff"
)

// LoadGradient reads a gradient strip image and samples its first row into a
// 256-entry table: density 0 maps to the leftmost pixel, 255 to the rightmost.
// TIFF is tried first, then the registered stdlib codecs.
func LoadGradient(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := decodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("colormap %s: %w", path, err)
	}
	return FromImage(img)
}

func decodeImage(f io.ReadSeeker) (image.Image, error) {
	img, err := tiff.Decode(f)
	if err == nil {
		return img, nil
	}

	// fallback to image codecs
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err = image.Decode(f)
	return img, err
}

// FromImage samples the first row of img into a table.
func FromImage(img image.Image) (*Table, error) {
	b := img.Bounds()
	w := b.Dx()
	if w == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("colormap: empty gradient image")
	}

	var t Table
	for v := 0; v < 256; v++ {
		x := b.Min.X
		if w > 1 {
			x += v * (w - 1) / 255
		}
		t[v] = colors.FromStandardColor(img.At(x, b.Min.Y))
	}
	return &t, nil
}
