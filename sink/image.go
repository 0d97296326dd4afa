// Package sink collects rendered pixels and persists them to files or S3.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/echoflaresat/ctscan/colors"
	"github.com/nfnt/resize"
)

// Image is an in-memory RGBA frame. Set is safe for concurrent use as long as
// callers write distinct pixels.
type Image struct {
	img *image.NRGBA

	// Uploader handles s3:// targets. Nil means such targets are rejected.
	Uploader Uploader
	// PreviewSize, if positive, makes Store also write a copy downscaled to
	// fit in PreviewSize×PreviewSize next to the target.
	PreviewSize uint
	// JPEGQuality applies to .jpg/.jpeg targets; 0 keeps the encoder default.
	JPEGQuality int
}

func New(width, height int) *Image {
	return &Image{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage wraps an existing frame.
func FromImage(img *image.NRGBA) *Image {
	return &Image{img: img}
}

func (s *Image) Set(x, y int, c colors.Color4) {
	s.img.SetNRGBA(x, y, c.ToNRGBA())
}

// At returns the stored pixel.
func (s *Image) At(x, y int) colors.Color4 {
	return colors.FromStandardColor(s.img.NRGBAAt(x, y))
}

func (s *Image) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Image exposes the underlying frame.
func (s *Image) Image() *image.NRGBA {
	return s.img
}

// Store persists the frame to target: a local path whose extension selects
// the encoding (png, jpg, gif, tif, bmp), or s3://bucket/key.
func (s *Image) Store(ctx context.Context, target string) error {
	if err := s.store(ctx, target, s.img); err != nil {
		return err
	}
	if s.PreviewSize == 0 {
		return nil
	}
	preview := resize.Thumbnail(s.PreviewSize, s.PreviewSize, s.img, resize.Bilinear)
	return s.store(ctx, PreviewPath(target), preview)
}

func (s *Image) store(ctx context.Context, target string, img image.Image) error {
	format, err := imaging.FormatFromFilename(target)
	if err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}

	if strings.HasPrefix(target, "s3://") {
		bucket, key, ok := ParseS3Target(target)
		if !ok {
			return fmt.Errorf("%s: expected s3://bucket/key", target)
		}
		if s.Uploader == nil {
			return fmt.Errorf("%s: no S3 uploader configured", target)
		}
		var buf bytes.Buffer
		if err := s.encode(&buf, img, format); err != nil {
			return err
		}
		return s.Uploader.Upload(ctx, bucket, key, contentType(format), buf.Bytes())
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if err := s.encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", target, err)
	}
	return f.Close()
}

func (s *Image) encode(w io.Writer, img image.Image, format imaging.Format) error {
	var opts []imaging.EncodeOption
	if format == imaging.JPEG && s.JPEGQuality > 0 {
		opts = append(opts, imaging.JPEGQuality(s.JPEGQuality))
	}
	return imaging.Encode(w, img, format, opts...)
}

// PreviewPath returns the name used for the downscaled copy of target:
// "out/render.png" becomes "out/render.preview.png".
func PreviewPath(target string) string {
	ext := filepath.Ext(target)
	return strings.TrimSuffix(target, ext) + ".preview" + ext
}

func contentType(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}
