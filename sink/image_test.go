package sink

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/disintegration/imaging"
	"github.com/echoflaresat/ctscan/colors"
)

func checker(w, h int) *Image {
	s := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				s.Set(x, y, colors.White())
			} else {
				s.Set(x, y, colors.Black())
			}
		}
	}
	return s
}

func TestStoreByExtension(t *testing.T) {
	dir := t.TempDir()
	s := checker(4, 3)

	for _, name := range []string{"a.png", "b.jpg", "c.gif", "d.tif", "e.bmp", "nested/dir/f.png"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := s.Store(context.Background(), path); err != nil {
				t.Fatalf("Store: %v", err)
			}
			img, err := imaging.Open(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if img.Bounds() != image.Rect(0, 0, 4, 3) {
				t.Fatalf("bounds = %v", img.Bounds())
			}
		})
	}
}

func TestStorePNGIsLossless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.png")
	s := New(2, 1)
	s.Set(0, 0, colors.New(0.2, 0.2, 0.2, 1))
	s.Set(1, 0, colors.New(1, 0, 0, 1))
	if err := s.Store(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 51 || g>>8 != 51 || b>>8 != 51 || a>>8 != 255 {
		t.Fatalf("pixel = %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestStoreUnknownExtension(t *testing.T) {
	err := New(1, 1).Store(context.Background(), filepath.Join(t.TempDir(), "x.webp"))
	if !errors.Is(err, imaging.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestStorePreview(t *testing.T) {
	dir := t.TempDir()
	s := checker(40, 20)
	s.PreviewSize = 10
	path := filepath.Join(dir, "r.png")
	if err := s.Store(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(PreviewPath(path))
	if err != nil {
		t.Fatalf("preview missing: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 5 {
		t.Fatalf("preview bounds = %v", img.Bounds())
	}
}

func TestPreviewPath(t *testing.T) {
	if got := PreviewPath("out/render.png"); got != "out/render.preview.png" {
		t.Fatalf("got %q", got)
	}
	if got := PreviewPath("s3://b/k.jpg"); got != "s3://b/k.preview.jpg" {
		t.Fatalf("got %q", got)
	}
}

func TestParseS3Target(t *testing.T) {
	cases := []struct {
		in          string
		bucket, key string
		ok          bool
	}{
		{"s3://renders/a/b.png", "renders", "a/b.png", true},
		{"s3://renders", "", "", false},
		{"s3:///k.png", "", "", false},
		{"renders/a.png", "", "", false},
	}
	for _, c := range cases {
		b, k, ok := ParseS3Target(c.in)
		if b != c.bucket || k != c.key || ok != c.ok {
			t.Errorf("ParseS3Target(%q) = %q %q %v", c.in, b, k, ok)
		}
	}
}

type fakeS3 struct {
	s3iface.S3API
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestStoreS3(t *testing.T) {
	fake := &fakeS3{}
	s := checker(8, 8)
	s.Uploader = NewS3UploaderWithClient(fake)
	s.PreviewSize = 4

	if err := s.Store(context.Background(), "s3://renders/frames/001.png"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(fake.inputs) != 2 {
		t.Fatalf("uploads = %d, want 2", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.StringValue(in.Bucket) != "renders" || aws.StringValue(in.Key) != "frames/001.png" {
		t.Fatalf("uploaded to %s/%s", aws.StringValue(in.Bucket), aws.StringValue(in.Key))
	}
	if aws.StringValue(in.ContentType) != "image/png" {
		t.Fatalf("content type = %s", aws.StringValue(in.ContentType))
	}
	if aws.Int64Value(in.ContentLength) != int64(len(fake.bodies[0])) {
		t.Fatalf("content length mismatch")
	}
	if aws.StringValue(fake.inputs[1].Key) != "frames/001.preview.png" {
		t.Fatalf("preview key = %s", aws.StringValue(fake.inputs[1].Key))
	}
}

func TestStoreS3WithoutUploader(t *testing.T) {
	if err := New(1, 1).Store(context.Background(), "s3://b/k.png"); err == nil {
		t.Fatal("expected error without uploader")
	}
	if err := New(1, 1).Store(context.Background(), "s3://b.png"); err == nil {
		t.Fatal("expected error for target without key")
	}
	if _, err := os.Stat("s3:"); err == nil {
		t.Fatal("s3 target must never be written locally")
	}
}
