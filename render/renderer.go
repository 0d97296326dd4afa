package render

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/echoflaresat/ctscan/colors"
	"golang.org/x/sync/errgroup"
)

// Sink receives rendered pixels. Set is called at most once per pixel and may
// be called concurrently for different pixels.
type Sink interface {
	Set(x, y int, c colors.Color4)
}

// Options tunes a render.
type Options struct {
	// Workers bounds the number of rows rendered at once; 0 means GOMAXPROCS.
	Workers int
	// Region restricts rendering to a sub-rectangle of the frame. Pixels are
	// written to the sink relative to Region.Min. The zero value renders the
	// full frame.
	Region image.Rectangle
	// Progress, if set, is called after every finished row with the number of
	// rows done so far. Calls are serialized.
	Progress func(done, total int)
}

// Render traces every pixel of region of a width×height frame seen by camera
// and writes the colors to sink.
func Render(ctx context.Context, scene *Scene, camera Camera, width, height int, sink Sink, opts Options) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}

	frame := image.Rect(0, 0, width, height)
	region := opts.Region
	if region.Empty() {
		region = frame
	}
	if !region.In(frame) {
		return fmt.Errorf("region %v outside frame %v", region, frame)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	vp := camera.Viewport(width, height)
	minDist, maxDist := camera.ClipRange()

	var mu sync.Mutex
	done, total := 0, region.Dy()
	report := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(done, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		if gctx.Err() != nil {
			break
		}
		y := y
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for x := region.Min.X; x < region.Max.X; x++ {
				c := scene.Trace(vp.Ray(x, y), minDist, maxDist)
				sink.Set(x-region.Min.X, y-region.Min.Y, c)
			}
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
