package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/echoflaresat/ctscan/render"
	"github.com/echoflaresat/ctscan/scene"
	"github.com/echoflaresat/ctscan/sink"
	"github.com/joho/godotenv"
)

type config struct {
	scene         *string
	out           *string
	width, height *int
	workers       *int
	preview       *uint
	quality       *int
	region        *string
	env           *string
	verbose       *bool
	showHelp      *bool
}

func defineFlags(fs *flag.FlagSet) config {
	return config{
		scene: fs.String("scene", "scene.json", "Scene description (JSON)"),

		width:   fs.Int("width", 0, "Image width in pixels; 0 uses the scene's value"),
		height:  fs.Int("height", 0, "Image height in pixels; 0 uses the scene's value"),
		workers: fs.Int("workers", 0, "Rows rendered in parallel; 0 uses all CPUs"),
		region:  fs.String("region", "", "Render only the tile x0,y0,x1,y1 of the frame"),

		out:     fs.String("out", "render.png", "Output file or s3://bucket/key"),
		preview: fs.Uint("preview", 0, "Also store a thumbnail fitting this many pixels"),
		quality: fs.Int("quality", 95, "JPEG quality"),

		env:      fs.String("env", ".env", "Dotenv file with S3_* credentials"),
		verbose:  fs.Bool("v", false, "Verbose logging"),
		showHelp: fs.Bool("h", false, "Show this help message"),
	}
}

func printHelp(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `CT Scene Renderer - Ray traced ellipsoids and CT volumes

Usage:
  %[1]s [options]

`, os.Args[0])

	printGroup(fs, "Scene", []string{"scene"})
	printGroup(fs, "Rendering Options", []string{"width", "height", "workers", "region"})
	printGroup(fs, "Output", []string{"out", "preview", "quality"})
	printGroup(fs, "Misc", []string{"env", "v", "h"})
}

func printGroup(fs *flag.FlagSet, title string, keys []string) {
	fmt.Fprintf(os.Stderr, "%s:\n", title)
	for _, name := range keys {
		if f := fs.Lookup(name); f != nil {
			fmt.Fprintf(os.Stderr, "  -%-8s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(os.Stderr)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg := defineFlags(fs)
	fs.Usage = func() { printHelp(fs) }
	_ = fs.Parse(os.Args[1:])

	if *cfg.showHelp {
		printHelp(fs)
		return
	}

	level := slog.LevelInfo
	if *cfg.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config) error {
	_ = godotenv.Load(*cfg.env)

	loader, err := scene.NewLoader(slog.Default())
	if err != nil {
		return err
	}
	s, err := loader.Load(*cfg.scene)
	if err != nil {
		return err
	}

	width, height := s.Width, s.Height
	if *cfg.width > 0 {
		width = *cfg.width
	}
	if *cfg.height > 0 {
		height = *cfg.height
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image size %dx%d: set it in the scene or with -width/-height", width, height)
	}

	region := image.Rect(0, 0, width, height)
	if *cfg.region != "" {
		if region, err = parseRegion(*cfg.region); err != nil {
			return err
		}
	}

	out := sink.New(region.Dx(), region.Dy())
	out.PreviewSize = *cfg.preview
	out.JPEGQuality = *cfg.quality
	if strings.HasPrefix(*cfg.out, "s3://") {
		up, err := sink.NewS3Uploader(s3ConfigFromEnv())
		if err != nil {
			return err
		}
		out.Uploader = up
	}

	slog.Info("rendering", "scene", filepath.Base(*cfg.scene), "size", fmt.Sprintf("%dx%d", width, height), "region", region)
	start := time.Now()
	opts := render.Options{
		Workers:  *cfg.workers,
		Region:   region,
		Progress: progressLogger(),
	}
	if err := render.Render(ctx, s.Scene, s.Camera, width, height, out, opts); err != nil {
		return err
	}
	slog.Info("rendered", "elapsed", time.Since(start).Round(time.Millisecond))

	if err := out.Store(ctx, *cfg.out); err != nil {
		return fmt.Errorf("failed to store %s: %w", *cfg.out, err)
	}
	slog.Info("stored", "target", *cfg.out)
	return nil
}

func s3ConfigFromEnv() sink.S3Config {
	return sink.S3Config{
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    os.Getenv("S3_REGION"),
	}
}

// progressLogger logs at every tenth of the rows.
func progressLogger() func(done, total int) {
	last := -1
	return func(done, total int) {
		pct := done * 10 / total
		if pct == last {
			return
		}
		last = pct
		slog.Debug("progress", "rows", done, "total", total, "percent", pct*10)
	}
}

var errBadRegion = errors.New("region must be x0,y0,x1,y1 with x0<x1 and y0<y1")

func parseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("%w: %q", errBadRegion, s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("%w: %q", errBadRegion, s)
		}
		v[i] = n
	}
	if v[0] < 0 || v[1] < 0 || v[0] >= v[2] || v[1] >= v[3] {
		return image.Rectangle{}, fmt.Errorf("%w: %q", errBadRegion, s)
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}
