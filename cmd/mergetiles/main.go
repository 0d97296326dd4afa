// Command mergetiles stitches tiles rendered with -region back into one image.
package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/echoflaresat/ctscan/sink"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <cols>x<rows> <output.png> <tile1> <tile2> ...\n", os.Args[0])
		os.Exit(1)
	}

	cols, rows, err := parseLayout(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	canvas, err := merge(cols, rows, os.Args[3:])
	if err != nil {
		log.Fatal(err)
	}

	output := os.Args[2]
	slog.Info("creating", "output", output, "bounds", canvas.Bounds())
	out := sink.FromImage(canvas)
	if strings.HasPrefix(output, "s3://") {
		up, err := sink.NewS3Uploader(sink.S3Config{
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    os.Getenv("S3_REGION"),
		})
		if err != nil {
			log.Fatal(err)
		}
		out.Uploader = up
	}
	if err := out.Store(context.Background(), output); err != nil {
		log.Fatalf("Could not create %s: %v", output, err)
	}
}

func parseLayout(s string) (cols, rows int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid tile format: %s (expected NxM)", s)
	}
	if cols, err = strconv.Atoi(parts[0]); err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid cols in %q", s)
	}
	if rows, err = strconv.Atoi(parts[1]); err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid rows in %q", s)
	}
	return cols, rows, nil
}

// merge places tiles row-major onto one canvas. Tiles in the last column or
// row may be smaller, as produced when the frame does not divide evenly, but
// each of those must match the rest of its column or row.
func merge(cols, rows int, paths []string) (*image.NRGBA, error) {
	if len(paths) != cols*rows {
		return nil, fmt.Errorf("expected %d input files, got %d", cols*rows, len(paths))
	}

	tiles := make([]image.Image, len(paths))
	for i, path := range paths {
		slog.Debug("processing", "tile", path)
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not load input file %q: %w", path, err)
		}
		tiles[i] = img
	}

	// Column widths come from row 0 and row heights from column 0; only the
	// last column and row may be narrower or shorter than the first tile.
	tileW := tiles[0].Bounds().Dx()
	tileH := tiles[0].Bounds().Dy()
	colW := make([]int, cols)
	rowH := make([]int, rows)
	width, height := 0, 0
	for c := range colW {
		colW[c] = tiles[c].Bounds().Dx()
		width += colW[c]
	}
	for r := range rowH {
		rowH[r] = tiles[r*cols].Bounds().Dy()
		height += rowH[r]
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	for idx, tile := range tiles {
		col, row := idx%cols, idx/cols
		w, h := tile.Bounds().Dx(), tile.Bounds().Dy()
		wantW, wantH := colW[col], rowH[row]
		if col < cols-1 {
			wantW = tileW
		}
		if row < rows-1 {
			wantH = tileH
		}
		if w != wantW || h != wantH || wantW > tileW || wantH > tileH {
			return nil, fmt.Errorf("tile size mismatch for %q: expected %dx%d, got %dx%d",
				paths[idx], wantW, wantH, w, h)
		}
		x, y := col*tileW, row*tileH
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), tile, tile.Bounds().Min, draw.Src)
	}
	return canvas, nil
}
