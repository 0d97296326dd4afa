// Package volume loads discretized density fields: a text header describing
// the grid and a raw file of one byte per voxel.
package volume

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"
)

var (
	ErrMalformedHeader = errors.New("malformed volume header")
	ErrTruncatedData   = errors.New("truncated volume data")
)

// Header describes the voxel grid: counts per axis and the physical size of a
// voxel along each axis.
type Header struct {
	Resolution [3]int
	Thickness  [3]float64
}

// Len returns the number of voxels in the grid.
func (h Header) Len() int {
	return h.Resolution[0] * h.Resolution[1] * h.Resolution[2]
}

// Data is a loaded density grid. Samples are laid out x-fastest, then y, then z.
type Data struct {
	Header
	Samples []byte
}

// Value returns the density at voxel (x, y, z); indices outside the grid read as 0.
func (d *Data) Value(x, y, z int) byte {
	rx, ry, rz := d.Resolution[0], d.Resolution[1], d.Resolution[2]
	if x < 0 || y < 0 || z < 0 || x >= rx || y >= ry || z >= rz {
		return 0
	}
	return d.Samples[z*ry*rx+y*rx+x]
}

// ParseHeader reads "Key: v1 v2 v3" lines. Keys and values may be separated by
// any run of colons, tabs and spaces. Resolution and SliceThickness are
// required; other keys are ignored.
func ParseHeader(r io.Reader) (Header, error) {
	var hdr Header
	var haveRes, haveThick bool

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.FieldsFunc(sc.Text(), func(c rune) bool {
			return c == ':' || c == '\t' || c == ' ' || c == '\r'
		})
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "Resolution":
			if len(fields) < 4 {
				return Header{}, fmt.Errorf("%w: Resolution needs 3 values, got %d", ErrMalformedHeader, len(fields)-1)
			}
			for i := 0; i < 3; i++ {
				v, err := strconv.Atoi(fields[i+1])
				if err != nil {
					return Header{}, fmt.Errorf("%w: Resolution[%d]: %v", ErrMalformedHeader, i, err)
				}
				if v <= 0 {
					return Header{}, fmt.Errorf("%w: Resolution[%d] must be positive, got %d", ErrMalformedHeader, i, v)
				}
				hdr.Resolution[i] = v
			}
			n := 1
			for _, v := range hdr.Resolution {
				if n > math.MaxInt/v {
					return Header{}, fmt.Errorf("%w: Resolution %v overflows the voxel count", ErrMalformedHeader, hdr.Resolution)
				}
				n *= v
			}
			haveRes = true
		case "SliceThickness":
			if len(fields) < 4 {
				return Header{}, fmt.Errorf("%w: SliceThickness needs 3 values, got %d", ErrMalformedHeader, len(fields)-1)
			}
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return Header{}, fmt.Errorf("%w: SliceThickness[%d]: %v", ErrMalformedHeader, i, err)
				}
				if v <= 0 {
					return Header{}, fmt.Errorf("%w: SliceThickness[%d] must be positive, got %g", ErrMalformedHeader, i, v)
				}
				hdr.Thickness[i] = v
			}
			haveThick = true
		}
	}
	if err := sc.Err(); err != nil {
		return Header{}, err
	}

	if !haveRes {
		return Header{}, fmt.Errorf("%w: missing Resolution", ErrMalformedHeader)
	}
	if !haveThick {
		return Header{}, fmt.Errorf("%w: missing SliceThickness", ErrMalformedHeader)
	}
	return hdr, nil
}

// ReadSamples copies hdr.Len() bytes from the start of r. Fewer available
// bytes is ErrTruncatedData; trailing bytes are ignored.
func ReadSamples(r io.ReaderAt, size int, hdr Header) ([]byte, error) {
	n := hdr.Len()
	if n <= 0 {
		return nil, fmt.Errorf("%w: resolution %v", ErrMalformedHeader, hdr.Resolution)
	}
	if size < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedData, n, size)
	}
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, 0)
	if read < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrTruncatedData
		}
		return nil, fmt.Errorf("failed to read the %d-byte raw data: %w", n, err)
	}
	return buf, nil
}

// Load parses the header at datPath and reads the raw samples at rawPath.
func Load(datPath, rawPath string) (*Data, error) {
	f, err := os.Open(datPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", datPath, err)
	}

	reader, err := mmap.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	samples, err := ReadSamples(reader, reader.Len(), hdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawPath, err)
	}

	return &Data{Header: hdr, Samples: samples}, nil
}
