package geom

import (
	"math"

	"github.com/echoflaresat/ctscan/colormap"
	"github.com/echoflaresat/ctscan/vectors"
	"github.com/echoflaresat/ctscan/volume"
)

const (
	// minMarchStep keeps the march from crawling through very fine grids.
	minMarchStep = 0.001
	// opacityThreshold is the alpha above which a sample counts as a surface.
	opacityThreshold = 1e-5
)

// Volume renders a density grid by marching rays through its bounding box and
// stopping at the first sample the color map makes visible. Thin features
// smaller than the step can be missed.
type Volume struct {
	data     *volume.Data
	position vectors.Vec3
	scale    float64
	colorMap colormap.Map
	bounds   AABB
	step     float64

	// CastShadows controls whether the volume blocks shadow rays.
	CastShadows bool
}

// NewVolume places data in world space with its first voxel corner at
// position and every voxel scaled uniformly by scale.
func NewVolume(data *volume.Data, position vectors.Vec3, scale float64, colorMap colormap.Map) *Volume {
	size := vectors.New(
		float64(data.Resolution[0])*data.Thickness[0]*scale,
		float64(data.Resolution[1])*data.Thickness[1]*scale,
		float64(data.Resolution[2])*data.Thickness[2]*scale,
	)
	minThick := math.Min(data.Thickness[0], math.Min(data.Thickness[1], data.Thickness[2]))

	return &Volume{
		data:        data,
		position:    position,
		scale:       scale,
		colorMap:    colorMap,
		bounds:      AABB{Min: position, Max: position.Add(size)},
		step:        math.Max(minMarchStep, minThick*scale),
		CastShadows: true,
	}
}

// Bounds returns the world-space box covered by the grid.
func (v *Volume) Bounds() AABB { return v.bounds }

// Step returns the ray-march increment.
func (v *Volume) Step() float64 { return v.step }

func (v *Volume) CastsShadows() bool { return v.CastShadows }

// ShadowBias is one march step: a hit lies at most that deep inside the
// first opaque voxel.
func (v *Volume) ShadowBias() float64 { return v.step }

func (v *Volume) Intersect(ray Ray, minDist, maxDist float64) Intersection {
	tMin, tMax, ok := v.bounds.Clip(ray)
	if !ok {
		return NoIntersection
	}

	tStart := math.Max(tMin, minDist)
	tEnd := math.Min(tMax, maxDist)
	if tStart >= tEnd {
		return NoIntersection
	}

	for t := tStart; t < tEnd; t += v.step {
		// The first sample sits exactly on minDist when the ray starts inside.
		if t <= minDist {
			continue
		}
		p := ray.At(t)
		x, y, z := v.indexes(p)
		c := v.colorMap.At(v.data.Value(x, y, z))
		if c.A > opacityThreshold {
			normal := v.normal(x, y, z)
			if normal == (vectors.Vec3{}) {
				normal = ray.Direction.Neg()
			} else if normal.Dot(ray.Direction) > 0 {
				normal = normal.Neg()
			}
			return hit(v, ray, t, normal, MaterialFromColor(c), c)
		}
	}

	return NoIntersection
}

func (v *Volume) indexes(p vectors.Vec3) (int, int, int) {
	th := v.data.Thickness
	return int(math.Floor((p.X - v.position.X) / th[0] / v.scale)),
		int(math.Floor((p.Y - v.position.Y) / th[1] / v.scale)),
		int(math.Floor((p.Z - v.position.Z) / th[2] / v.scale))
}

// normal is the normalized central-difference gradient of the density.
func (v *Volume) normal(x, y, z int) vectors.Vec3 {
	d := v.data
	gx := float64(d.Value(x+1, y, z)) - float64(d.Value(x-1, y, z))
	gy := float64(d.Value(x, y+1, z)) - float64(d.Value(x, y-1, z))
	gz := float64(d.Value(x, y, z+1)) - float64(d.Value(x, y, z-1))
	return vectors.New(gx, gy, gz).Normalize()
}
