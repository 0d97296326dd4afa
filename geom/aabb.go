package geom

import (
	"math"

	"github.com/echoflaresat/ctscan/vectors"
)

// parallelEpsilon is the direction component below which a ray counts as
// parallel to a slab.
const parallelEpsilon = 1e-6

// AABB is an axis-aligned box [Min, Max].
type AABB struct {
	Min vectors.Vec3
	Max vectors.Vec3
}

// Clip runs the slab test and returns the parametric interval [tMin, tMax]
// where the ray is inside the box. ok is false when the ray misses.
func (b AABB) Clip(ray Ray) (tMin, tMax float64, ok bool) {
	tMin = math.Inf(-1)
	tMax = math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		lo := b.Min.Component(axis)
		hi := b.Max.Component(axis)
		origin := ray.Origin.Component(axis)
		dir := ray.Direction.Component(axis)

		if math.Abs(dir) <= parallelEpsilon {
			if origin < lo || origin > hi {
				return 0, 0, false
			}
			continue
		}

		t1 := (lo - origin) / dir
		t2 := (hi - origin) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
	}

	if tMin > tMax {
		return 0, 0, false
	}
	return tMin, tMax, true
}
