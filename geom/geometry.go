// Package geom holds the renderable primitives and their ray intersection code.
package geom

import (
	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/vectors"
)

// Ray is a half-line Origin + t*Direction with a unit Direction, so t is a
// world-space distance.
type Ray struct {
	Origin    vectors.Vec3
	Direction vectors.Vec3
}

// NewRay builds a ray from an origin and a direction; the direction is normalized.
func NewRay(origin, direction vectors.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// RayThrough builds a ray from origin towards target.
func RayThrough(origin, target vectors.Vec3) Ray {
	return NewRay(origin, target.Sub(origin))
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) vectors.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Material holds per-channel lighting coefficients.
type Material struct {
	Ambient   colors.Color4
	Diffuse   colors.Color4
	Specular  colors.Color4
	Shininess float64
}

// DefaultMaterial is used by primitives built without an explicit material.
func DefaultMaterial() Material {
	return Material{
		Ambient:   colors.Gray(0.1),
		Diffuse:   colors.Gray(0.8),
		Specular:  colors.Gray(0.3),
		Shininess: 16,
	}
}

// MaterialFromColor is the material for surfaces whose color comes from a
// lookup (volume hits). The color itself is carried separately on the hit and
// multiplies the ambient and diffuse terms, so the coefficients are grey.
func MaterialFromColor(c colors.Color4) Material {
	m := DefaultMaterial()
	m.Specular = colors.Gray(0.3 * c.A)
	return m
}

// Geometry is anything a ray can hit.
type Geometry interface {
	// Intersect returns the nearest hit with minDist < t < maxDist, or
	// NoIntersection. It must not modify the receiver.
	Intersect(ray Ray, minDist, maxDist float64) Intersection
}

// ShadowCaster is implemented by primitives that can opt out of blocking
// shadow rays. Primitives that don't implement it always cast shadows.
type ShadowCaster interface {
	CastsShadows() bool
}

// CastsShadows reports whether g blocks shadow rays.
func CastsShadows(g Geometry) bool {
	if sc, ok := g.(ShadowCaster); ok {
		return sc.CastsShadows()
	}
	return true
}

// ShadowBiaser is implemented by primitives whose hit points can lie inside
// the surface, so shadow rays must start ShadowBias() along the normal.
type ShadowBiaser interface {
	ShadowBias() float64
}

// ShadowBias returns how far shadow rays from a hit on g are pushed out
// along the normal.
func ShadowBias(g Geometry) float64 {
	if sb, ok := g.(ShadowBiaser); ok {
		return sb.ShadowBias()
	}
	return 0
}

// Intersection is the result of a ray query.
type Intersection struct {
	Valid    bool
	Visible  bool
	Geometry Geometry
	Ray      Ray
	T        float64
	Position vectors.Vec3
	Normal   vectors.Vec3
	Material Material
	Color    colors.Color4
}

// NoIntersection is the miss result. Check Valid rather than comparing to it.
var NoIntersection = Intersection{}

func hit(g Geometry, ray Ray, t float64, normal vectors.Vec3, m Material, c colors.Color4) Intersection {
	return Intersection{
		Valid:    true,
		Visible:  true,
		Geometry: g,
		Ray:      ray,
		T:        t,
		Position: ray.At(t),
		Normal:   normal,
		Material: m,
		Color:    c,
	}
}
