package geom

import (
	"math"

	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/vectors"
)

// Ellipsoid is the surface sum((p_i / SemiAxes_i)^2) = Radius^2 in its local
// frame, placed at Center and oriented by Rotation.
type Ellipsoid struct {
	Center   vectors.Vec3
	SemiAxes vectors.Vec3
	Radius   float64
	Rotation vectors.Quat // zero value means no rotation
	Material Material
	Color    colors.Color4
}

func NewEllipsoid(center, semiAxes vectors.Vec3, radius float64, material Material, color colors.Color4) *Ellipsoid {
	return &Ellipsoid{
		Center:   center,
		SemiAxes: semiAxes,
		Radius:   radius,
		Rotation: vectors.Identity(),
		Material: material,
		Color:    color,
	}
}

// NewSphere is an ellipsoid with unit semi-axes.
func NewSphere(center vectors.Vec3, radius float64, material Material, color colors.Color4) *Ellipsoid {
	return NewEllipsoid(center, vectors.New(1, 1, 1), radius, material, color)
}

func (e *Ellipsoid) Intersect(ray Ray, minDist, maxDist float64) Intersection {
	axes := e.SemiAxes
	if axes.X == 0 || axes.Y == 0 || axes.Z == 0 {
		return NoIntersection
	}

	rot := e.Rotation.Normalize()
	inv := rot.Conjugate()

	// Local, axis-aligned frame.
	localOrigin := ray.Origin.Sub(e.Center).Rotate(inv)
	localDir := ray.Direction.Rotate(inv)

	// Scaled frame: a sphere of radius e.Radius at the origin.
	o := localOrigin.Div(axes)
	d := localDir.Div(axes)

	a := d.Length2()
	if a == 0 {
		return NoIntersection
	}
	b := 2.0 * d.Dot(o)
	c := o.Length2() - e.Radius*e.Radius

	disc := b*b - 4.0*a*c
	if disc < 0 {
		return NoIntersection
	}

	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2.0 * a)
	t2 := (-b + sq) / (2.0 * a)

	var t float64
	switch {
	case t1 > minDist && t1 < maxDist:
		t = t1
	case t2 > minDist && t2 < maxDist:
		t = t2
	default:
		return NoIntersection
	}

	// Quadric gradient at the local hit point.
	p := o.Add(d.Scale(t)).Mul(axes)
	normal := p.Div(axes.Mul(axes)).Scale(2.0).Normalize()
	if normal.Dot(localDir) > 0 {
		normal = normal.Neg()
	}
	normal = normal.Rotate(rot).Normalize()

	return hit(e, ray, t, normal, e.Material, e.Color)
}
