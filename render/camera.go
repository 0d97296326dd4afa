package render

import (
	"math"

	"github.com/echoflaresat/ctscan/geom"
	"github.com/echoflaresat/ctscan/vectors"
)

// Camera is a pinhole camera looking through a view plane placed
// ViewPlaneDistance in front of Position.
type Camera struct {
	Position  vectors.Vec3
	Direction vectors.Vec3
	Up        vectors.Vec3

	ViewPlaneDistance float64
	// ViewPlaneWidth may be 0, in which case it follows the image aspect ratio.
	ViewPlaneWidth  float64
	ViewPlaneHeight float64

	// Hits closer than FrontPlaneDistance or farther than BackPlaneDistance
	// are ignored. A zero BackPlaneDistance means no far clip.
	FrontPlaneDistance float64
	BackPlaneDistance  float64
}

// Basis returns the orthonormal forward/right/up frame of the camera.
func (c Camera) Basis() (fwd, right, up vectors.Vec3) {
	fwd = c.Direction.Normalize()
	right = fwd.Cross(c.Up)
	if right.Norm() < 1e-6 {
		right = fwd.Orthogonal() // up parallel to the view direction
	}
	right = right.Normalize()
	up = right.Cross(fwd).Normalize()
	return fwd, right, up
}

// ClipRange returns the (min, max) ray distances for primary rays.
func (c Camera) ClipRange() (float64, float64) {
	back := c.BackPlaneDistance
	if back <= 0 {
		back = math.Inf(1)
	}
	return c.FrontPlaneDistance, back
}

// Viewport maps pixel indices of a width×height image onto the view plane.
type Viewport struct {
	Origin  vectors.Vec3
	TopLeft vectors.Vec3
	StepX   vectors.Vec3
	StepY   vectors.Vec3
}

// Viewport computes the per-frame pixel mapping.
func (c Camera) Viewport(width, height int) Viewport {
	fwd, right, up := c.Basis()

	vpH := c.ViewPlaneHeight
	vpW := c.ViewPlaneWidth
	if vpW <= 0 {
		vpW = vpH * float64(width) / float64(height)
	}

	center := c.Position.Add(fwd.Scale(c.ViewPlaneDistance))
	return Viewport{
		Origin:  c.Position,
		TopLeft: center.Add(up.Scale(vpH * 0.5)).Sub(right.Scale(vpW * 0.5)),
		StepX:   right.Scale(vpW / float64(width)),
		StepY:   up.Scale(-vpH / float64(height)),
	}
}

// Ray returns the primary ray through the centre of pixel (i, j), i counting
// columns from the left and j rows from the top.
func (v Viewport) Ray(i, j int) geom.Ray {
	p := v.TopLeft.
		Add(v.StepX.Scale(float64(i) + 0.5)).
		Add(v.StepY.Scale(float64(j) + 0.5))
	return geom.NewRay(v.Origin, p.Sub(v.Origin))
}

// Ray returns the primary ray for pixel (i, j) of a width×height image.
func (c Camera) Ray(i, j, width, height int) geom.Ray {
	return c.Viewport(width, height).Ray(i, j)
}

// Tilted returns the camera pitched around its right axis by deg degrees.
func (c Camera) Tilted(deg float64) Camera {
	_, right, _ := c.Basis()
	return c.rotated(vectors.FromAxisAngle(deg*math.Pi/180.0, right))
}

// Yawed returns the camera panned around its up axis by deg degrees.
func (c Camera) Yawed(deg float64) Camera {
	_, _, up := c.Basis()
	return c.rotated(vectors.FromAxisAngle(deg*math.Pi/180.0, up))
}

func (c Camera) rotated(q vectors.Quat) Camera {
	_, _, up := c.Basis()
	c.Direction = c.Direction.Rotate(q).Normalize()
	c.Up = up.Rotate(q).Normalize()
	return c
}
