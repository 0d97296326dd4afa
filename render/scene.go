package render

import (
	"math"

	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/geom"
	"github.com/echoflaresat/ctscan/vectors"
)

// ShadowEpsilon trims both ends of a shadow ray so it neither hits the surface
// it starts on nor the light itself.
const ShadowEpsilon = 0.001

// Light is a point light without attenuation.
type Light struct {
	Position vectors.Vec3
	Ambient  colors.Color4
	Diffuse  colors.Color4
	Specular colors.Color4
}

// NewLight returns a white light with the given strengths per term.
func NewLight(position vectors.Vec3, ambient, diffuse, specular float64) Light {
	return Light{
		Position: position,
		Ambient:  colors.Gray(ambient),
		Diffuse:  colors.Gray(diffuse),
		Specular: colors.Gray(specular),
	}
}

// Scene is the read-only input of a render.
type Scene struct {
	Geometries []geom.Geometry
	Lights     []Light
	Background colors.Color4

	// NormalOffset moves shadow ray origins along the surface normal. Primitives
	// that report a larger geom.ShadowBias use theirs instead.
	NormalOffset float64
}

// DefaultBackground is the color of pixels whose ray escapes the scene.
func DefaultBackground() colors.Color4 {
	return colors.New(0.2, 0.2, 0.2, 1.0)
}

func NewScene(geometries []geom.Geometry, lights []Light) *Scene {
	return &Scene{
		Geometries: geometries,
		Lights:     lights,
		Background: DefaultBackground(),
	}
}

// FindFirstIntersection returns the valid, visible hit with the smallest t in
// (minDist, maxDist). On equal t the primitive listed first wins.
func (s *Scene) FindFirstIntersection(ray geom.Ray, minDist, maxDist float64) geom.Intersection {
	return s.findFirst(ray, minDist, maxDist, false)
}

func (s *Scene) findFirst(ray geom.Ray, minDist, maxDist float64, shadow bool) geom.Intersection {
	best := geom.NoIntersection
	for _, g := range s.Geometries {
		if shadow && !geom.CastsShadows(g) {
			continue
		}
		h := g.Intersect(ray, minDist, maxDist)
		if !h.Valid || !h.Visible {
			continue
		}
		if !best.Valid || h.T < best.T {
			best = h
		}
	}
	return best
}

// IsLit reports whether nothing that casts shadows lies between point and lightPos.
func (s *Scene) IsLit(point, lightPos vectors.Vec3) bool {
	toLight := lightPos.Sub(point)
	dist := toLight.Norm()
	if dist <= 2*ShadowEpsilon {
		return true
	}
	ray := geom.NewRay(point, toLight)
	return !s.findFirst(ray, ShadowEpsilon, dist-ShadowEpsilon, true).Valid
}

// Shade evaluates ambient, diffuse and specular light at a hit.
func (s *Scene) Shade(h geom.Intersection) colors.Color4 {
	n := h.Normal.Normalize()
	view := h.Ray.Direction.Neg()
	m := h.Material
	offset := math.Max(s.NormalOffset, geom.ShadowBias(h.Geometry))
	shadowOrigin := h.Position.Add(n.Scale(offset))

	out := colors.Color4{}
	for _, light := range s.Lights {
		out = out.Add(h.Color.Mul(m.Ambient).Mul(light.Ambient))

		if !s.IsLit(shadowOrigin, light.Position) {
			continue
		}

		l := light.Position.Sub(h.Position).Normalize()
		ndotl := n.Dot(l)
		if ndotl <= 0 {
			continue
		}
		out = out.Add(h.Color.Mul(m.Diffuse).Mul(light.Diffuse).Scale(ndotl))

		r := n.Scale(2 * ndotl).Sub(l).Normalize()
		if rdotv := r.Dot(view); rdotv > 0 {
			out = out.Add(m.Specular.Mul(light.Specular).Scale(math.Pow(rdotv, m.Shininess)))
		}
	}
	return out.WithAlpha(1)
}

// Trace returns the color seen along ray within (minDist, maxDist).
func (s *Scene) Trace(ray geom.Ray, minDist, maxDist float64) colors.Color4 {
	h := s.FindFirstIntersection(ray, minDist, maxDist)
	if !h.Valid || !h.Visible {
		return s.Background
	}
	return s.Shade(h)
}
