// Package scene reads JSON scene descriptions and builds the in-memory scene
// and camera used by the renderer.
package scene

import (
	"fmt"

	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/geom"
	"github.com/echoflaresat/ctscan/vectors"
)

type Vec [3]float64

func (v Vec) vec3() vectors.Vec3 { return vectors.New(v[0], v[1], v[2]) }

// Color is [r, g, b] or [r, g, b, a]; alpha defaults to 1.
type Color []float64

func (c Color) color4(fallback colors.Color4) (colors.Color4, error) {
	switch len(c) {
	case 0:
		return fallback, nil
	case 3:
		return colors.New(c[0], c[1], c[2], 1), nil
	case 4:
		return colors.New(c[0], c[1], c[2], c[3]), nil
	default:
		return colors.Color4{}, fmt.Errorf("color needs 3 or 4 components, got %d", len(c))
	}
}

type Config struct {
	Image        ImageCfg    `json:"image"`
	Camera       CameraCfg   `json:"camera"`
	Background   Color       `json:"background,omitempty"`
	NormalOffset float64     `json:"normalOffset,omitempty"`
	Lights       []LightCfg  `json:"lights"`
	Objects      []ObjectCfg `json:"objects"`
}

type ImageCfg struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CameraCfg struct {
	Position           Vec     `json:"position"`
	Direction          Vec     `json:"direction"`
	Up                 Vec     `json:"up"`
	ViewPlaneDistance  float64 `json:"viewPlaneDistance"`
	ViewPlaneWidth     float64 `json:"viewPlaneWidth,omitempty"`
	ViewPlaneHeight    float64 `json:"viewPlaneHeight"`
	FrontPlaneDistance float64 `json:"frontPlaneDistance"`
	BackPlaneDistance  float64 `json:"backPlaneDistance,omitempty"`
	TiltDeg            float64 `json:"tiltDeg,omitempty"`
	YawDeg             float64 `json:"yawDeg,omitempty"`
}

// LightCfg is a point light. When Sun is set, Position is ignored and the
// light is placed along the real sun direction instead.
type LightCfg struct {
	Position Vec     `json:"position"`
	Sun      *SunCfg `json:"sun,omitempty"`
	Ambient  Color   `json:"ambient"`
	Diffuse  Color   `json:"diffuse"`
	Specular Color   `json:"specular"`
}

type SunCfg struct {
	Time     string  `json:"time"` // RFC3339
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance"`
	Target   Vec     `json:"target"`
}

// ObjectCfg holds exactly one primitive.
type ObjectCfg struct {
	Ellipsoid *EllipsoidCfg `json:"ellipsoid,omitempty"`
	Volume    *VolumeCfg    `json:"volume,omitempty"`
}

type RotationCfg struct {
	Axis     Vec     `json:"axis"`
	AngleDeg float64 `json:"angleDeg"`
}

type MaterialCfg struct {
	Ambient   Color   `json:"ambient"`
	Diffuse   Color   `json:"diffuse"`
	Specular  Color   `json:"specular"`
	Shininess float64 `json:"shininess"`
}

type EllipsoidCfg struct {
	Center   Vec          `json:"center"`
	SemiAxes *Vec         `json:"semiAxes,omitempty"` // defaults to (1,1,1)
	Radius   float64      `json:"radius"`
	Rotation *RotationCfg `json:"rotation,omitempty"`
	Material *MaterialCfg `json:"material,omitempty"`
	Color    Color        `json:"color"`
}

type StopCfg struct {
	Value byte  `json:"value"`
	Color Color `json:"color"`
}

// ColorMapCfg selects a density lookup. With neither field set the default
// CT ramp is used.
type ColorMapCfg struct {
	Gradient string    `json:"gradient,omitempty"`
	Stops    []StopCfg `json:"stops,omitempty"`
}

type VolumeCfg struct {
	Header      string       `json:"header"`
	Raw         string       `json:"raw"`
	Position    Vec          `json:"position"`
	Scale       float64      `json:"scale"`
	ColorMap    *ColorMapCfg `json:"colorMap,omitempty"`
	CastShadows *bool        `json:"castShadows,omitempty"`
}

func (m *MaterialCfg) material() (geom.Material, error) {
	out := geom.DefaultMaterial()
	if m == nil {
		return out, nil
	}
	var err error
	if out.Ambient, err = m.Ambient.color4(out.Ambient); err != nil {
		return geom.Material{}, fmt.Errorf("ambient: %w", err)
	}
	if out.Diffuse, err = m.Diffuse.color4(out.Diffuse); err != nil {
		return geom.Material{}, fmt.Errorf("diffuse: %w", err)
	}
	if out.Specular, err = m.Specular.color4(out.Specular); err != nil {
		return geom.Material{}, fmt.Errorf("specular: %w", err)
	}
	if m.Shininess > 0 {
		out.Shininess = m.Shininess
	}
	return out, nil
}
