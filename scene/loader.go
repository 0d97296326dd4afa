package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/echoflaresat/ctscan/colormap"
	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/geom"
	"github.com/echoflaresat/ctscan/render"
	"github.com/echoflaresat/ctscan/sky"
	"github.com/echoflaresat/ctscan/vectors"
	"github.com/echoflaresat/ctscan/volume"
)

// Scene is a loaded scene file.
type Scene struct {
	*render.Scene
	Camera render.Camera
	Width  int
	Height int
}

// Loader builds scenes. Volumes are loaded through Cache so repeated datasets
// are read once.
type Loader struct {
	Cache  *volume.Cache
	Logger *slog.Logger
}

const defaultCacheSize = 8

// NewLoader returns a loader with its own volume cache.
func NewLoader(logger *slog.Logger) (*Loader, error) {
	cache, err := volume.NewCache(defaultCacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Cache: cache, Logger: logger}, nil
}

// Load reads the JSON scene at path. Relative file references inside it are
// resolved against the scene file's directory.
func (l *Loader) Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}

	s, err := l.Build(cfg, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// Build turns a decoded config into a scene. baseDir resolves relative paths.
func (l *Loader) Build(cfg Config, baseDir string) (*Scene, error) {
	bg, err := cfg.Background.color4(render.DefaultBackground())
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	lights := make([]render.Light, 0, len(cfg.Lights))
	for i, lc := range cfg.Lights {
		light, err := l.buildLight(lc)
		if err != nil {
			return nil, fmt.Errorf("lights[%d]: %w", i, err)
		}
		lights = append(lights, light)
	}

	geometries := make([]geom.Geometry, 0, len(cfg.Objects))
	for i, oc := range cfg.Objects {
		g, err := l.buildObject(oc, baseDir)
		if err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		geometries = append(geometries, g)
	}

	cam, err := buildCamera(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}

	rs := render.NewScene(geometries, lights)
	rs.Background = bg
	rs.NormalOffset = cfg.NormalOffset

	l.Logger.Debug("scene built", "objects", len(geometries), "lights", len(lights))
	return &Scene{Scene: rs, Camera: cam, Width: cfg.Image.Width, Height: cfg.Image.Height}, nil
}

func buildCamera(cc CameraCfg) (render.Camera, error) {
	cam := render.Camera{
		Position:           cc.Position.vec3(),
		Direction:          cc.Direction.vec3(),
		Up:                 cc.Up.vec3(),
		ViewPlaneDistance:  cc.ViewPlaneDistance,
		ViewPlaneWidth:     cc.ViewPlaneWidth,
		ViewPlaneHeight:    cc.ViewPlaneHeight,
		FrontPlaneDistance: cc.FrontPlaneDistance,
		BackPlaneDistance:  cc.BackPlaneDistance,
	}
	if cam.Direction.Norm() == 0 {
		return render.Camera{}, errors.New("direction must be non-zero")
	}
	if cam.Up.Norm() == 0 {
		cam.Up = vectors.New(0, 1, 0)
	}
	if cam.ViewPlaneDistance <= 0 || cam.ViewPlaneHeight <= 0 {
		return render.Camera{}, errors.New("viewPlaneDistance and viewPlaneHeight must be positive")
	}
	if cc.YawDeg != 0 {
		cam = cam.Yawed(cc.YawDeg)
	}
	if cc.TiltDeg != 0 {
		cam = cam.Tilted(cc.TiltDeg)
	}
	return cam, nil
}

func (l *Loader) buildLight(lc LightCfg) (render.Light, error) {
	var light render.Light
	var err error
	if light.Ambient, err = lc.Ambient.color4(colors.Gray(0.1)); err != nil {
		return light, fmt.Errorf("ambient: %w", err)
	}
	if light.Diffuse, err = lc.Diffuse.color4(colors.Gray(0.8)); err != nil {
		return light, fmt.Errorf("diffuse: %w", err)
	}
	if light.Specular, err = lc.Specular.color4(colors.Gray(0.5)); err != nil {
		return light, fmt.Errorf("specular: %w", err)
	}

	light.Position = lc.Position.vec3()
	if lc.Sun != nil {
		when, err := time.Parse(time.RFC3339, lc.Sun.Time)
		if err != nil {
			return light, fmt.Errorf("sun time: %w", err)
		}
		dist := lc.Sun.Distance
		if dist <= 0 {
			dist = 1e4
		}
		if !sky.IsDaytime(when, lc.Sun.Lat, lc.Sun.Lon) {
			l.Logger.Warn("sun is below the horizon", "time", lc.Sun.Time, "lat", lc.Sun.Lat, "lon", lc.Sun.Lon)
		}
		dir := sky.LocalSunDirection(when, lc.Sun.Lat, lc.Sun.Lon)
		light.Position = lc.Sun.Target.vec3().Add(dir.Scale(dist))
	}
	return light, nil
}

func (l *Loader) buildObject(oc ObjectCfg, baseDir string) (geom.Geometry, error) {
	switch {
	case oc.Ellipsoid != nil && oc.Volume != nil:
		return nil, errors.New("object must be either an ellipsoid or a volume")
	case oc.Ellipsoid != nil:
		return buildEllipsoid(*oc.Ellipsoid)
	case oc.Volume != nil:
		return l.buildVolume(*oc.Volume, baseDir)
	default:
		return nil, errors.New("empty object")
	}
}

func buildEllipsoid(ec EllipsoidCfg) (*geom.Ellipsoid, error) {
	m, err := ec.Material.material()
	if err != nil {
		return nil, fmt.Errorf("material: %w", err)
	}
	c, err := ec.Color.color4(colors.White())
	if err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	axes := vectors.New(1, 1, 1)
	if ec.SemiAxes != nil {
		axes = ec.SemiAxes.vec3()
	}
	if ec.Radius <= 0 {
		return nil, errors.New("radius must be positive")
	}

	e := geom.NewEllipsoid(ec.Center.vec3(), axes, ec.Radius, m, c)
	if ec.Rotation != nil {
		e.Rotation = vectors.FromAxisAngle(ec.Rotation.AngleDeg*math.Pi/180.0, ec.Rotation.Axis.vec3())
	}
	return e, nil
}

func (l *Loader) buildVolume(vc VolumeCfg, baseDir string) (*geom.Volume, error) {
	if vc.Header == "" || vc.Raw == "" {
		return nil, errors.New("volume needs header and raw files")
	}
	data, err := l.Cache.Load(resolve(baseDir, vc.Header), resolve(baseDir, vc.Raw))
	if err != nil {
		return nil, err
	}

	cm, err := buildColorMap(vc.ColorMap, baseDir)
	if err != nil {
		return nil, fmt.Errorf("colorMap: %w", err)
	}

	scale := vc.Scale
	if scale <= 0 {
		scale = 1
	}
	v := geom.NewVolume(data, vc.Position.vec3(), scale, cm)
	if vc.CastShadows != nil {
		v.CastShadows = *vc.CastShadows
	}
	l.Logger.Debug("volume loaded", "header", vc.Header, "resolution", data.Resolution, "step", v.Step())
	return v, nil
}

func buildColorMap(cc *ColorMapCfg, baseDir string) (colormap.Map, error) {
	switch {
	case cc == nil || (cc.Gradient == "" && len(cc.Stops) == 0):
		return colormap.Default(), nil
	case cc.Gradient != "":
		return colormap.LoadGradient(resolve(baseDir, cc.Gradient))
	default:
		stops := make([]colormap.Stop, 0, len(cc.Stops))
		for i, sc := range cc.Stops {
			c, err := sc.Color.color4(colors.Color4{})
			if err != nil {
				return nil, fmt.Errorf("stops[%d]: %w", i, err)
			}
			stops = append(stops, colormap.Stop{Value: sc.Value, Color: c})
		}
		return colormap.NewRamp(stops...)
	}
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
