package scene

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/echoflaresat/ctscan/colors"
	"github.com/echoflaresat/ctscan/geom"
	"github.com/echoflaresat/ctscan/render"
	"github.com/echoflaresat/ctscan/vectors"
	"github.com/echoflaresat/ctscan/volume"
)

const volumeHeader = "ObjectFileName: cube.raw\nResolution: 4 4 4\nSliceThickness: 1 1 2\n"

const testScene = `{
  "image": {"width": 64, "height": 48},
  "camera": {
    "position": [0, 0, -10],
    "direction": [0, 0, 1],
    "up": [0, 1, 0],
    "viewPlaneDistance": 1,
    "viewPlaneHeight": 0.75,
    "frontPlaneDistance": 0.1
  },
  "lights": [
    {"position": [0, 10, -10], "ambient": [0.2, 0.2, 0.2], "diffuse": [1, 1, 1], "specular": [0.5, 0.5, 0.5]},
    {"sun": {"time": "2024-06-21T12:00:00Z", "lat": 51.5, "lon": 0, "distance": 500, "target": [1, 2, 3]}}
  ],
  "objects": [
    {"ellipsoid": {
      "center": [0, 0, 0], "semiAxes": [2, 1, 1], "radius": 1,
      "rotation": {"axis": [0, 0, 1], "angleDeg": 90},
      "material": {"diffuse": [0.5, 0.5, 0.5], "shininess": 32},
      "color": [1, 0, 0]
    }},
    {"volume": {
      "header": "data/cube.dat", "raw": "data/cube.raw",
      "position": [5, 0, 0], "scale": 0.5,
      "colorMap": {"stops": [{"value": 0, "color": [0, 0, 0, 0]}, {"value": 255, "color": [1, 1, 1, 1]}]},
      "castShadows": false
    }},
    {"volume": {"header": "data/cube.dat", "raw": "data/cube.raw", "position": [-5, 0, 0]}}
  ]
}`

func quietLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeScene(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "cube.dat"), []byte(volumeHeader))
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i * 4)
	}
	writeFile(t, filepath.Join(dir, "data", "cube.raw"), raw)

	path := filepath.Join(dir, "scene.json")
	writeFile(t, path, []byte(body))
	return path
}

func TestLoadScene(t *testing.T) {
	l := quietLoader(t)
	s, err := l.Load(writeScene(t, testScene))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Width != 64 || s.Height != 48 {
		t.Fatalf("image = %dx%d", s.Width, s.Height)
	}
	if s.Background != render.DefaultBackground() {
		t.Fatalf("background = %+v", s.Background)
	}
	if s.Camera.ViewPlaneHeight != 0.75 || s.Camera.FrontPlaneDistance != 0.1 {
		t.Fatalf("camera = %+v", s.Camera)
	}

	if len(s.Geometries) != 3 {
		t.Fatalf("geometries = %d", len(s.Geometries))
	}
	e, ok := s.Geometries[0].(*geom.Ellipsoid)
	if !ok {
		t.Fatalf("objects[0] is %T", s.Geometries[0])
	}
	if e.Color != colors.New(1, 0, 0, 1) || e.Material.Shininess != 32 {
		t.Fatalf("ellipsoid = %+v", e)
	}
	if e.Material.Ambient != geom.DefaultMaterial().Ambient {
		t.Fatal("unset material fields must keep their defaults")
	}
	// The long axis is turned onto Y.
	h := e.Intersect(geom.NewRay(vectors.New(0, -10, 0), vectors.New(0, 1, 0)), 0, 100)
	if !h.Valid || math.Abs(h.T-8) > 1e-9 {
		t.Fatalf("rotated ellipsoid hit t = %v", h.T)
	}

	v1, ok := s.Geometries[1].(*geom.Volume)
	if !ok {
		t.Fatalf("objects[1] is %T", s.Geometries[1])
	}
	if v1.CastShadows || v1.Step() != 0.5 {
		t.Fatalf("volume castShadows=%v step=%v", v1.CastShadows, v1.Step())
	}
	v2 := s.Geometries[2].(*geom.Volume)
	if !v2.CastShadows {
		t.Fatal("volumes cast shadows unless configured otherwise")
	}
	if l.Cache.Len() != 1 {
		t.Fatalf("cache entries = %d, shared dataset must load once", l.Cache.Len())
	}

	if len(s.Lights) != 2 {
		t.Fatalf("lights = %d", len(s.Lights))
	}
	if s.Lights[0].Ambient != colors.Gray(0.2) {
		t.Fatalf("light ambient = %+v", s.Lights[0].Ambient)
	}
	sun := s.Lights[1]
	if d := vectors.Distance(sun.Position, vectors.New(1, 2, 3)); math.Abs(d-500) > 1e-6 {
		t.Fatalf("sun distance = %v", d)
	}
	if sun.Position.Y <= 2 {
		t.Fatalf("midsummer noon sun must be above the target, got %v", sun.Position)
	}
}

func TestLoadSceneErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown field", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "bogus": 1}`},
		{"malformed json", `{"camera": `},
		{"zero direction", `{"camera": {"viewPlaneDistance": 1, "viewPlaneHeight": 1}}`},
		{"no view plane", `{"camera": {"direction": [0,0,1]}}`},
		{"bad background", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "background": [1, 1]}`},
		{"empty object", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "objects": [{}]}`},
		{"zero radius", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "objects": [{"ellipsoid": {"center": [0,0,0]}}]}`},
		{"bad sun time", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "lights": [{"sun": {"time": "noon"}}]}`},
		{"missing raw", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "objects": [{"volume": {"header": "data/cube.dat", "raw": "data/none.raw"}}]}`},
		{"duplicate stops", `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1}, "objects": [{"volume": {"header": "data/cube.dat", "raw": "data/cube.raw", "colorMap": {"stops": [{"value": 1}, {"value": 1}]}}}]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeScene(t, c.body)
			_, err := quietLoader(t).Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), path) {
				t.Fatalf("error %q does not name the scene file", err)
			}
		})
	}
}

func TestLoadSceneMalformedVolume(t *testing.T) {
	path := writeScene(t, `{"camera": {"direction": [0,0,1], "viewPlaneDistance": 1, "viewPlaneHeight": 1},
		"objects": [{"volume": {"header": "bad.dat", "raw": "data/cube.raw"}}]}`)
	writeFile(t, filepath.Join(filepath.Dir(path), "bad.dat"), []byte("Resolution: 4 4\n"))

	_, err := quietLoader(t).Load(path)
	if !errors.Is(err, volume.ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestBuildRendersLoadedScene(t *testing.T) {
	s, err := quietLoader(t).Load(writeScene(t, testScene))
	if err != nil {
		t.Fatal(err)
	}
	// The camera looks straight at the ellipsoid.
	ray := s.Camera.Ray(s.Width/2, s.Height/2, s.Width, s.Height)
	lo, hi := s.Camera.ClipRange()
	if c := s.Trace(ray, lo, hi); c == s.Background {
		t.Fatal("centre ray must hit the ellipsoid")
	}
}

func TestSunBelowHorizonWarns(t *testing.T) {
	cases := []struct {
		name string
		when string
		warn bool
	}{
		{"noon", "2024-03-20T12:00:00Z", false},
		{"midnight", "2024-03-20T00:00:00Z", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var logs bytes.Buffer
			l := quietLoader(t)
			l.Logger = slog.New(slog.NewTextHandler(&logs, nil))

			cfg := Config{
				Camera: CameraCfg{Direction: Vec{0, 0, 1}, ViewPlaneDistance: 1, ViewPlaneHeight: 1},
				Lights: []LightCfg{{Sun: &SunCfg{Time: c.when, Lat: 51.5, Lon: 0}}},
			}
			if _, err := l.Build(cfg, t.TempDir()); err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(logs.String(), "below the horizon"); got != c.warn {
				t.Fatalf("warning logged = %v, want %v; logs: %s", got, c.warn, logs.String())
			}
		})
	}
}
