// Package sky places the sun for a given instant so scenes can be lit by a
// "sun" light at a realistic direction.
package sky

import (
	"math"
	"time"

	"github.com/echoflaresat/ctscan/vectors"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// SunDirection returns the unit vector from Earth's centre towards the Sun in
// Earth-fixed coordinates (Z through the north pole, X through Greenwich).
func SunDirection(t time.Time) vectors.Vec3 {
	jd := julian.TimeToJD(t.UTC())

	ra, dec := solar.ApparentEquatorial(jd)
	x := math.Cos(dec.Rad()) * math.Cos(ra.Rad())
	y := math.Cos(dec.Rad()) * math.Sin(ra.Rad())
	z := math.Sin(dec.Rad())

	// Inertial → Earth-fixed using apparent sidereal time at Greenwich.
	gmst := sidereal.Apparent(jd).Rad()
	c, s := math.Cos(gmst), math.Sin(gmst)

	return vectors.Vec3{
		X: x*c + y*s,
		Y: -x*s + y*c,
		Z: z,
	}.Normalize()
}

// LocalSunDirection returns the sun direction in a local east/north/up frame
// at the given geodetic latitude and longitude (degrees), mapped to scene axes
// X = east, Y = up, Z = south.
func LocalSunDirection(t time.Time, latDeg, lonDeg float64) vectors.Vec3 {
	d := SunDirection(t)
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	east := vectors.New(-math.Sin(lon), math.Cos(lon), 0)
	north := vectors.New(-math.Sin(lat)*math.Cos(lon), -math.Sin(lat)*math.Sin(lon), math.Cos(lat))
	up := vectors.New(math.Cos(lat)*math.Cos(lon), math.Cos(lat)*math.Sin(lon), math.Sin(lat))

	return vectors.New(d.Dot(east), d.Dot(up), -d.Dot(north))
}

// IsDaytime reports whether the sun is above the horizon at the location.
func IsDaytime(t time.Time, latDeg, lonDeg float64) bool {
	return LocalSunDirection(t, latDeg, lonDeg).Y > 0
}
