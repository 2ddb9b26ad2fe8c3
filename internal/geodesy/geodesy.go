// Package geodesy converts geodetic fixes to and from Earth-Centered
// Earth-Fixed (ECEF) Cartesian coordinates against an explicit reference
// ellipsoid.
package geodesy

import (
	"fmt"
	"math"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Fix is a geodetic position: signed decimal degrees and meters above the
// reference ellipsoid.
type Fix struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

// ECEF is an Earth-Centered Earth-Fixed Cartesian point in meters.
type ECEF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ValidationError reports a fix whose fields are outside their physical
// range. Fixes failing validation are skipped by the pipeline, never
// converted.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("geodesy: %s out of range: %v", e.Field, e.Value)
}

// Validate checks that all fields are finite and latitude/longitude lie in
// their valid ranges.
func (f Fix) Validate() error {
	if math.IsNaN(f.LatDeg) || math.IsInf(f.LatDeg, 0) || f.LatDeg < -90 || f.LatDeg > 90 {
		return &ValidationError{Field: "latitude", Value: f.LatDeg}
	}
	if math.IsNaN(f.LonDeg) || math.IsInf(f.LonDeg, 0) || f.LonDeg < -180 || f.LonDeg > 180 {
		return &ValidationError{Field: "longitude", Value: f.LonDeg}
	}
	if math.IsNaN(f.AltM) || math.IsInf(f.AltM, 0) {
		return &ValidationError{Field: "altitude", Value: f.AltM}
	}
	return nil
}

// ToECEF converts a geodetic fix to ECEF meters using the closed-form
// conversion with the prime-vertical radius of curvature
// N(lat) = a / sqrt(1 − e²·sin²(lat)).
//
// Pure and total over validated input; callers are expected to run Validate
// (or the pipeline's extractor, which does) first.
func (f Fix) ToECEF(ell Ellipsoid) ECEF {
	lat := f.LatDeg * deg2rad
	lon := f.LonDeg * deg2rad
	e2 := ell.E2()

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	n := ell.A / math.Sqrt(1-e2*sinLat*sinLat)

	return ECEF{
		X: (n + f.AltM) * cosLat * math.Cos(lon),
		Y: (n + f.AltM) * cosLat * math.Sin(lon),
		Z: (n*(1-e2) + f.AltM) * sinLat,
	}
}

// ToGeodetic converts an ECEF point back to a geodetic fix using the
// iterative Bowring method. Converges to well under a millimeter in a
// handful of iterations for terrestrial points; used by the ecef reference
// mode and for round-trip verification.
func (p ECEF) ToGeodetic(ell Ellipsoid) Fix {
	e2 := ell.E2()
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	lat := math.Atan2(p.Z, rho*(1-e2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := ell.A / math.Sqrt(1-e2*sinLat*sinLat)
		lat = math.Atan2(p.Z+e2*n*sinLat, rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := ell.A / math.Sqrt(1-e2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - n
	} else {
		// Near the poles rho/cos(lat) is unstable; fall back to the polar form.
		alt = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-e2)
	}

	return Fix{
		LatDeg: lat * rad2deg,
		LonDeg: lon * rad2deg,
		AltM:   alt,
	}
}

// Sub returns p − q.
func (p ECEF) Sub(q ECEF) ECEF {
	return ECEF{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Norm returns the Euclidean norm of the vector.
func (p ECEF) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}
