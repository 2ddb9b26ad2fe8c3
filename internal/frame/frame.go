// Package frame translates ECEF points to a reference origin and rotates
// them into the local East-North-Up tangent plane at that reference.
package frame

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trackframe/internal/geodesy"
)

// poleLatitudeToleranceDeg is how close to ±90° a reference latitude may sit
// before its longitude (and with it the East/North basis) is considered
// undefined.
const poleLatitudeToleranceDeg = 1e-9

// AlignedPoint is a point in the output frame: meters East, North and Up of
// the reference point.
type AlignedPoint struct {
	X float64 `json:"x"` // East
	Y float64 `json:"y"` // North
	Z float64 `json:"z"` // Up
}

// DegenerateReferenceError marks a reference point that cannot anchor a
// rotation frame. Unlike per-fix errors this is fatal to the whole batch:
// every output shares the one frame.
type DegenerateReferenceError struct {
	LatDeg float64
}

func (e *DegenerateReferenceError) Error() string {
	return fmt.Sprintf("frame: reference latitude %v is at a pole, East/North axes undefined", e.LatDeg)
}

// Reference anchors one batch: a single point serving as both translation
// origin and (unless overridden) rotation-orientation source. Build it once
// per run with NewReference and reuse it; the ECEF origin and rotation
// matrix are resolved exactly once so every point in the batch shares the
// same frame.
type Reference struct {
	origin      geodesy.ECEF
	orientation geodesy.Fix
	rot         *mat.Dense // 3x3, rows are East, North, Up unit vectors
}

// NewReference resolves a geodetic reference point. The same point provides
// the translation origin and the ENU orientation.
func NewReference(fix geodesy.Fix, ell geodesy.Ellipsoid) (*Reference, error) {
	return NewReferenceOriented(fix, fix, ell)
}

// NewReferenceECEF resolves a reference given as a literal ECEF triple. The
// orientation is derived from its geodetic inverse.
func NewReferenceECEF(p geodesy.ECEF, ell geodesy.Ellipsoid) (*Reference, error) {
	fix := p.ToGeodetic(ell)
	r, err := NewReferenceOriented(fix, fix, ell)
	if err != nil {
		return nil, err
	}
	// Keep the caller's exact origin rather than the round-tripped one.
	r.origin = p
	return r, nil
}

// NewReferenceOrientedECEF resolves a literal ECEF origin with a distinct
// geodetic orientation source.
func NewReferenceOrientedECEF(p geodesy.ECEF, orientation geodesy.Fix, ell geodesy.Ellipsoid) (*Reference, error) {
	r, err := NewReferenceOriented(p.ToGeodetic(ell), orientation, ell)
	if err != nil {
		return nil, err
	}
	// Keep the caller's exact origin rather than the round-tripped one.
	r.origin = p
	return r, nil
}

// NewReferenceOriented resolves a reference with a distinct orientation
// source: origin supplies the translation, orientation the ENU basis. Most
// callers want NewReference; the split exists so the coupling between the
// two roles stays visible and configurable.
func NewReferenceOriented(origin, orientation geodesy.Fix, ell geodesy.Ellipsoid) (*Reference, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := orientation.Validate(); err != nil {
		return nil, err
	}
	if 90-math.Abs(orientation.LatDeg) < poleLatitudeToleranceDeg {
		return nil, &DegenerateReferenceError{LatDeg: orientation.LatDeg}
	}
	return &Reference{
		origin:      origin.ToECEF(ell),
		orientation: orientation,
		rot:         enuRotation(orientation.LatDeg, orientation.LonDeg),
	}, nil
}

// enuRotation builds the 3x3 ECEF→ENU rotation whose rows are the local
// East, North and Up unit vectors at the given geodetic point.
func enuRotation(latDeg, lonDeg float64) *mat.Dense {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	return mat.NewDense(3, 3, []float64{
		-sinLon, cosLon, 0, // East
		-sinLat * cosLon, -sinLat * sinLon, cosLat, // North
		cosLat * cosLon, cosLat * sinLon, sinLat, // Up
	})
}

// Origin returns the resolved ECEF translation origin.
func (r *Reference) Origin() geodesy.ECEF {
	return r.origin
}

// Orientation returns the geodetic point the ENU basis was built at.
func (r *Reference) Orientation() geodesy.Fix {
	return r.orientation
}

// Rotation returns a copy of the 3x3 ECEF→ENU rotation matrix. The internal
// matrix is shared read-only across a batch; the copy keeps callers from
// mutating it.
func (r *Reference) Rotation() *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.Copy(r.rot)
	return out
}

// Center translates a single ECEF point so the reference becomes the origin.
func (r *Reference) Center(p geodesy.ECEF) geodesy.ECEF {
	return p.Sub(r.origin)
}

// Align centers an ECEF point and rotates it into the ENU frame:
// aligned = R · (p − origin).
func (r *Reference) Align(p geodesy.ECEF) AlignedPoint {
	c := r.Center(p)
	var out mat.VecDense
	out.MulVec(r.rot, mat.NewVecDense(3, []float64{c.X, c.Y, c.Z}))
	return AlignedPoint{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// AlignAll aligns a batch in order, reusing the one rotation matrix.
func (r *Reference) AlignAll(points []geodesy.ECEF) []AlignedPoint {
	out := make([]AlignedPoint, len(points))
	for i, p := range points {
		out[i] = r.Align(p)
	}
	return out
}
