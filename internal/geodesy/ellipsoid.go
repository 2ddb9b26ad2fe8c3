package geodesy

import "fmt"

// Ellipsoid describes a reference ellipsoid by its semi-major axis (meters)
// and inverse flattening. Conversions take the ellipsoid as an explicit
// argument so tests can exercise multiple datums deterministically; there is
// no package-level default state.
type Ellipsoid struct {
	Name string
	A    float64 // semi-major axis, meters
	InvF float64 // inverse flattening 1/f
}

// Standard reference ellipsoids. WGS84 is the default for GNSS work; the
// others are kept for processing tracks recorded against older datums.
var (
	WGS84    = Ellipsoid{Name: "wgs84", A: 6378137.0, InvF: 298.257223563}
	GRS80    = Ellipsoid{Name: "grs80", A: 6378137.0, InvF: 298.257222101}
	Airy1830 = Ellipsoid{Name: "airy1830", A: 6377563.396, InvF: 299.3249646}
	Intl1924 = Ellipsoid{Name: "intl1924", A: 6378388.0, InvF: 297.0}
)

var ellipsoids = map[string]Ellipsoid{
	WGS84.Name:    WGS84,
	GRS80.Name:    GRS80,
	Airy1830.Name: Airy1830,
	Intl1924.Name: Intl1924,
}

// EllipsoidByName looks up a named standard ellipsoid.
func EllipsoidByName(name string) (Ellipsoid, error) {
	if e, ok := ellipsoids[name]; ok {
		return e, nil
	}
	return Ellipsoid{}, fmt.Errorf("unknown ellipsoid %q (valid: wgs84, grs80, airy1830, intl1924)", name)
}

// F returns the flattening f = 1/InvF.
func (e Ellipsoid) F() float64 {
	return 1.0 / e.InvF
}

// E2 returns the first eccentricity squared, e² = f(2−f).
func (e Ellipsoid) E2() float64 {
	f := e.F()
	return f * (2 - f)
}
