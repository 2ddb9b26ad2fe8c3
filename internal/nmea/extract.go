package nmea

import (
	"strconv"
	"strings"

	"github.com/banshee-data/trackframe/internal/geodesy"
)

// ErrNotPosition is the distinguished "no position in this sentence" result.
// It marks sentence types that simply carry no fix (heartbeats, satellite
// status, DOP reports) and must not be counted as parse failures.
var ErrNotPosition = &ParseError{Reason: "not a position sentence"}

// ExtractFix pulls a geodetic fix out of a position-bearing sentence.
//
// Supported types: GGA (lat, lon, altitude above the ellipsoid reference),
// RMC and GLL (lat, lon; altitude reported as 0 since neither sentence
// carries one). Any other type returns ErrNotPosition. A recognised position
// sentence with malformed latitude, longitude, altitude or hemisphere fields
// returns a *ParseError describing the field.
func ExtractFix(s Sentence) (geodesy.Fix, error) {
	switch s.Type {
	case "GGA":
		return extractGGA(s.Fields)
	case "RMC":
		return extractRMC(s.Fields)
	case "GLL":
		return extractGLL(s.Fields)
	default:
		return geodesy.Fix{}, ErrNotPosition
	}
}

// GGA: Global Positioning System Fix Data
// Fields:
//
//	0: talker+type
//	1: time
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
//
// 10: units (M)
func extractGGA(f []string) (geodesy.Fix, error) {
	if len(f) < 11 {
		return geodesy.Fix{}, parseErrorf("GGA: want at least 11 fields, got %d", len(f))
	}
	lat, err := parseLatLon(f[2], f[3], "latitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	lon, err := parseLatLon(f[4], f[5], "longitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	alt, err := strconv.ParseFloat(strings.TrimSpace(f[9]), 64)
	if err != nil {
		return geodesy.Fix{}, parseErrorf("GGA: bad altitude %q", f[9])
	}
	return geodesy.Fix{LatDeg: lat, LonDeg: lon, AltM: alt}, nil
}

// RMC: Recommended Minimum Specific GNSS Data
// Fields (NMEA 0183 v2.3):
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func extractRMC(f []string) (geodesy.Fix, error) {
	if len(f) < 10 {
		return geodesy.Fix{}, parseErrorf("RMC: want at least 10 fields, got %d", len(f))
	}
	lat, err := parseLatLon(f[3], f[4], "latitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	lon, err := parseLatLon(f[5], f[6], "longitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	// RMC carries no altitude; the fix sits on the ellipsoid.
	return geodesy.Fix{LatDeg: lat, LonDeg: lon, AltM: 0}, nil
}

// GLL: Geographic Position, Latitude/Longitude
// Fields:
//
//	0: talker+type
//	1: latitude (ddmm.mmmm)
//	2: N/S
//	3: longitude (dddmm.mmmm)
//	4: E/W
func extractGLL(f []string) (geodesy.Fix, error) {
	if len(f) < 5 {
		return geodesy.Fix{}, parseErrorf("GLL: want at least 5 fields, got %d", len(f))
	}
	lat, err := parseLatLon(f[1], f[2], "latitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	lon, err := parseLatLon(f[3], f[4], "longitude")
	if err != nil {
		return geodesy.Fix{}, err
	}
	// GLL carries no altitude; the fix sits on the ellipsoid.
	return geodesy.Fix{LatDeg: lat, LonDeg: lon, AltM: 0}, nil
}

// parseLatLon parses NMEA lat/lon in ddmm.mmmm or dddmm.mmmm plus hemisphere
// into signed decimal degrees.
//
// For latitude (N/S): ddmm.mmmm
// For longitude (E/W): dddmm.mmmm
func parseLatLon(v, hemi, what string) (float64, error) {
	v = strings.TrimSpace(v)
	hemi = strings.TrimSpace(strings.ToUpper(hemi))
	if v == "" {
		return 0, parseErrorf("empty %s field", what)
	}
	if hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W" {
		return 0, parseErrorf("missing or bad %s hemisphere %q", what, hemi)
	}

	// The last two digits of the integer part are whole minutes; everything
	// before them is whole degrees.
	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, parseErrorf("%s %q too short for ddmm encoding", what, v)
	}
	// The hemisphere field carries the sign, never the value itself, so the
	// integer part must be plain digits.
	for i := 0; i < len(intPart); i++ {
		if intPart[i] < '0' || intPart[i] > '9' {
			return 0, parseErrorf("bad %s degrees in %q", what, v)
		}
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, parseErrorf("bad %s degrees in %q", what, v)
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil {
		return 0, parseErrorf("bad %s minutes in %q", what, v)
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, nil
}
