// Package units provides shared constants and validation for distance units
package units

// Unit constants
const (
	M  = "m"
	KM = "km"
	FT = "ft"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, KM, FT}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, km, ft"
}

// ConvertDistance converts a distance from meters to the target units.
// All pipeline math and storage is in meters; conversion happens only at the
// output edge.
func ConvertDistance(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case KM:
		return meters / 1000.0
	case FT:
		return meters * 3.280839895013123 // meters to international feet
	case M:
		return meters // no conversion needed
	default:
		return meters // default to meters if unknown unit
	}
}
