package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}
	for _, u := range []string{"", "miles", "Mm", "metres"} {
		if IsValid(u) {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}

func TestConvertDistance(t *testing.T) {
	tests := []struct {
		name   string
		meters float64
		units  string
		want   float64
	}{
		{"meters passthrough", 1500, M, 1500},
		{"kilometers", 1500, KM, 1.5},
		{"feet", 1, FT, 3.280839895013123},
		{"unknown unit falls back to meters", 42, "cubits", 42},
		{"zero", 0, FT, 0},
		{"negative", -100, KM, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertDistance(tt.meters, tt.units)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ConvertDistance(%v, %q) = %v, want %v", tt.meters, tt.units, got, tt.want)
			}
		})
	}
}
