package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/trackframe/internal/config"
	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/pipeline"
	"github.com/banshee-data/trackframe/internal/units"
)

func TestParseTriple(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    [3]float64
		wantErr bool
	}{
		{name: "geodetic", arg: "48.1173,11.5167,545.4", want: [3]float64{48.1173, 11.5167, 545.4}},
		{name: "spaces allowed", arg: " 48.0 , -11.5 , 0 ", want: [3]float64{48.0, -11.5, 0}},
		{name: "too few values", arg: "48.0,11.5", wantErr: true},
		{name: "not a number", arg: "48.0,eleven,0", wantErr: true},
		{name: "empty", arg: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTriple(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTriple() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseTriple() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildReferenceGeodetic(t *testing.T) {
	ref, err := buildReference("48.1173,11.5167,545.4", config.RefModeGeodetic, &config.Config{}, geodesy.WGS84)
	if err != nil {
		t.Fatalf("buildReference() error = %v", err)
	}
	want := geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 545.4}
	if ref.Orientation() != want {
		t.Errorf("orientation = %+v, want %+v", ref.Orientation(), want)
	}
}

func TestBuildReferenceECEF(t *testing.T) {
	origin := geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 545.4}.ToECEF(geodesy.WGS84)
	arg := strings.Join([]string{
		formatFloat(origin.X), formatFloat(origin.Y), formatFloat(origin.Z),
	}, ",")

	ref, err := buildReference(arg, config.RefModeECEF, &config.Config{}, geodesy.WGS84)
	if err != nil {
		t.Fatalf("buildReference() error = %v", err)
	}
	got := ref.Origin()
	if math.Abs(got.X-origin.X) > 1e-6 || math.Abs(got.Y-origin.Y) > 1e-6 || math.Abs(got.Z-origin.Z) > 1e-6 {
		t.Errorf("origin = %+v, want %+v", got, origin)
	}
}

func TestBuildReferenceOrientationOverride(t *testing.T) {
	orientation := [3]float64{47.0, 11.0, 0}
	cfg := &config.Config{Orientation: &orientation}

	ref, err := buildReference("48.1173,11.5167,545.4", config.RefModeGeodetic, cfg, geodesy.WGS84)
	if err != nil {
		t.Fatalf("buildReference() error = %v", err)
	}
	want := geodesy.Fix{LatDeg: 47.0, LonDeg: 11.0, AltM: 0}
	if ref.Orientation() != want {
		t.Errorf("orientation = %+v, want %+v", ref.Orientation(), want)
	}
}

func TestBuildReferenceECEFOrientationOverride(t *testing.T) {
	origin := geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 545.4}.ToECEF(geodesy.WGS84)
	arg := strings.Join([]string{
		formatFloat(origin.X), formatFloat(origin.Y), formatFloat(origin.Z),
	}, ",")
	orientation := [3]float64{47.0, 11.0, 0}
	cfg := &config.Config{Orientation: &orientation}

	ref, err := buildReference(arg, config.RefModeECEF, cfg, geodesy.WGS84)
	if err != nil {
		t.Fatalf("buildReference() error = %v", err)
	}
	// The literal ECEF origin survives exactly, no geodetic round trip.
	if ref.Origin() != origin {
		t.Errorf("origin = %+v, want the literal %+v", ref.Origin(), origin)
	}
	want := geodesy.Fix{LatDeg: 47.0, LonDeg: 11.0, AltM: 0}
	if ref.Orientation() != want {
		t.Errorf("orientation = %+v, want %+v", ref.Orientation(), want)
	}
}

func TestBuildReferenceBadMode(t *testing.T) {
	if _, err := buildReference("48,11,0", "polar", &config.Config{}, geodesy.WGS84); err == nil {
		t.Error("buildReference() with unknown mode returned nil error")
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func testRunResult(t *testing.T) *pipeline.Result {
	t.Helper()
	ref := geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5166666667, AltM: 545.4}
	fr, err := frame.NewReference(ref, geodesy.WGS84)
	if err != nil {
		t.Fatalf("NewReference() error = %v", err)
	}
	return pipeline.Run([]string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"bad line",
	}, fr, geodesy.WGS84, pipeline.Options{})
}

func TestWriteCSV(t *testing.T) {
	res := testRunResult(t)

	var buf bytes.Buffer
	if err := writeCSV(&buf, res, units.M); err != nil {
		t.Fatalf("writeCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1+len(res.Points) {
		t.Fatalf("got %d CSV lines, want %d", len(lines), 1+len(res.Points))
	}
	if !strings.HasPrefix(lines[0], "line,lat_deg,lon_deg,alt_m,east_m") {
		t.Errorf("unexpected CSV header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,") {
		t.Errorf("first data row %q does not carry line number 1", lines[1])
	}
}

func TestWriteJSONConvertsUnits(t *testing.T) {
	res := testRunResult(t)

	var buf bytes.Buffer
	if err := writeJSON(&buf, res, units.KM); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var out jsonOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Units != units.KM {
		t.Errorf("units = %q, want %q", out.Units, units.KM)
	}
	if len(out.Points) != len(res.Points) {
		t.Fatalf("got %d points, want %d", len(out.Points), len(res.Points))
	}
	wantNorth := res.Points[0].Aligned.Y / 1000.0
	if math.Abs(out.Points[0].North-wantNorth) > 1e-12 {
		t.Errorf("north = %v, want %v km", out.Points[0].North, wantNorth)
	}
	if len(out.Failures) != len(res.Failures) {
		t.Errorf("got %d failures, want %d", len(out.Failures), len(res.Failures))
	}
}

func TestApplySmoothingKeepsShape(t *testing.T) {
	res := testRunResult(t)
	wantLines := make([]int, len(res.Points))
	for i, p := range res.Points {
		wantLines[i] = p.Line
	}

	applySmoothing(res)

	if len(res.Points) == 0 {
		t.Fatal("test run produced no points")
	}
	for i, p := range res.Points {
		if p.Line != wantLines[i] {
			t.Errorf("point %d line = %d, want %d", i, p.Line, wantLines[i])
		}
	}
	// The first point seeds the filter and passes through unchanged.
	if math.Abs(res.Points[0].Aligned.X) > 1 {
		t.Errorf("first smoothed point east = %v, want near the reference", res.Points[0].Aligned.X)
	}
}

func TestIncrementPath(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "track.csv")
	if got := incrementPath(missing); got != missing {
		t.Errorf("missing path changed: %q", got)
	}

	if err := os.WriteFile(missing, nil, 0644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "track2.csv")
	if got := incrementPath(missing); got != want {
		t.Errorf("incrementPath = %q, want %q", got, want)
	}

	if err := os.WriteFile(want, nil, 0644); err != nil {
		t.Fatal(err)
	}
	want3 := filepath.Join(dir, "track3.csv")
	if got := incrementPath(missing); got != want3 {
		t.Errorf("incrementPath = %q, want %q", got, want3)
	}

	// Directories take the counter with no extension handling.
	runs := filepath.Join(dir, "runs")
	if err := os.Mkdir(runs, 0755); err != nil {
		t.Fatal(err)
	}
	if got := incrementPath(runs); got != runs+"2" {
		t.Errorf("incrementPath(dir) = %q, want %q", got, runs+"2")
	}
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.nmea")
	content := "$GPGGA,1\r\n\r\n$GPRMC,2\n   \n$GPGLL,3"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines() error = %v", err)
	}
	want := []string{"$GPGGA,1", "$GPRMC,2", "$GPGLL,3"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReadLinesMissingFile(t *testing.T) {
	if _, err := readLines("no-such-file.nmea"); err == nil {
		t.Error("readLines() for missing file returned nil error")
	}
}
