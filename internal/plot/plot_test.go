package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/pipeline"
)

func testPoints() []pipeline.TrackPoint {
	return []pipeline.TrackPoint{
		{Line: 1, Aligned: frame.AlignedPoint{X: 0, Y: 0, Z: 0}},
		{Line: 2, Aligned: frame.AlignedPoint{X: 120.5, Y: -40.2, Z: 2.1}},
		{Line: 3, Aligned: frame.AlignedPoint{X: 260.8, Y: -85.9, Z: 4.7}},
	}
}

func TestSaveTrackPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.png")
	if err := SaveTrackPNG(testPoints(), path); err != nil {
		t.Fatalf("SaveTrackPNG() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat plot file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestSaveTrackPNGEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.png")
	if err := SaveTrackPNG(nil, path); err == nil {
		t.Error("SaveTrackPNG() with no points returned nil error")
	}
}

func TestSaveProfilePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.png")
	if err := SaveProfilePNG(testPoints(), path); err != nil {
		t.Fatalf("SaveProfilePNG() error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("profile plot missing or empty (err=%v)", err)
	}
}

func TestRenderTrackHTML(t *testing.T) {
	res := &pipeline.Result{
		RunID:     "test-run",
		StartedAt: time.Now(),
		Reference: geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 545.4},
		Ellipsoid: "wgs84",
		Points:    testPoints(),
	}

	var buf bytes.Buffer
	if err := RenderTrackHTML(&buf, res); err != nil {
		t.Fatalf("RenderTrackHTML() error = %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "echarts") {
		t.Error("rendered HTML does not reference echarts")
	}
	if !strings.Contains(html, "test-run") {
		t.Error("rendered HTML does not mention the run ID")
	}
}

func TestRenderTrackHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrackHTML(&buf, &pipeline.Result{}); err == nil {
		t.Error("RenderTrackHTML() with no points returned nil error")
	}
}
