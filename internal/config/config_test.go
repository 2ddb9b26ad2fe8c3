package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/units"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trackframe.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetEllipsoid(); got.Name != geodesy.WGS84.Name {
		t.Errorf("default ellipsoid = %q, want wgs84", got.Name)
	}
	if got := cfg.GetReferenceMode(); got != RefModeGeodetic {
		t.Errorf("default reference mode = %q, want geodetic", got)
	}
	if got := cfg.GetUnits(); got != units.M {
		t.Errorf("default units = %q, want m", got)
	}
	if cfg.GetStrictChecksum() || cfg.GetVerbose() || cfg.GetSmooth() {
		t.Error("strict_checksum, verbose and smooth should default to false")
	}
	if _, ok := cfg.GetOrientation(); ok {
		t.Error("orientation should default to unset")
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"ellipsoid": "airy1830",
		"reference_mode": "ecef",
		"orientation": [48.1173, 11.5167, 545.4],
		"units": "ft",
		"strict_checksum": true,
		"smooth": true,
		"verbose": true
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetEllipsoid(); got.Name != "airy1830" {
		t.Errorf("ellipsoid = %q, want airy1830", got.Name)
	}
	if got := cfg.GetReferenceMode(); got != RefModeECEF {
		t.Errorf("reference mode = %q, want ecef", got)
	}
	orient, ok := cfg.GetOrientation()
	if !ok || orient.LatDeg != 48.1173 {
		t.Errorf("orientation = %+v ok=%v", orient, ok)
	}
	if got := cfg.GetUnits(); got != units.FT {
		t.Errorf("units = %q, want ft", got)
	}
	if !cfg.GetStrictChecksum() || !cfg.GetVerbose() {
		t.Error("expected strict_checksum and verbose true")
	}
	if !cfg.GetSmooth() {
		t.Error("expected smooth true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown ellipsoid", `{"ellipsoid": "sphere"}`},
		{"bad reference mode", `{"reference_mode": "enu"}`},
		{"bad units", `{"units": "miles"}`},
		{"orientation out of range", `{"orientation": [95, 0, 0]}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestLoadRequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackframe.yaml")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
