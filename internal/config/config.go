// Package config loads run configuration from a JSON file. The schema uses
// pointer fields so partial configs are safe: anything omitted falls back to
// the Get* defaults, and CLI flags override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/units"
)

// Reference interpretation modes for the rotation-point argument.
const (
	// RefModeGeodetic reads the reference triple as lat°, lon°, alt m.
	RefModeGeodetic = "geodetic"
	// RefModeECEF reads the reference triple as literal ECEF x, y, z meters;
	// the orientation is derived from its geodetic inverse.
	RefModeECEF = "ecef"
)

// Config is the root configuration. The reference point itself normally
// arrives via the -rotp flag; the file carries the interpretation and
// defaults around it.
type Config struct {
	// Ellipsoid names the reference ellipsoid for the whole run.
	Ellipsoid *string `json:"ellipsoid,omitempty"`

	// ReferenceMode selects how the reference triple is interpreted.
	ReferenceMode *string `json:"reference_mode,omitempty"`

	// Orientation optionally decouples the rotation basis from the
	// translation origin: a geodetic lat°, lon°, alt m triple. When unset
	// the reference point serves both roles.
	Orientation *[3]float64 `json:"orientation,omitempty"`

	// Units for distance values at the output edge.
	Units *string `json:"units,omitempty"`

	// StrictChecksum rejects lines with absent or wrong NMEA checksums.
	StrictChecksum *bool `json:"strict_checksum,omitempty"`

	// Smooth applies constant-velocity Kalman smoothing to the aligned track.
	Smooth *bool `json:"smooth,omitempty"`

	// Verbose enables debug logging. Affects logging only, never results.
	Verbose *bool `json:"verbose,omitempty"`
}

// Load reads and validates a Config from a JSON file.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Ellipsoid != nil {
		if _, err := geodesy.EllipsoidByName(*c.Ellipsoid); err != nil {
			return err
		}
	}
	if c.ReferenceMode != nil {
		switch *c.ReferenceMode {
		case RefModeGeodetic, RefModeECEF:
		default:
			return fmt.Errorf("reference_mode must be %q or %q, got %q", RefModeGeodetic, RefModeECEF, *c.ReferenceMode)
		}
	}
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}
	if c.Orientation != nil {
		o := *c.Orientation
		fix := geodesy.Fix{LatDeg: o[0], LonDeg: o[1], AltM: o[2]}
		if err := fix.Validate(); err != nil {
			return fmt.Errorf("orientation: %w", err)
		}
	}
	return nil
}

// GetEllipsoid returns the configured ellipsoid or WGS84.
func (c *Config) GetEllipsoid() geodesy.Ellipsoid {
	if c.Ellipsoid == nil {
		return geodesy.WGS84
	}
	e, err := geodesy.EllipsoidByName(*c.Ellipsoid)
	if err != nil {
		return geodesy.WGS84
	}
	return e
}

// GetReferenceMode returns the configured mode or RefModeGeodetic.
func (c *Config) GetReferenceMode() string {
	if c.ReferenceMode == nil {
		return RefModeGeodetic
	}
	return *c.ReferenceMode
}

// GetOrientation returns the orientation override as a Fix, or ok=false when
// the reference point should provide the orientation.
func (c *Config) GetOrientation() (geodesy.Fix, bool) {
	if c.Orientation == nil {
		return geodesy.Fix{}, false
	}
	o := *c.Orientation
	return geodesy.Fix{LatDeg: o[0], LonDeg: o[1], AltM: o[2]}, true
}

// GetUnits returns the output units or meters.
func (c *Config) GetUnits() string {
	if c.Units == nil {
		return units.M
	}
	return *c.Units
}

// GetStrictChecksum returns the strict_checksum value or false.
func (c *Config) GetStrictChecksum() bool {
	if c.StrictChecksum == nil {
		return false
	}
	return *c.StrictChecksum
}

// GetSmooth returns the smooth value or false.
func (c *Config) GetSmooth() bool {
	if c.Smooth == nil {
		return false
	}
	return *c.Smooth
}

// GetVerbose returns the verbose value or false.
func (c *Config) GetVerbose() bool {
	if c.Verbose == nil {
		return false
	}
	return *c.Verbose
}
