// Package nmea splits NMEA 0183 sentences and extracts geodetic fixes from
// position-bearing sentence types.
package nmea

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Sentence is one NMEA sentence split into its comma-delimited fields.
// Type is the three-letter sentence type with the talker prefix stripped
// (GPGGA and GNGGA both normalise to "GGA"). Fields includes the full
// talker+type identifier at index 0.
type Sentence struct {
	Type   string
	Fields []string
}

// ParseError reports a line or field that could not be parsed. The pipeline
// records these per line and continues; they never abort a batch.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "nmea: " + e.Reason
}

func parseErrorf(format string, v ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, v...)}
}

// Split tokenises a raw line into a Sentence. It requires the leading '$',
// strips a '*'-checksum suffix when present, and splits the payload on
// commas. The checksum is NOT verified here: plenty of loggers strip or
// mangle it, and fixes in such lines are still usable. Callers that want
// verification run Checksum first.
func Split(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sentence{}, parseErrorf("missing '$' prefix")
	}

	payload := line[1:]
	if star := strings.LastIndexByte(payload, '*'); star != -1 {
		payload = payload[:star]
	}

	parts := strings.Split(payload, ",")
	typeField := parts[0]
	if len(typeField) < 3 {
		return Sentence{}, parseErrorf("short sentence type %q", typeField)
	}

	// Accept any talker prefix (GP, GN, GL, ...); normalise to the last 3 chars.
	t := typeField
	if len(t) > 3 {
		t = t[len(t)-3:]
	}
	return Sentence{Type: strings.ToUpper(t), Fields: parts}, nil
}

// Checksum verifies the XOR checksum of a raw line. Lines without a '*'
// suffix fail verification in strict mode, so the error distinguishes the
// missing case.
func Checksum(line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return parseErrorf("missing '$' prefix")
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return parseErrorf("missing checksum")
	}
	payload := line[1:star]
	ck := strings.TrimSpace(line[star+1:])
	if len(ck) < 2 {
		return parseErrorf("short checksum")
	}
	want, err := hex.DecodeString(ck[:2])
	if err != nil || len(want) != 1 {
		return parseErrorf("bad checksum %q", ck[:2])
	}
	got := byte(0)
	for i := 0; i < len(payload); i++ {
		got ^= payload[i]
	}
	if got != want[0] {
		return parseErrorf("checksum mismatch: computed %02X, sentence says %02X", got, want[0])
	}
	return nil
}
