// Package pipeline chains the NMEA extractor, geodetic→ECEF conversion,
// centering and ENU alignment over an ordered batch of sentence lines.
package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/monitoring"
	"github.com/banshee-data/trackframe/internal/nmea"
)

// FailureKind classifies why a line produced no output point.
type FailureKind string

const (
	// FailureParse covers unsplittable lines and recognised position
	// sentences with malformed fields.
	FailureParse FailureKind = "parse"
	// FailureValidation covers fixes with out-of-range coordinates.
	FailureValidation FailureKind = "validation"
	// FailureSkipped covers well-formed sentences that carry no position.
	// Not an error condition; recorded for diagnostics only.
	FailureSkipped FailureKind = "skipped"
)

// Failure records one line that produced no output point.
type Failure struct {
	Line    int         `json:"line"` // 1-based input line number
	Raw     string      `json:"raw"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// TrackPoint pairs an aligned output point with the fix and line it came
// from. Points appear in input order.
type TrackPoint struct {
	Line    int                `json:"line"`
	Fix     geodesy.Fix        `json:"fix"`
	ECEF    geodesy.ECEF       `json:"ecef"`
	Aligned frame.AlignedPoint `json:"aligned"`
}

// Result is the outcome of one pipeline run: the ordered aligned track and
// the parallel failure list. Points holds only successfully converted fixes;
// skipped lines appear only in Failures.
type Result struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Reference geodesy.Fix   `json:"reference"`
	Ellipsoid string        `json:"ellipsoid"`
	Points    []TrackPoint  `json:"points"`
	Failures  []Failure     `json:"failures"`
}

// Options configures one run.
type Options struct {
	// StrictChecksum rejects lines whose NMEA checksum is absent or wrong.
	// Off by default: checksum hygiene is the transport's job and loggers
	// routinely strip the suffix.
	StrictChecksum bool
}

// Run converts an ordered batch of raw NMEA lines into aligned points. The
// reference is resolved (origin + rotation matrix) exactly once before the
// loop; per-line failures are recorded and never abort the batch. A
// degenerate reference surfaces from frame.NewReference before Run is
// reachable, so the only error path here is nil.
func Run(lines []string, ref *frame.Reference, ell geodesy.Ellipsoid, opts Options) *Result {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Reference: ref.Orientation(),
		Ellipsoid: ell.Name,
	}

	for i, raw := range lines {
		lineNo := i + 1

		if opts.StrictChecksum {
			if err := nmea.Checksum(raw); err != nil {
				res.fail(lineNo, raw, FailureParse, err)
				continue
			}
		}

		sentence, err := nmea.Split(raw)
		if err != nil {
			res.fail(lineNo, raw, FailureParse, err)
			continue
		}

		fix, err := nmea.ExtractFix(sentence)
		if errors.Is(err, nmea.ErrNotPosition) {
			res.fail(lineNo, raw, FailureSkipped, err)
			continue
		}
		if err != nil {
			res.fail(lineNo, raw, FailureParse, err)
			continue
		}

		if err := fix.Validate(); err != nil {
			res.fail(lineNo, raw, FailureValidation, err)
			continue
		}

		ecef := fix.ToECEF(ell)
		res.Points = append(res.Points, TrackPoint{
			Line:    lineNo,
			Fix:     fix,
			ECEF:    ecef,
			Aligned: ref.Align(ecef),
		})
	}

	res.Elapsed = time.Since(res.StartedAt)
	monitoring.Debugf("pipeline run %s: %d lines in, %d points out, %d recorded failures (%v)",
		res.RunID, len(lines), len(res.Points), len(res.Failures), res.Elapsed)
	return res
}

func (r *Result) fail(line int, raw string, kind FailureKind, err error) {
	r.Failures = append(r.Failures, Failure{
		Line:    line,
		Raw:     raw,
		Kind:    kind,
		Message: err.Error(),
	})
}

// FailureCount returns the number of recorded lines of the given kind.
func (r *Result) FailureCount(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
