// Package trackdb persists pipeline runs and their aligned track points to
// SQLite so converted tracks can be listed, re-plotted and served without
// re-processing the source sentences.
package trackdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/pipeline"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the SQLite database without touching the schema. Migrations
// manage the schema; use NewDB to open and migrate in one step.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the database and applies any pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID        string      `json:"run_id"`
	StartedAt    time.Time   `json:"started_at"`
	Source       string      `json:"source"`
	Ellipsoid    string      `json:"ellipsoid"`
	Reference    geodesy.Fix `json:"reference"`
	PointCount   int         `json:"point_count"`
	FailureCount int         `json:"failure_count"`
}

// RecordRun stores a pipeline result: the run row, every aligned point in
// order, and the failure list, all in one transaction.
func (db *DB) RecordRun(res *pipeline.Result, source string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (
			run_id, started_at, elapsed_ns, source, ellipsoid,
			ref_lat, ref_lon, ref_alt, point_count, failure_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.UTC(), res.Elapsed.Nanoseconds(), source, res.Ellipsoid,
		res.Reference.LatDeg, res.Reference.LonDeg, res.Reference.AltM,
		len(res.Points), len(res.Failures),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	pointStmt, err := tx.Prepare(`INSERT INTO track_points (
		run_id, seq, line, lat, lon, alt,
		ecef_x, ecef_y, ecef_z, east, north, up
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	for seq, p := range res.Points {
		if _, err := pointStmt.Exec(
			res.RunID, seq, p.Line,
			p.Fix.LatDeg, p.Fix.LonDeg, p.Fix.AltM,
			p.ECEF.X, p.ECEF.Y, p.ECEF.Z,
			p.Aligned.X, p.Aligned.Y, p.Aligned.Z,
		); err != nil {
			return fmt.Errorf("failed to insert point %d: %w", seq, err)
		}
	}

	failStmt, err := tx.Prepare(`INSERT INTO run_failures (
		run_id, line, raw, kind, message
	) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer failStmt.Close()

	for _, f := range res.Failures {
		if _, err := failStmt.Exec(res.RunID, f.Line, f.Raw, string(f.Kind), f.Message); err != nil {
			return fmt.Errorf("failed to insert failure for line %d: %w", f.Line, err)
		}
	}

	return tx.Commit()
}

// Runs lists stored runs, most recent first.
func (db *DB) Runs() ([]RunSummary, error) {
	rows, err := db.Query(`SELECT run_id, started_at, source, ellipsoid,
		ref_lat, ref_lon, ref_alt, point_count, failure_count
		FROM runs ORDER BY started_at DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.Source, &r.Ellipsoid,
			&r.Reference.LatDeg, &r.Reference.LonDeg, &r.Reference.AltM,
			&r.PointCount, &r.FailureCount,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// TrackPoints returns a run's aligned points in sequence order.
func (db *DB) TrackPoints(runID string) ([]pipeline.TrackPoint, error) {
	rows, err := db.Query(`SELECT line, lat, lon, alt,
		ecef_x, ecef_y, ecef_z, east, north, up
		FROM track_points WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []pipeline.TrackPoint
	for rows.Next() {
		var p pipeline.TrackPoint
		var aligned frame.AlignedPoint
		if err := rows.Scan(
			&p.Line, &p.Fix.LatDeg, &p.Fix.LonDeg, &p.Fix.AltM,
			&p.ECEF.X, &p.ECEF.Y, &p.ECEF.Z,
			&aligned.X, &aligned.Y, &aligned.Z,
		); err != nil {
			return nil, err
		}
		p.Aligned = aligned
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return points, nil
}

// Failures returns a run's recorded failures in line order.
func (db *DB) Failures(runID string) ([]pipeline.Failure, error) {
	rows, err := db.Query(`SELECT line, raw, kind, message
		FROM run_failures WHERE run_id = ? ORDER BY line`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []pipeline.Failure
	for rows.Next() {
		var f pipeline.Failure
		var kind string
		if err := rows.Scan(&f.Line, &f.Raw, &kind, &f.Message); err != nil {
			return nil, err
		}
		f.Kind = pipeline.FailureKind(kind)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return failures, nil
}
