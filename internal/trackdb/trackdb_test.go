package trackdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/pipeline"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	ref := geodesy.Fix{LatDeg: 48.1173, LonDeg: 11.5166666667, AltM: 545.4}
	fr, err := frame.NewReference(ref, geodesy.WGS84)
	require.NoError(t, err)
	lines := []string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00*74",
		"$GPGGA,123520,4707.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"not a sentence",
	}
	return pipeline.Run(lines, fr, geodesy.WGS84, pipeline.Options{})
}

func TestMigrateVersion(t *testing.T) {
	db := testDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, version, "expected applied migrations")
}

func TestMigrateUpIdempotent(t *testing.T) {
	db := testDB(t)

	// NewDB already migrated; a second pass must be a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestRecordRunRoundTrip(t *testing.T) {
	db := testDB(t)
	res := testResult(t)

	require.NoError(t, db.RecordRun(res, "testdata/sample.nmea"))

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, res.RunID, run.RunID)
	assert.Equal(t, "testdata/sample.nmea", run.Source)
	assert.Equal(t, "wgs84", run.Ellipsoid)
	assert.Equal(t, res.Reference, run.Reference)
	assert.Equal(t, len(res.Points), run.PointCount)
	assert.Equal(t, len(res.Failures), run.FailureCount)

	points, err := db.TrackPoints(res.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Points, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	failures, err := db.Failures(res.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Failures, failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
}

func TestRunsOrderedByStart(t *testing.T) {
	db := testDB(t)

	older := testResult(t)
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := testResult(t)

	require.NoError(t, db.RecordRun(older, "older.nmea"))
	require.NoError(t, db.RecordRun(newer, "newer.nmea"))

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID, "most recent run should come first")
}

func TestTrackPointsUnknownRun(t *testing.T) {
	db := testDB(t)

	points, err := db.TrackPoints("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, points)
}
