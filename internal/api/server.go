// Package api serves stored runs and their aligned tracks as JSON, plus an
// interactive chart view rendered straight from the database.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trackframe/internal/monitoring"
	"github.com/banshee-data/trackframe/internal/pipeline"
	"github.com/banshee-data/trackframe/internal/plot"
	"github.com/banshee-data/trackframe/internal/trackdb"
	"github.com/banshee-data/trackframe/internal/units"
	"github.com/banshee-data/trackframe/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *trackdb.DB
	units string
}

func NewServer(db *trackdb.DB, units string) *Server {
	return &Server{
		db:    db,
		units: units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/track", s.showTrack)
	mux.HandleFunc("/api/failures", s.showFailures)
	mux.HandleFunc("/api/track.html", s.showTrackChart)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/healthz", s.healthz)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runs, err := s.db.Runs()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []trackdb.RunSummary{}
	}

	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

// TrackPointAPI is the wire shape of one aligned point. Geodetic fields stay
// in degrees and meters; the aligned axes carry the server's display units.
type TrackPointAPI struct {
	Line  int     `json:"line"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
	Up    float64 `json:"up"`
	Units string  `json:"units"`
}

func (s *Server) trackPointToAPI(p pipeline.TrackPoint) TrackPointAPI {
	return TrackPointAPI{
		Line:  p.Line,
		Lat:   p.Fix.LatDeg,
		Lon:   p.Fix.LonDeg,
		Alt:   p.Fix.AltM,
		East:  units.ConvertDistance(p.Aligned.X, s.units),
		North: units.ConvertDistance(p.Aligned.Y, s.units),
		Up:    units.ConvertDistance(p.Aligned.Z, s.units),
		Units: s.units,
	}
}

func (s *Server) runIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'run_id' parameter")
		return "", false
	}
	return runID, true
}

func (s *Server) showTrack(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runID, ok := s.runIDParam(w, r)
	if !ok {
		return
	}

	points, err := s.db.TrackPoints(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve track: %v", err))
		return
	}

	apiPoints := make([]TrackPointAPI, len(points))
	for i, p := range points {
		apiPoints[i] = s.trackPointToAPI(p)
	}

	if err := json.NewEncoder(w).Encode(apiPoints); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write track")
		return
	}
}

func (s *Server) showFailures(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runID, ok := s.runIDParam(w, r)
	if !ok {
		return
	}

	failures, err := s.db.Failures(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve failures: %v", err))
		return
	}
	if failures == nil {
		failures = []pipeline.Failure{}
	}

	if err := json.NewEncoder(w).Encode(failures); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write failures")
		return
	}
}

// showTrackChart renders the run's aligned track as an interactive scatter.
// This is a debugging view; axes are always in meters.
func (s *Server) showTrackChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "Missing 'run_id' parameter", http.StatusBadRequest)
		return
	}

	points, err := s.db.TrackPoints(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve track: %v", err), http.StatusInternalServerError)
		return
	}
	if len(points) == 0 {
		http.Error(w, "No points for run", http.StatusNotFound)
		return
	}

	res := &pipeline.Result{RunID: runID, Points: points}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := plot.RenderTrackHTML(w, res); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units": s.units,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
