// Command trackframe converts NMEA position sentences into a local
// East-North-Up frame anchored at a reference point. It reads a sentence log
// (or a live UDP/serial/pcap feed), emits the aligned track as CSV or JSON,
// and can persist runs to SQLite and serve them over HTTP.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/trackframe/internal/api"
	"github.com/banshee-data/trackframe/internal/config"
	"github.com/banshee-data/trackframe/internal/frame"
	"github.com/banshee-data/trackframe/internal/geodesy"
	"github.com/banshee-data/trackframe/internal/ingest"
	"github.com/banshee-data/trackframe/internal/monitoring"
	"github.com/banshee-data/trackframe/internal/pipeline"
	"github.com/banshee-data/trackframe/internal/plot"
	"github.com/banshee-data/trackframe/internal/serialmux"
	"github.com/banshee-data/trackframe/internal/smooth"
	"github.com/banshee-data/trackframe/internal/trackdb"
	"github.com/banshee-data/trackframe/internal/units"
	"github.com/banshee-data/trackframe/internal/version"
)

var (
	rotp       = flag.String("rotp", "", "Reference point as 'lat,lon,alt' degrees and meters (or 'x,y,z' ECEF meters with -ref-mode=ecef)")
	input      = flag.String("input", "", "NMEA sentence log to convert ('-' for stdin)")
	refMode    = flag.String("ref-mode", "", "Reference interpretation: geodetic or ecef")
	ellipsoid  = flag.String("ellipsoid", "", "Reference ellipsoid: wgs84, grs80, airy1830, intl1924")
	unitsFlag  = flag.String("units", "", "Distance units for output: m, km, ft")
	format     = flag.String("format", "csv", "Output format: csv or json")
	output     = flag.String("output", "", "Output file ('' or '-' for stdout)")
	dbPath     = flag.String("db", "", "SQLite database to record runs into")
	plotPath   = flag.String("plot", "", "Write an east/north track PNG to this path")
	htmlPath   = flag.String("plot-html", "", "Write an interactive track HTML to this path")
	listen     = flag.String("listen", "", "Serve the run database over HTTP on this address (requires -db)")
	serialPort = flag.String("serial", "", "Read live sentences from this serial port")
	serialBaud = flag.Int("baud", 0, "Serial baud rate (default 4800)")
	udpAddr    = flag.String("udp", "", "Read live sentences from this UDP address (e.g. :10110)")
	pcapFile   = flag.String("pcap", "", "Replay sentences from this capture file (build with -tags=pcap)")
	pcapPort   = flag.Int("pcap-port", 10110, "UDP port to filter when replaying a capture")
	strict     = flag.Bool("strict-checksum", false, "Reject sentences with absent or wrong checksums")
	smoothFlag = flag.Bool("smooth", false, "Apply constant-velocity Kalman smoothing to the aligned track")
	increment  = flag.Bool("increment", false, "Number output paths instead of overwriting existing files (track.csv -> track2.csv)")
	configPath = flag.String("config", "", "JSON config file (flags override file values)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	// flags override the config file
	ell := cfg.GetEllipsoid()
	if setFlags["ellipsoid"] {
		var err error
		ell, err = geodesy.EllipsoidByName(*ellipsoid)
		if err != nil {
			log.Fatalf("invalid ellipsoid: %v", err)
		}
	}
	mode := cfg.GetReferenceMode()
	if setFlags["ref-mode"] {
		mode = *refMode
	}
	unit := cfg.GetUnits()
	if setFlags["units"] {
		unit = *unitsFlag
	}
	if !units.IsValid(unit) {
		log.Fatalf("invalid units %q: must be one of %s", unit, units.GetValidUnitsString())
	}
	strictChecksum := cfg.GetStrictChecksum()
	if setFlags["strict-checksum"] {
		strictChecksum = *strict
	}
	smoothTrack := cfg.GetSmooth()
	if setFlags["smooth"] {
		smoothTrack = *smoothFlag
	}
	if *verbose || cfg.GetVerbose() {
		monitoring.SetVerbose(true)
	}
	if *format != "csv" && *format != "json" {
		log.Fatalf("invalid format %q: must be csv or json", *format)
	}

	haveSource := *input != "" || *udpAddr != "" || *serialPort != "" || *pcapFile != ""
	if !haveSource && *listen == "" {
		flag.Usage()
		log.Fatal("nothing to do: provide an input source or -listen")
	}

	var ref *frame.Reference
	if haveSource {
		if *rotp == "" {
			log.Fatal("a reference point (-rotp) is required to convert sentences")
		}
		var err error
		ref, err = buildReference(*rotp, mode, cfg, ell)
		if err != nil {
			log.Fatalf("failed to resolve reference: %v", err)
		}
	}

	var db *trackdb.DB
	if *dbPath != "" {
		var err error
		db, err = trackdb.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
	}
	if *listen != "" && db == nil {
		log.Fatal("-listen requires -db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, db, unit)
		}()
	}

	if haveSource {
		lines, source, err := collectLines(ctx)
		if err != nil {
			log.Fatalf("failed to read sentences: %v", err)
		}

		opts := pipeline.Options{StrictChecksum: strictChecksum}
		res := pipeline.Run(lines, ref, ell, opts)
		if smoothTrack {
			applySmoothing(res)
		}
		log.Printf("converted %d of %d lines (%d parse, %d validation, %d skipped)",
			len(res.Points), len(lines),
			res.FailureCount(pipeline.FailureParse),
			res.FailureCount(pipeline.FailureValidation),
			res.FailureCount(pipeline.FailureSkipped))

		if *increment {
			if *output != "" && *output != "-" {
				*output = incrementPath(*output)
			}
			if *plotPath != "" {
				*plotPath = incrementPath(*plotPath)
			}
			if *htmlPath != "" {
				*htmlPath = incrementPath(*htmlPath)
			}
		}

		if err := writeResult(res, *format, *output, unit); err != nil {
			log.Fatalf("failed to write output: %v", err)
		}
		if db != nil {
			if err := db.RecordRun(res, source); err != nil {
				log.Fatalf("failed to record run: %v", err)
			}
			log.Printf("recorded run %s", res.RunID)
		}
		if *plotPath != "" {
			if err := plot.SaveTrackPNG(res.Points, *plotPath); err != nil {
				log.Fatalf("failed to plot track: %v", err)
			}
		}
		if *htmlPath != "" {
			f, err := os.Create(*htmlPath)
			if err != nil {
				log.Fatalf("failed to create %s: %v", *htmlPath, err)
			}
			if err := plot.RenderTrackHTML(f, res); err != nil {
				f.Close()
				log.Fatalf("failed to render track: %v", err)
			}
			f.Close()
		}
	}

	wg.Wait()
}

// buildReference resolves the -rotp triple into a frame reference per the
// configured mode, applying any orientation override from the config file.
func buildReference(arg, mode string, cfg *config.Config, ell geodesy.Ellipsoid) (*frame.Reference, error) {
	t, err := parseTriple(arg)
	if err != nil {
		return nil, err
	}

	orientation, hasOrientation := cfg.GetOrientation()

	switch mode {
	case config.RefModeECEF:
		p := geodesy.ECEF{X: t[0], Y: t[1], Z: t[2]}
		if hasOrientation {
			return frame.NewReferenceOrientedECEF(p, orientation, ell)
		}
		return frame.NewReferenceECEF(p, ell)
	case config.RefModeGeodetic, "":
		origin := geodesy.Fix{LatDeg: t[0], LonDeg: t[1], AltM: t[2]}
		if hasOrientation {
			return frame.NewReferenceOriented(origin, orientation, ell)
		}
		return frame.NewReference(origin, ell)
	default:
		return nil, fmt.Errorf("unknown reference mode %q", mode)
	}
}

// applySmoothing replaces the aligned coordinates with their Kalman-filtered
// values. Point order, line numbers and the geodetic fixes stay untouched.
func applySmoothing(res *pipeline.Result) {
	aligned := make([]frame.AlignedPoint, len(res.Points))
	for i, p := range res.Points {
		aligned[i] = p.Aligned
	}
	for i, a := range smooth.New(smooth.DefaultConfig()).Smooth(aligned) {
		res.Points[i].Aligned = a
	}
}

// incrementPath returns path unchanged when nothing exists there; otherwise
// it appends the first free counter, preserving any file extension
// (track.csv -> track2.csv, runs -> runs2).
func incrementPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 2; n < 10000; n++ {
		p := fmt.Sprintf("%s%d%s", stem, n, ext)
		if _, err := os.Stat(p); err != nil {
			return p
		}
	}
	return path
}

// parseTriple parses a comma-separated triple of floats.
func parseTriple(arg string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("value %d %q: %w", i+1, p, err)
		}
		out[i] = v
	}
	return out, nil
}

// collectLines gathers sentences from whichever source was configured. Live
// sources accumulate until the context is cancelled, then the batch converts
// as a whole so ordering guarantees match file input.
func collectLines(ctx context.Context) ([]string, string, error) {
	switch {
	case *input != "":
		lines, err := readLines(*input)
		return lines, *input, err

	case *udpAddr != "":
		var mu sync.Mutex
		var lines []string
		listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
			Address: *udpAddr,
			Handler: func(line string) {
				mu.Lock()
				lines = append(lines, line)
				mu.Unlock()
			},
		})
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			return nil, "", err
		}
		mu.Lock()
		defer mu.Unlock()
		return lines, "udp:" + *udpAddr, nil

	case *pcapFile != "":
		var lines []string
		err := ingest.ReplayPCAP(ctx, *pcapFile, *pcapPort, func(line string) {
			lines = append(lines, line)
		})
		if err != nil && err != context.Canceled {
			return nil, "", err
		}
		return lines, *pcapFile, nil

	case *serialPort != "":
		return collectSerial(ctx)
	}
	return nil, "", fmt.Errorf("no input source configured")
}

func collectSerial(ctx context.Context) ([]string, string, error) {
	mux, err := serialmux.NewRealSerialMux(*serialPort, serialmux.PortOptions{BaudRate: *serialBaud})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open serial port: %w", err)
	}
	defer mux.Close()

	var mu sync.Mutex
	var lines []string

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	id, c := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case line, ok := <-c:
			if !ok {
				mu.Lock()
				defer mu.Unlock()
				return lines, "serial:" + *serialPort, nil
			}
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		case err := <-monitorDone:
			if err != nil && err != context.Canceled {
				return nil, "", err
			}
			mu.Lock()
			defer mu.Unlock()
			return lines, "serial:" + *serialPort, nil
		}
	}
}

// readLines reads a sentence log, one sentence per line. Blank lines are
// dropped; everything else stays, the pipeline records its own failures.
func readLines(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func writeResult(res *pipeline.Result, format, path, unit string) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return writeJSON(w, res, unit)
	default:
		return writeCSV(w, res, unit)
	}
}

// writeCSV emits one row per converted point: line number, the geodetic fix
// and the aligned east/north/up in the requested units.
func writeCSV(w io.Writer, res *pipeline.Result, unit string) error {
	if _, err := fmt.Fprintf(w, "line,lat_deg,lon_deg,alt_m,east_%s,north_%s,up_%s\n", unit, unit, unit); err != nil {
		return err
	}
	for _, p := range res.Points {
		_, err := fmt.Fprintf(w, "%d,%.9f,%.9f,%.3f,%.6f,%.6f,%.6f\n",
			p.Line, p.Fix.LatDeg, p.Fix.LonDeg, p.Fix.AltM,
			units.ConvertDistance(p.Aligned.X, unit),
			units.ConvertDistance(p.Aligned.Y, unit),
			units.ConvertDistance(p.Aligned.Z, unit))
		if err != nil {
			return err
		}
	}
	return nil
}

type jsonPoint struct {
	Line  int     `json:"line"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
	Up    float64 `json:"up"`
}

type jsonOutput struct {
	RunID     string             `json:"run_id"`
	Reference geodesy.Fix        `json:"reference"`
	Ellipsoid string             `json:"ellipsoid"`
	Units     string             `json:"units"`
	Points    []jsonPoint        `json:"points"`
	Failures  []pipeline.Failure `json:"failures"`
}

func writeJSON(w io.Writer, res *pipeline.Result, unit string) error {
	out := jsonOutput{
		RunID:     res.RunID,
		Reference: res.Reference,
		Ellipsoid: res.Ellipsoid,
		Units:     unit,
		Points:    make([]jsonPoint, len(res.Points)),
		Failures:  res.Failures,
	}
	for i, p := range res.Points {
		out.Points[i] = jsonPoint{
			Line:  p.Line,
			Lat:   p.Fix.LatDeg,
			Lon:   p.Fix.LonDeg,
			Alt:   p.Fix.AltM,
			East:  units.ConvertDistance(p.Aligned.X, unit),
			North: units.ConvertDistance(p.Aligned.Y, unit),
			Up:    units.ConvertDistance(p.Aligned.Z, unit),
		}
	}
	if out.Failures == nil {
		out.Failures = []pipeline.Failure{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func serveHTTP(ctx context.Context, db *trackdb.DB, unit string) {
	mux := http.NewServeMux()

	if err := db.AttachAdminRoutes(mux); err != nil {
		log.Printf("failed to attach admin routes: %v", err)
	}

	apiMux := api.NewServer(db, unit).ServeMux()
	mux.Handle("/", apiMux)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	go func() {
		log.Printf("HTTP server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
