// Package api exposes the drive-log analysis service over HTTP: drive
// upload and listing, path reconstruction, similarity matrices, and
// chart views.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/corrdash/corrdash/internal/db"
	"github.com/corrdash/corrdash/internal/driveload"
	"github.com/corrdash/corrdash/internal/drivepath"
	"github.com/corrdash/corrdash/internal/httputil"
	"github.com/corrdash/corrdash/internal/monitoring"
	"github.com/corrdash/corrdash/internal/signal"
	"github.com/corrdash/corrdash/internal/units"
	"github.com/corrdash/corrdash/internal/version"
)

// ANSI escape codes for request logging.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server carries the service handles and fixed engine configuration.
type Server struct {
	db         *db.DB
	units      string
	integrator drivepath.IntegratorConfig
	similarity drivepath.SimilarityConfig
	fetcher    httputil.Getter
}

// NewServer builds a server around the given database. speedUnits
// selects the display unit for summary output; fetcher retrieves
// remote drive logs (nil means the default HTTP client).
func NewServer(d *db.DB, speedUnits string, fetcher httputil.Getter) *Server {
	if !units.IsValidSpeedUnit(speedUnits) {
		speedUnits = units.MPS
	}
	return &Server{
		db:         d,
		units:      speedUnits,
		integrator: drivepath.DefaultIntegratorConfig(),
		similarity: drivepath.DefaultSimilarityConfig(),
		fetcher:    fetcher,
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

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
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

// ServeMux returns the service routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/drives", s.listDrives)
	mux.HandleFunc("POST /api/drives", s.createDrive)
	mux.HandleFunc("GET /api/drives/{id}", s.showDrive)
	mux.HandleFunc("DELETE /api/drives/{id}", s.deleteDrive)
	mux.HandleFunc("GET /api/drives/{id}/path", s.showPath)
	mux.HandleFunc("GET /api/similarity", s.computeSimilarity)
	mux.HandleFunc("POST /api/similarity", s.computeSimilarity)
	mux.HandleFunc("GET /api/similarity/runs", s.listSimilarityRuns)
	mux.HandleFunc("GET /api/similarity/runs/{id}", s.showSimilarityRun)
	mux.HandleFunc("GET /charts/paths", s.chartPaths)
	mux.HandleFunc("GET /charts/histogram", s.chartHistogram)
	mux.HandleFunc("GET /plots/path.png", s.plotPaths)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, version.Get())
}

func (s *Server) listDrives(w http.ResponseWriter, r *http.Request) {
	drives, err := s.db.ListDrives()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if drives == nil {
		drives = []db.Drive{}
	}
	httputil.WriteJSON(w, http.StatusOK, drives)
}

// createDrive ingests a new drive log, either uploaded in the request
// body (multipart field "file") or fetched from a URL ("url" form
// value). "name" defaults to the file name or URL; "hz" defaults to
// 100.
func (s *Server) createDrive(w http.ResponseWriter, r *http.Request) {
	sampleHz := 100.0
	if v := r.FormValue("hz"); v != "" {
		hz, err := strconv.ParseFloat(v, 64)
		if err != nil || hz <= 0 {
			httputil.BadRequest(w, "hz must be a positive number")
			return
		}
		sampleHz = hz
	}

	var (
		table  *signal.Table
		name   string
		source string
		err    error
	)
	if url := r.FormValue("url"); url != "" {
		table, err = driveload.Fetch(s.fetcher, url)
		name, source = url, url
	} else {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			httputil.BadRequest(w, "provide a drive log as multipart field 'file' or a 'url' form value")
			return
		}
		defer file.Close()
		table, err = driveload.Parse(file)
		name, source = header.Filename, header.Filename
	}
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to load drive log: %v", err))
		return
	}
	if v := r.FormValue("name"); v != "" {
		name = v
	}

	id, err := s.db.InsertDrive(name, source, sampleHz, table)
	if errors.Is(err, db.ErrDriveExists) {
		httputil.Conflict(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	drive, err := s.db.GetDrive(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, drive)
}

// driveSummary is the per-drive detail payload: metadata plus the
// descriptive statistics panel for each channel.
type driveSummary struct {
	db.Drive
	Stats map[string]signal.Summary `json:"stats"`
}

func (s *Server) showDrive(w http.ResponseWriter, r *http.Request) {
	drive, err := s.db.GetDrive(r.PathValue("id"))
	if errors.Is(err, db.ErrDriveNotFound) {
		httputil.NotFound(w, "drive not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	table, err := s.db.DriveTable(drive.ID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	stats := make(map[string]signal.Summary, len(drive.Signals))
	for _, col := range drive.Signals {
		series, err := table.Column(col)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		summary := series.Summarize()
		if col == "speed" {
			summary.Mean = units.ConvertSpeed(summary.Mean, s.units)
			summary.Std = units.ConvertSpeed(summary.Std, s.units)
			summary.Min = units.ConvertSpeed(summary.Min, s.units)
			summary.Max = units.ConvertSpeed(summary.Max, s.units)
		}
		stats[col] = summary
	}

	httputil.WriteJSON(w, http.StatusOK, driveSummary{Drive: drive, Stats: stats})
}

func (s *Server) deleteDrive(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteDrive(r.PathValue("id"))
	if errors.Is(err, db.ErrDriveNotFound) {
		httputil.NotFound(w, "drive not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pathOptions are the query parameters shared by the path, chart, and
// similarity endpoints: ratio, angle_unit, hz, and the preprocessing
// controls.
type pathOptions struct {
	ratio     float64
	angleUnit string  // "rad" or "deg"
	hz        float64 // 0 means use the drive's stored sample rate
	method    signal.Method
	window    int
	low, high float64
}

func parsePathOptions(r *http.Request) (pathOptions, error) {
	opts := pathOptions{ratio: 1, angleUnit: "rad"}
	q := r.URL.Query()
	if v := q.Get("ratio"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio <= 0 {
			return opts, fmt.Errorf("ratio must be a positive number")
		}
		opts.ratio = ratio
	}
	if v := q.Get("angle_unit"); v != "" {
		if v != "rad" && v != "deg" {
			return opts, fmt.Errorf("angle_unit must be 'rad' or 'deg'")
		}
		opts.angleUnit = v
	}
	if v := q.Get("hz"); v != "" {
		hz, err := strconv.ParseFloat(v, 64)
		if err != nil || hz <= 0 {
			return opts, fmt.Errorf("hz must be a positive number")
		}
		opts.hz = hz
	}

	var err error
	opts.method, opts.window, opts.low, opts.high, err = parsePreprocessOptions(q)
	if err != nil {
		return opts, err
	}
	return opts, nil
}

// parsePreprocessOptions reads the preprocessing query parameters:
// preprocess (none|derivative|zscore|smoothing|bandpass), window, low,
// and high.
func parsePreprocessOptions(q url.Values) (signal.Method, int, float64, float64, error) {
	method := signal.Method(q.Get("preprocess"))
	window := 5
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return method, 0, 0, 0, fmt.Errorf("window must be a positive integer")
		}
		window = n
	}
	low, high := 0.5, 30.0
	if v := q.Get("low"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return method, 0, 0, 0, fmt.Errorf("low must be a number")
		}
		low = f
	}
	if v := q.Get("high"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return method, 0, 0, 0, fmt.Errorf("high must be a number")
		}
		high = f
	}
	return method, window, low, high, nil
}

// reconstructPath builds the trajectory for one stored drive. The
// engine takes radians; logs recorded in degrees are converted here,
// on the caller side of that contract, before scaling by the steering
// ratio. opts.hz overrides the stored sample rate; the requested
// preprocessing runs on both recorded channels before integration.
func (s *Server) reconstructPath(drive db.Drive, opts pathOptions) (drivepath.Trajectory, error) {
	table, err := s.db.DriveTable(drive.ID)
	if err != nil {
		return nil, err
	}
	if !table.HasColumn("wheel_angle") || !table.HasColumn("speed") {
		return nil, fmt.Errorf("drive %q must contain 'wheel_angle' and 'speed' columns", drive.Name)
	}

	angle, err := table.Column("wheel_angle")
	if err != nil {
		return nil, err
	}
	speed, err := table.Column("speed")
	if err != nil {
		return nil, err
	}

	hz := drive.SampleHz
	if opts.hz > 0 {
		hz = opts.hz
	}

	angle, err = signal.Preprocess(angle, opts.method, opts.window, opts.low, opts.high, hz)
	if err != nil {
		return nil, err
	}
	speed, err = signal.Preprocess(speed, opts.method, opts.window, opts.low, opts.high, hz)
	if err != nil {
		return nil, err
	}

	angles := []float64(angle)
	if opts.angleUnit == "deg" {
		angles = units.DegreesToRadians(angles)
	}
	angles = units.ScaleSteering(angles, opts.ratio)

	return drivepath.CalculatePath(angles, speed, hz, s.integrator)
}

func (s *Server) showPath(w http.ResponseWriter, r *http.Request) {
	drive, err := s.db.GetDrive(r.PathValue("id"))
	if errors.Is(err, db.ErrDriveNotFound) {
		httputil.NotFound(w, "drive not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	opts, err := parsePathOptions(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	path, err := s.reconstructPath(drive, opts)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"drive": drive.Name,
		"path":  path,
	})
}

// splitNames parses a comma-separated drive name list, dropping empty
// entries.
func splitNames(nameList string) ([]string, error) {
	var names []string
	for _, n := range strings.Split(nameList, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("provide drive names as ?names=a,b,c")
	}
	return names, nil
}

// namedSet loads and reconstructs trajectories for a comma-separated
// drive name list.
func (s *Server) namedSet(nameList string, opts pathOptions) ([]string, drivepath.NamedTrajectorySet, error) {
	names, err := splitNames(nameList)
	if err != nil {
		return nil, nil, err
	}

	set := make(drivepath.NamedTrajectorySet, len(names))
	for _, name := range names {
		drive, err := s.db.GetDriveByName(name)
		if err != nil {
			return nil, nil, fmt.Errorf("drive %q: %w", name, err)
		}
		path, err := s.reconstructPath(drive, opts)
		if err != nil {
			return nil, nil, err
		}
		set[name] = path
	}
	return names, set, nil
}

// computeSimilarity builds the similarity matrix for the requested
// drives. GET only computes; POST also records the result as a
// similarity run, keeping writes off the read verb.
func (s *Server) computeSimilarity(w http.ResponseWriter, r *http.Request) {
	opts, err := parsePathOptions(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	_, set, err := s.namedSet(r.URL.Query().Get("names"), opts)
	if err != nil {
		if errors.Is(err, db.ErrDriveNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}

	matrix, err := drivepath.CalculateSimilarityMatrix(set, s.similarity)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if r.Method != http.MethodPost {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"matrix": matrix,
		})
		return
	}

	runID, err := s.db.SaveSimilarityRun(matrix)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"matrix": matrix,
	})
}

func (s *Server) listSimilarityRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.db.ListSimilarityRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.SimilarityRun{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (s *Server) showSimilarityRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.GetSimilarityRun(r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "similarity run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}
