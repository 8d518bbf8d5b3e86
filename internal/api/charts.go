package api

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/corrdash/corrdash/internal/db"
	"github.com/corrdash/corrdash/internal/httputil"
	"github.com/corrdash/corrdash/internal/plot"
	"github.com/corrdash/corrdash/internal/signal"
)

// chartPaths renders the reconstructed paths of the requested drives
// overlaid on one XY scatter, one series per drive.
// Query params: names (required, comma separated) plus the path
// options: ratio, angle_unit, hz, preprocess, window, low, high.
func (s *Server) chartPaths(w http.ResponseWriter, r *http.Request) {
	pathOpts, err := parsePathOptions(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	names, set, err := s.namedSet(r.URL.Query().Get("names"), pathOpts)
	if err != nil {
		if errors.Is(err, db.ErrDriveNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}

	// Symmetric axis ranges keep the path geometry square.
	maxAbs := 0.0
	for _, path := range set {
		for _, pt := range path {
			maxAbs = math.Max(maxAbs, math.Max(math.Abs(pt.X), math.Abs(pt.Y)))
		}
	}
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Reconstructed Paths", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reconstructed Paths", Subtitle: fmt.Sprintf("drives=%d ratio=%v", len(names), pathOpts.ratio)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	for _, name := range names {
		data := make([]opts.ScatterData, 0, len(set[name]))
		for _, pt := range set[name] {
			data = append(data, opts.ScatterData{Value: []interface{}{pt.X, pt.Y}})
		}
		scatter.AddSeries(name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// chartHistogram renders the value distribution of one signal across
// the requested drives as a grouped bar chart over shared bins.
// Query params: names, signal (required), bins (default 50),
// preprocess (none|derivative|zscore|smoothing|bandpass), window,
// low, high.
func (s *Server) chartHistogram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	signalName := q.Get("signal")
	if signalName == "" {
		httputil.BadRequest(w, "provide a signal name as ?signal=...")
		return
	}

	bins := 50
	if v := q.Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 10 || n > 100 {
			httputil.BadRequest(w, "bins must be an integer in [10, 100]")
			return
		}
		bins = n
	}

	method, window, low, high, err := parsePreprocessOptions(q)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	names, series, err := s.loadSignal(q.Get("names"), signalName, method, window, low, high)
	if err != nil {
		if errors.Is(err, db.ErrDriveNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}

	// Shared bin edges across drives so the bars are comparable.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, ser := range series {
		for _, v := range ser {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	width := (hi - lo) / float64(bins)

	labels := make([]string, bins)
	for i := range labels {
		labels[i] = strconv.FormatFloat(lo+(float64(i)+0.5)*width, 'g', 3, 64)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: signalName + " Distribution", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: signalName + " Distribution", Subtitle: fmt.Sprintf("bins=%d preprocess=%s", bins, methodLabel(method))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)

	for i, name := range names {
		counts := make([]opts.BarData, bins)
		for j := range counts {
			counts[j] = opts.BarData{Value: 0}
		}
		for _, v := range series[i] {
			b := int((v - lo) / width)
			if b >= bins {
				b = bins - 1
			}
			if b < 0 {
				b = 0
			}
			counts[b] = opts.BarData{Value: counts[b].Value.(int) + 1}
		}
		bar.AddSeries(name, counts)
	}

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

func methodLabel(m signal.Method) string {
	if m == "" {
		return string(signal.MethodNone)
	}
	return string(m)
}

// loadSignal loads one named channel from each requested drive and
// applies the requested preprocessing.
func (s *Server) loadSignal(nameList, signalName string, method signal.Method, window int, low, high float64) ([]string, []signal.Series, error) {
	names, err := splitNames(nameList)
	if err != nil {
		return nil, nil, err
	}

	var out []signal.Series
	for _, name := range names {
		drive, err := s.db.GetDriveByName(name)
		if err != nil {
			return nil, nil, fmt.Errorf("drive %q: %w", name, err)
		}
		table, err := s.db.DriveTable(drive.ID)
		if err != nil {
			return nil, nil, err
		}
		series, err := table.Column(signalName)
		if err != nil {
			return nil, nil, fmt.Errorf("drive %q: %w", name, err)
		}
		processed, err := signal.Preprocess(series, method, window, low, high, drive.SampleHz)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, processed)
	}
	return names, out, nil
}

// plotPaths serves the gonum-rendered PNG figure of the requested
// drives' paths.
func (s *Server) plotPaths(w http.ResponseWriter, r *http.Request) {
	pathOpts, err := parsePathOptions(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	names, set, err := s.namedSet(r.URL.Query().Get("names"), pathOpts)
	if err != nil {
		if errors.Is(err, db.ErrDriveNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}

	png, err := plot.RenderPaths(names, set)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		// Client went away mid-response; nothing to recover.
		return
	}
}
