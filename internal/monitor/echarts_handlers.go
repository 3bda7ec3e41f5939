package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/qashinka/PoseLockTool/internal/db"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleTrajectoryChart renders a top-down scatter (HTML) of one session's
// recorded poses using go-echarts. Point colour encodes elapsed time.
// Query params:
//   - session_id (required)
//   - serial (optional; restricts to one tracker)
//   - limit (optional; default 5000)
func (ws *WebServer) handleTrajectoryChart(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session_id' parameter")
		return
	}
	serial := r.URL.Query().Get("serial")

	limit := 5000
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 50000 {
			limit = v
		}
	}

	samples, err := ws.db.PoseSamples(sessionID, serial, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query samples: %v", err))
		return
	}
	if len(samples) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no samples recorded for session")
		return
	}

	serialLabel := serial
	if serialLabel == "" {
		serialLabel = "all"
	}
	scatter := TrajectoryScatter(samples, fmt.Sprintf("session=%s serial=%s points=%d", sessionID, serialLabel, len(samples)))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// TrajectoryScatter builds a top-down scatter of recorded poses, X against
// Z, with point colour encoding seconds since the first sample.
func TrajectoryScatter(samples []db.PoseSample, subtitle string) *charts.Scatter {
	start := samples[0].RecordedAt
	data := make([]opts.ScatterData, 0, len(samples))
	maxAbs := 0.0
	maxElapsed := 0.0
	for _, s := range samples {
		x := s.Position[0]
		z := s.Position[2]
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(z) > maxAbs {
			maxAbs = math.Abs(z)
		}
		elapsed := s.RecordedAt.Sub(start).Seconds()
		if elapsed > maxElapsed {
			maxElapsed = elapsed
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, z, elapsed}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxElapsed == 0 {
		maxElapsed = 1
	}

	// Force a square plot by using equal width/height and symmetric axis ranges
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracker Trajectory", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Tracker Trajectory (top down)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxElapsed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("poses", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}

// handleSessionsChart renders a bar chart (HTML) of sample counts across the
// most recent recorded sessions.
func (ws *WebServer) handleSessionsChart(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	sessions, err := ws.db.Sessions()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	if len(sessions) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no sessions recorded")
		return
	}

	names := make([]string, 0, len(sessions))
	counts := make([]int64, 0, len(sessions))
	for _, s := range sessions {
		n, err := ws.db.SampleCount(s.ID)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("count samples: %v", err))
			return
		}
		names = append(names, s.Name)
		counts = append(counts, n)
	}

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(SessionsBar(names, counts))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// SessionsBar builds a bar chart of per-session sample counts. names and
// counts are parallel slices.
func SessionsBar(names []string, counts []int64) *charts.Bar {
	y := make([]opts.BarData, 0, len(counts))
	for _, n := range counts {
		y = append(y, opts.BarData{Value: n})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Recorded Sessions", Subtitle: time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("samples", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
