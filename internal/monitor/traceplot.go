package monitor

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/qashinka/PoseLockTool/internal/db"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TrajectoryPlot builds a top-down plot of recorded poses, one line per
// tracker serial.
func TrajectoryPlot(samples []db.PoseSample, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Z (m)"

	bySerial := make(map[string]plotter.XYs)
	for _, s := range samples {
		bySerial[s.Serial] = append(bySerial[s.Serial], plotter.XY{X: s.Position[0], Y: s.Position[2]})
	}

	if err := addSerialLines(p, bySerial); err != nil {
		return nil, err
	}
	return p, nil
}

// HeightPlot builds a plot of tracker height over elapsed seconds, one line
// per tracker serial. Samples must be in recording order.
func HeightPlot(samples []db.PoseSample, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Y (m)"

	bySerial := make(map[string]plotter.XYs)
	if len(samples) > 0 {
		start := samples[0].RecordedAt
		for _, s := range samples {
			elapsed := s.RecordedAt.Sub(start).Seconds()
			bySerial[s.Serial] = append(bySerial[s.Serial], plotter.XY{X: elapsed, Y: s.Position[1]})
		}
	}

	if err := addSerialLines(p, bySerial); err != nil {
		return nil, err
	}
	return p, nil
}

func addSerialLines(p *plot.Plot, bySerial map[string]plotter.XYs) error {
	serials := make([]string, 0, len(bySerial))
	for serial := range bySerial {
		serials = append(serials, serial)
	}
	sort.Strings(serials)

	colors := tracePalette(len(serials))
	for i, serial := range serials {
		line, err := plotter.NewLine(bySerial[serial])
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(serial, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// WritePlot renders p to w in the given image format ("png" or "svg").
func WritePlot(p *plot.Plot, w io.Writer, width, height vg.Length, format string) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// handleTrajectoryPlot renders a session trajectory as a static image.
// Query params:
//   - session_id (required)
//   - serial (optional)
//   - limit (optional; default 5000)
//   - format (optional; "png" or "svg", default "png")
func (ws *WebServer) handleTrajectoryPlot(w http.ResponseWriter, r *http.Request) {
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

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	contentType := ""
	switch format {
	case "png":
		contentType = "image/png"
	case "svg":
		contentType = "image/svg+xml"
	default:
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
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

	p, err := TrajectoryPlot(samples, fmt.Sprintf("Session %s", sessionID))
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("build plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	if err := WritePlot(p, w, 8*vg.Inch, 8*vg.Inch, format); err != nil {
		// Headers are already written; all we can do is log.
		log.Printf("render trajectory plot: %v", err)
	}
}

// tracePalette creates a palette of distinct colors for per-serial lines
func tracePalette(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
