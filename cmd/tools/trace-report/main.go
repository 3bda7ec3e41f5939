// Package main provides an offline report generator for pose recording
// databases. It lists recorded sessions or, given a session id, writes
// trajectory plots, an interactive chart, and a JSON summary to disk.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	_ "modernc.org/sqlite"

	"github.com/qashinka/PoseLockTool/internal/db"
	"github.com/qashinka/PoseLockTool/internal/monitor"
	"github.com/qashinka/PoseLockTool/internal/security"
	"github.com/qashinka/PoseLockTool/internal/units"
)

// Config holds the report generator's flag values.
type Config struct {
	DBPath    string
	SessionID string
	Serial    string
	Limit     int
	OutputDir string
	Format    string
	Units     string
}

// Report is the JSON summary written alongside the rendered files.
type Report struct {
	Session       db.Session       `json:"session"`
	Serials       []db.SerialStats `json:"serials"`
	AverageSpeeds []SerialSpeed    `json:"average_speeds"`
	SampleCount   int64            `json:"sample_count"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// SerialSpeed is one tracker's mean movement speed over the recording.
type SerialSpeed struct {
	Serial string  `json:"serial"`
	Speed  float64 `json:"speed"`
	Units  string  `json:"units"`
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.DBPath, "db", "poses.db", "Path to the recording database")
	flag.StringVar(&cfg.SessionID, "session", "", "Session id to report on; empty lists sessions")
	flag.StringVar(&cfg.Serial, "serial", "", "Restrict the report to one tracker serial")
	flag.IntVar(&cfg.Limit, "limit", 50000, "Maximum samples to load")
	flag.StringVar(&cfg.OutputDir, "output", "report", "Output directory for rendered files")
	flag.StringVar(&cfg.Format, "format", "png", "Plot image format: png or svg")
	flag.StringVar(&cfg.Units, "units", units.MPS, "Speed units for the summary: "+units.GetValidUnitsString())
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	if cfg.Format != "png" && cfg.Format != "svg" {
		log.Fatalf("unsupported format %q, want png or svg", cfg.Format)
	}
	if !units.IsValid(cfg.Units) {
		log.Fatalf("unsupported units %q, want one of %s", cfg.Units, units.GetValidUnitsString())
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	if cfg.SessionID == "" {
		if err := listSessions(database); err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		return
	}

	if err := writeReport(database, cfg); err != nil {
		log.Fatalf("report failed: %v", err)
	}
}

func listSessions(database *db.DB) error {
	sessions, err := database.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	for _, s := range sessions {
		n, err := database.SampleCount(s.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-30s  %s  %8d samples\n", s.ID, s.Name, s.StartedAt.Format(time.RFC3339), n)
	}
	return nil
}

func writeReport(database *db.DB, cfg Config) error {
	session, err := database.SessionByID(cfg.SessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", cfg.SessionID, err)
	}

	stats, err := database.SessionStats(session.ID)
	if err != nil {
		return fmt.Errorf("session stats: %w", err)
	}
	for _, st := range stats {
		fmt.Printf("%-28s %8d samples (%d valid) %s -> %s\n",
			st.Serial, st.Samples, st.ValidSamples,
			st.FirstAt.Format(time.RFC3339), st.LastAt.Format(time.RFC3339))
	}

	samples, err := database.PoseSamples(session.ID, cfg.Serial, cfg.Limit)
	if err != nil {
		return fmt.Errorf("query samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples recorded for session %s", session.ID)
	}

	speeds := averageSpeeds(samples, cfg.Units)
	for _, sp := range speeds {
		fmt.Printf("%-28s average speed %.3f %s\n", sp.Serial, sp.Speed, sp.Units)
	}

	// Each session reports into its own subdirectory. Session names are
	// free-form operator input and must be made safe as a path component.
	outDir := filepath.Join(cfg.OutputDir, security.SanitizeFilename(session.Name))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	title := fmt.Sprintf("Session %s (%s)", session.ID, session.Name)

	trajectory, err := monitor.TrajectoryPlot(samples, title)
	if err != nil {
		return fmt.Errorf("build trajectory plot: %w", err)
	}
	if err := writePlotFile(trajectory, filepath.Join(outDir, "trajectory."+cfg.Format), 8*vg.Inch, 8*vg.Inch, cfg.Format); err != nil {
		return err
	}

	height, err := monitor.HeightPlot(samples, title)
	if err != nil {
		return fmt.Errorf("build height plot: %w", err)
	}
	if err := writePlotFile(height, filepath.Join(outDir, "height."+cfg.Format), 10*vg.Inch, 4*vg.Inch, cfg.Format); err != nil {
		return err
	}

	if err := writeChartFile(samples, session, cfg.Serial, outDir); err != nil {
		return err
	}

	report := Report{
		Session:       session,
		Serials:       stats,
		AverageSpeeds: speeds,
		SampleCount:   int64(len(samples)),
		GeneratedAt:   time.Now().UTC(),
	}
	if err := writeJSONFile(filepath.Join(outDir, "report.json"), report); err != nil {
		return err
	}

	fmt.Printf("report written to %s (%d samples)\n", outDir, len(samples))
	return nil
}

// averageSpeeds computes each tracker's mean speed as path length over
// elapsed time. Invalid samples are skipped so lost tracking does not count
// as movement. Samples must be in recording order.
func averageSpeeds(samples []db.PoseSample, targetUnits string) []SerialSpeed {
	var order []string
	last := make(map[string]db.PoseSample)
	dist := make(map[string]float64)
	span := make(map[string]time.Duration)
	for _, s := range samples {
		if !s.Valid {
			continue
		}
		prev, ok := last[s.Serial]
		if !ok {
			order = append(order, s.Serial)
		} else {
			dx := s.Position[0] - prev.Position[0]
			dy := s.Position[1] - prev.Position[1]
			dz := s.Position[2] - prev.Position[2]
			dist[s.Serial] += math.Sqrt(dx*dx + dy*dy + dz*dz)
			span[s.Serial] += s.RecordedAt.Sub(prev.RecordedAt)
		}
		last[s.Serial] = s
	}

	speeds := make([]SerialSpeed, 0, len(order))
	for _, serial := range order {
		elapsed := span[serial].Seconds()
		if elapsed <= 0 {
			continue
		}
		speeds = append(speeds, SerialSpeed{
			Serial: serial,
			Speed:  units.ConvertSpeed(dist[serial]/elapsed, targetUnits),
			Units:  targetUnits,
		})
	}
	return speeds
}

func writePlotFile(p *plot.Plot, path string, w, h vg.Length, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := monitor.WritePlot(p, f, w, h, format); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func writeChartFile(samples []db.PoseSample, session db.Session, serial, outDir string) error {
	serialLabel := serial
	if serialLabel == "" {
		serialLabel = "all"
	}
	scatter := monitor.TrajectoryScatter(samples, fmt.Sprintf("session=%s serial=%s points=%d", session.ID, serialLabel, len(samples)))

	page := components.NewPage()
	page.SetAssetsHost("https://go-echarts.github.io/go-echarts-assets/assets/")
	page.AddCharts(scatter)

	path := filepath.Join(outDir, "trajectory.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
