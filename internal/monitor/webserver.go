// Package monitor serves the debug HTTP surface for a running simulator:
// device and pose JSON APIs, a live pose tail over SSE and WebSocket, chart
// pages rendered from recorded sessions, and the database admin routes.
package monitor

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/qashinka/PoseLockTool/internal/db"
	"github.com/qashinka/PoseLockTool/internal/driver"
	"github.com/qashinka/PoseLockTool/internal/hostsim"
	"github.com/qashinka/PoseLockTool/internal/version"
	"gonum.org/v1/gonum/num/quat"
)

//go:embed status.html
var StatusHTML embed.FS

// WebServer handles the HTTP interface for monitoring a simulator run. It
// provides endpoints for health checks, live pose streaming and recorded
// session inspection.
type WebServer struct {
	address string
	host    *hostsim.SimHost
	db      *db.DB
	server  *http.Server
	started time.Time
}

// WebServerConfig contains configuration options for the web server. Host
// and DB are both optional; endpoints needing an absent one report 503.
type WebServerConfig struct {
	Address string
	Host    *hostsim.SimHost
	DB      *db.DB
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		host:    config.Host,
		db:      config.DB,
		started: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	// Create a shutdown context with a shorter timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close immediately closes the underlying HTTP server.
func (ws *WebServer) Close() error {
	return ws.server.Close()
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/devices", ws.handleDevices)
	mux.HandleFunc("/api/poses", ws.handlePoses)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/session/stats", ws.handleSessionStats)
	mux.HandleFunc("/api/session/samples", ws.handleSessionSamples)
	mux.HandleFunc("/events/poses", ws.handlePoseTail)
	mux.HandleFunc("/ws/poses", ws.handlePosesWS)
	mux.HandleFunc("/charts/trajectory", ws.handleTrajectoryChart)
	mux.HandleFunc("/charts/sessions", ws.handleSessionsChart)
	mux.HandleFunc("/plots/trajectory", ws.handleTrajectoryPlot)

	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}

	return mux
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "poselock", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

type deviceInfo struct {
	Index  driver.DeviceIndex `json:"index"`
	Serial string             `json:"serial"`
	Model  string             `json:"model,omitempty"`
}

func (ws *WebServer) deviceList() []deviceInfo {
	if ws.host == nil {
		return nil
	}
	var devices []deviceInfo
	for _, serial := range ws.host.Serials() {
		index, ok := ws.host.IndexOf(serial)
		if !ok {
			continue
		}
		devices = append(devices, deviceInfo{
			Index:  index,
			Serial: serial,
			Model:  ws.host.PropertyValue(index, driver.PropertyModelNumber),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices
}

// handleDevices returns the registered tracker devices as JSON.
func (ws *WebServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	if ws.host == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no live host attached")
		return
	}
	devices := ws.deviceList()
	if devices == nil {
		devices = []deviceInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

type poseEntry struct {
	Index       driver.DeviceIndex `json:"index"`
	Serial      string             `json:"serial,omitempty"`
	Result      string             `json:"result"`
	Position    driver.Vec3        `json:"position"`
	Orientation quat.Number        `json:"orientation"`
}

// handlePoses returns a snapshot of the host's currently valid tracked
// poses. Slot 0 is the headset; empty slots are omitted.
func (ws *WebServer) handlePoses(w http.ResponseWriter, r *http.Request) {
	if ws.host == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no live host attached")
		return
	}

	serialByIndex := make(map[driver.DeviceIndex]string)
	for _, d := range ws.deviceList() {
		serialByIndex[d.Index] = d.Serial
	}

	out := make([]driver.TrackedPose, driver.MaxTrackedDevices)
	ws.host.RawTrackedPoses(0, out)

	entries := []poseEntry{}
	for i, tp := range out {
		if !tp.Valid {
			continue
		}
		entries = append(entries, poseEntry{
			Index:       driver.DeviceIndex(i),
			Serial:      serialByIndex[driver.DeviceIndex(i)],
			Result:      tp.Result.String(),
			Position:    tp.Position,
			Orientation: tp.Orientation,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// handleSessions returns the most recent recorded sessions as JSON.
func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	sessions, err := ws.db.Sessions()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

// handleSessionStats returns per-serial sample statistics for one session.
// Query params:
//
//	session_id (required)
func (ws *WebServer) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session_id' parameter")
		return
	}

	session, err := ws.db.SessionByID(sessionID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	stats, err := ws.db.SessionStats(sessionID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("session stats: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Session db.Session       `json:"session"`
		Serials []db.SerialStats `json:"serials"`
	}{Session: session, Serials: stats})
}

// handleSessionSamples returns recorded pose samples for one session.
// Query params:
//
//	session_id (required)
//	serial (optional, filters to one tracker)
//	limit (optional, default 500)
func (ws *WebServer) handleSessionSamples(w http.ResponseWriter, r *http.Request) {
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
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	samples, err := ws.db.PoseSamples(sessionID, serial, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query samples: %v", err))
		return
	}
	if samples == nil {
		samples = []db.PoseSample{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(samples)
}

// handlePoseTail streams pose submissions as server-sent events until the
// client disconnects.
func (ws *WebServer) handlePoseTail(w http.ResponseWriter, r *http.Request) {
	if ws.host == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no live host attached")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, ch := ws.host.Subscribe()
	defer ws.host.Unsubscribe(id)

	// Tell the client the stream is open before the first submission lands.
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case sub, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(sub)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleStatus handles the main status page endpoint
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	dbPath := "(none)"
	sessionCount := 0
	if ws.db != nil {
		dbPath = ws.db.Path()
		if sessions, err := ws.db.Sessions(); err == nil {
			sessionCount = len(sessions)
		}
	}

	// Load and parse the HTML template from embedded filesystem
	tmpl, err := template.ParseFS(StatusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Template data
	data := struct {
		Address      string
		Version      string
		Uptime       string
		Devices      []deviceInfo
		DBPath       string
		SessionCount int
	}{
		Address:      ws.address,
		Version:      version.Version,
		Uptime:       time.Since(ws.started).Round(time.Second).String(),
		Devices:      ws.deviceList(),
		DBPath:       dbPath,
		SessionCount: sessionCount,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}
