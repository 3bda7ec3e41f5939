// Package db stores recorded tracker sessions in SQLite.
//
// Every recording run creates a session row; the pose samples submitted by
// the virtual trackers during that run are written to pose_samples, one row
// per submission. The schema is managed by the embedded migrations.
package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	"gonum.org/v1/gonum/num/quat"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/qashinka/PoseLockTool/internal/driver"
)

type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the SQLite database at path without touching the schema.
// Most callers want NewDB, which also applies pending migrations.
func OpenDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{DB: sqldb, path: path}, nil
}

// NewDB opens the database at path and brings its schema up to date.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	src, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(src); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string { return db.path }

// Session is one recording run.
type Session struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (s *Session) String() string {
	state := "open"
	if s.EndedAt != nil {
		state = fmt.Sprintf("ended %s", s.EndedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("session %s (%s) started %s, %s", s.ID, s.Name, s.StartedAt.Format(time.RFC3339), state)
}

// CreateSession inserts a new open session and returns it.
func (db *DB) CreateSession(name string) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		"INSERT INTO sessions (session_id, name, started_at_ns) VALUES (?, ?, ?)",
		s.ID, s.Name, s.StartedAt.UnixNano(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// EndSession stamps the session's end time.
func (db *DB) EndSession(id string) error {
	res, err := db.Exec(
		"UPDATE sessions SET ended_at_ns = ? WHERE session_id = ?",
		time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("unknown session %q", id)
	}
	return nil
}

// SessionByID fetches a single session.
func (db *DB) SessionByID(id string) (Session, error) {
	row := db.QueryRow(
		"SELECT session_id, name, started_at_ns, ended_at_ns FROM sessions WHERE session_id = ?",
		id,
	)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return Session{}, fmt.Errorf("unknown session %q", id)
	}
	return s, err
}

// Sessions lists the most recent sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		"SELECT session_id, name, started_at_ns, ended_at_ns FROM sessions ORDER BY started_at_ns DESC LIMIT 100",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s         Session
		startedNs int64
		endedNs   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Name, &startedNs, &endedNs); err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(0, startedNs).UTC()
	if endedNs.Valid {
		ended := time.Unix(0, endedNs.Int64).UTC()
		s.EndedAt = &ended
	}
	return s, nil
}

// PoseSample is one pose submission captured during a session.
type PoseSample struct {
	SessionID   string                `json:"session_id"`
	Serial      string                `json:"serial"`
	Index       driver.DeviceIndex    `json:"index"`
	RecordedAt  time.Time             `json:"recorded_at"`
	Valid       bool                  `json:"valid"`
	Result      driver.TrackingResult `json:"result"`
	Position    driver.Vec3           `json:"position"`
	Orientation quat.Number           `json:"orientation"`
}

// InsertPoseSamples writes a batch of samples in one transaction.
func (db *DB) InsertPoseSamples(samples []PoseSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_samples (
		session_id, serial, device_index, recorded_at_ns, valid, result,
		pos_x, pos_y, pos_z, rot_w, rot_x, rot_y, rot_z
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.Exec(
			s.SessionID, s.Serial, int64(s.Index), s.RecordedAt.UnixNano(),
			s.Valid, int64(s.Result),
			s.Position[0], s.Position[1], s.Position[2],
			s.Orientation.Real, s.Orientation.Imag, s.Orientation.Jmag, s.Orientation.Kmag,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert sample for %s: %w", s.Serial, err)
		}
	}

	return tx.Commit()
}

// PoseSamples returns samples for a session in recording order. An empty
// serial matches every tracker; limit caps the result, defaulting to 500.
func (db *DB) PoseSamples(sessionID, serial string, limit int) ([]PoseSample, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT session_id, serial, device_index, recorded_at_ns, valid, result,
		pos_x, pos_y, pos_z, rot_w, rot_x, rot_y, rot_z
		FROM pose_samples WHERE session_id = ?`
	args := []interface{}{sessionID}
	if serial != "" {
		query += " AND serial = ?"
		args = append(args, serial)
	}
	query += " ORDER BY recorded_at_ns ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []PoseSample
	for rows.Next() {
		var (
			s          PoseSample
			index      int64
			recordedNs int64
			result     int64
		)
		if err := rows.Scan(
			&s.SessionID, &s.Serial, &index, &recordedNs, &s.Valid, &result,
			&s.Position[0], &s.Position[1], &s.Position[2],
			&s.Orientation.Real, &s.Orientation.Imag, &s.Orientation.Jmag, &s.Orientation.Kmag,
		); err != nil {
			return nil, err
		}
		s.Index = driver.DeviceIndex(index)
		s.RecordedAt = time.Unix(0, recordedNs).UTC()
		s.Result = driver.TrackingResult(result)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// SampleCount returns the number of samples recorded for a session.
func (db *DB) SampleCount(sessionID string) (int64, error) {
	var count int64
	err := db.QueryRow(
		"SELECT COUNT(*) FROM pose_samples WHERE session_id = ?", sessionID,
	).Scan(&count)
	return count, err
}

// SerialStats summarises one tracker's samples within a session.
type SerialStats struct {
	Serial       string    `json:"serial"`
	Samples      int64     `json:"samples"`
	ValidSamples int64     `json:"valid_samples"`
	FirstAt      time.Time `json:"first_at"`
	LastAt       time.Time `json:"last_at"`
}

// SessionStats returns per-tracker summaries for a session.
func (db *DB) SessionStats(sessionID string) ([]SerialStats, error) {
	rows, err := db.Query(`SELECT serial, COUNT(*), SUM(valid),
		MIN(recorded_at_ns), MAX(recorded_at_ns)
		FROM pose_samples WHERE session_id = ? GROUP BY serial ORDER BY serial`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SerialStats
	for rows.Next() {
		var (
			s       SerialStats
			firstNs int64
			lastNs  int64
		)
		if err := rows.Scan(&s.Serial, &s.Samples, &s.ValidSamples, &firstNs, &lastNs); err != nil {
			return nil, err
		}
		s.FirstAt = time.Unix(0, firstNs).UTC()
		s.LastAt = time.Unix(0, lastNs).UTC()
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// TableStats holds the per-table portion of DatabaseStats.
type TableStats struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// DatabaseStats summarises the database for the admin stats endpoint.
type DatabaseStats struct {
	Path        string       `json:"path"`
	TotalSizeMB float64      `json:"total_size_mb"`
	Tables      []TableStats `json:"tables"`
}

// GetDatabaseStats reports the file size and row counts of every table.
func (db *DB) GetDatabaseStats() (*DatabaseStats, error) {
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("read page_count: %w", err)
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("read page_size: %w", err)
	}

	stats := &DatabaseStats{
		Path:        db.path,
		TotalSizeMB: float64(pageCount*pageSize) / (1024 * 1024),
	}

	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, name := range names {
		var count int64
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", name, err)
		}
		stats.Tables = append(stats.Tables, TableStats{Name: name, RowCount: count})
	}

	return stats, nil
}

// AttachAdminRoutes mounts the database debug endpoints on mux: a live SQL
// console, a JSON stats summary and an on-demand backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB(fmt.Sprintf("sqlite://%s", db.path), db.DB, &tailsql.DBOptions{
		Label: "Pose sessions",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Database size and row counts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetDatabaseStats()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to collect stats: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Printf("Failed to encode db stats: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			log.Printf("Failed to stream backup: %v", err)
		}
	}))
}
