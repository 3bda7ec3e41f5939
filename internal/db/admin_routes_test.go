package db

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// TestAttachAdminRoutes checks the debug endpoints are registered. Status
// codes other than 404 are acceptable: tsweb applies its own access checks.
func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	for _, path := range []string{"/debug/db-stats", "/debug/backup", "/debug/tailsql/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		if w.Code == http.StatusNotFound {
			t.Errorf("Route %s should be registered, got 404", path)
		}
	}
}

// TestBackupEndpointFileCleanup checks backup files do not accumulate in the
// working directory.
func TestBackupEndpointFileCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	db, err := NewDB(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	beforeFiles, err := filepath.Glob("backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)

	afterFiles, err := filepath.Glob("backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files after backup: %v", err)
	}
	if len(afterFiles) > len(beforeFiles) {
		t.Errorf("Backup files left behind: before=%d, after=%d", len(beforeFiles), len(afterFiles))
	}
}
