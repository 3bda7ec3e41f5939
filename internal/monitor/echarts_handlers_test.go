package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTrajectoryChartHandler(t *testing.T) {
	database := newTestDB(t)
	session := recordTestSession(t, database, 6)

	server := NewWebServer(WebServerConfig{Address: ":0", DB: database})
	mux := server.setupRoutes()

	req := httptest.NewRequest("GET", "/charts/trajectory?session_id="+session.ID, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("trajectory chart returned %d: %s", rr.Code, rr.Body.String())
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/html") {
		t.Errorf("wrong content type %q", ctype)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "echarts") {
		t.Error("chart page should load echarts")
	}
	if !strings.Contains(body, echartsAssetsPrefix) {
		t.Error("chart page should reference the assets host")
	}
	if !strings.Contains(body, session.ID) {
		t.Error("chart subtitle should name the session")
	}
}

func TestTrajectoryChartHandlerErrors(t *testing.T) {
	database := newTestDB(t)
	server := NewWebServer(WebServerConfig{Address: ":0", DB: database})
	mux := server.setupRoutes()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/charts/trajectory", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing session_id returned %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/charts/trajectory?session_id=missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("empty session returned %d, want 404", rr.Code)
	}
}

func TestTrajectoryChartHandlerWithoutDB(t *testing.T) {
	server := NewWebServer(WebServerConfig{Address: ":0"})

	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, httptest.NewRequest("GET", "/charts/trajectory?session_id=x", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("chart without db returned %d, want 503", rr.Code)
	}
}

func TestSessionsChartHandler(t *testing.T) {
	database := newTestDB(t)
	recordTestSession(t, database, 4)

	server := NewWebServer(WebServerConfig{Address: ":0", DB: database})

	req := httptest.NewRequest("GET", "/charts/sessions", nil)
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("sessions chart returned %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if !strings.Contains(body, "bench run") {
		t.Error("chart should name the recorded session")
	}
	if !strings.Contains(body, echartsAssetsPrefix) {
		t.Error("chart page should reference the assets host")
	}
}

func TestSessionsChartHandlerEmpty(t *testing.T) {
	database := newTestDB(t)
	server := NewWebServer(WebServerConfig{Address: ":0", DB: database})

	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, httptest.NewRequest("GET", "/charts/sessions", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("empty db returned %d, want 404", rr.Code)
	}
}
