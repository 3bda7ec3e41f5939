package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/qashinka/PoseLockTool/internal/driver"
	"github.com/qashinka/PoseLockTool/internal/hostsim"
)

func TestPosesWebSocketStream(t *testing.T) {
	host, _ := newTestHost(t)
	server := NewWebServer(WebServerConfig{Address: ":0", Host: host})

	srv := httptest.NewServer(server.setupRoutes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/poses"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	// Keep submitting until the handler has subscribed and relayed one.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		pose := driver.NewDriverPose()
		pose.Valid = true
		pose.Result = driver.TrackingResultRunningOK
		pose.Position = driver.Vec3{-0.15, 0.1, -0.5}
		for {
			select {
			case <-stop:
				return
			default:
				host.SubmitPose(1, pose)
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var sub hostsim.Submission
	if err := conn.ReadJSON(&sub); err != nil {
		t.Fatalf("read submission: %v", err)
	}
	if sub.Serial != "MyTrackerModelNumber0" {
		t.Errorf("unexpected serial %q", sub.Serial)
	}
	if sub.Index != 1 {
		t.Errorf("unexpected index %d", sub.Index)
	}
	if !sub.Pose.Valid {
		t.Error("streamed pose should be valid")
	}
	if sub.Pose.Position != (driver.Vec3{-0.15, 0.1, -0.5}) {
		t.Errorf("unexpected position %v", sub.Pose.Position)
	}
}

func TestPosesWebSocketWithoutHost(t *testing.T) {
	server := NewWebServer(WebServerConfig{Address: ":0"})

	srv := httptest.NewServer(server.setupRoutes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/poses"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial should fail without a live host")
	}
	if resp == nil {
		t.Fatal("expected an HTTP response from the failed upgrade")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}
