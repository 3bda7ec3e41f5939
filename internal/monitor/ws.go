package monitor

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // debug surface, bound to localhost in normal use
	},
}

// handlePosesWS streams pose submissions over a WebSocket connection, one
// JSON message per submission, until the peer disconnects.
func (ws *WebServer) handlePosesWS(w http.ResponseWriter, r *http.Request) {
	if ws.host == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no live host attached")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("poses websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id, ch := ws.host.Subscribe()
	defer ws.host.Unsubscribe(id)

	// Inbound messages are discarded; the read loop exists to notice the
	// peer going away.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case sub, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(sub); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("poses websocket write error: %v", err)
				}
				return
			}
		case <-peerGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
