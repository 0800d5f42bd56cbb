package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetpulse/fleetpulse/internal/broadcast"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub bridges the event broadcaster onto WebSocket connections. Each
// connected client holds one broadcaster subscription; events flow from the
// subscription queue straight to the socket.
type Hub struct {
	bc *broadcast.Broadcaster
}

// New creates a Hub reading from bc.
func New(bc *broadcast.Broadcaster) *Hub {
	return &Hub{bc: bc}
}

// ServeHTTP upgrades the connection to WebSocket and streams events until the
// client disconnects or the broadcaster shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	sub := h.bc.Subscribe()
	defer h.bc.Unsubscribe(sub)

	slog.Debug("ws: client connected", "remote", conn.RemoteAddr())
	go writePump(conn, sub)
	readPump(conn) // blocks until the connection closes
	slog.Debug("ws: client disconnected", "remote", conn.RemoteAddr())
}

// writePump drains the subscription queue into the connection and sends
// periodic ping frames. Runs in its own goroutine per client.
func writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Subscription closed (shutdown or unsubscribe).
				conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			msg, err := json.Marshal(ev)
			if err != nil {
				slog.Error("ws: marshal event", "err", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages
// (pong, close) and detect disconnects. Blocks until the connection closes.
func readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
