package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleetpulse/internal/broadcast"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
)

func dialTestHub(t *testing.T, bc *broadcast.Broadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(New(bc))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_StreamsEvents(t *testing.T) {
	bc := broadcast.New(4, metrics.New(prometheus.NewRegistry()))
	defer bc.Close()

	conn := dialTestHub(t, bc)

	// The subscription is registered synchronously during the upgrade, but
	// give the server a beat to start its pumps.
	waitForSubscriber(t, bc)

	bc.Publish(broadcast.Event{Type: broadcast.EventAlert, Data: map[string]string{"device_id": "truck-7"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev broadcast.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != broadcast.EventAlert {
		t.Errorf("event type: got %q, want %q", ev.Type, broadcast.EventAlert)
	}
}

func TestHub_ClosesOnBroadcasterShutdown(t *testing.T) {
	bc := broadcast.New(4, metrics.New(prometheus.NewRegistry()))

	conn := dialTestHub(t, bc)
	waitForSubscriber(t, bc)

	bc.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close after broadcaster shutdown")
	}
}

func waitForSubscriber(t *testing.T, bc *broadcast.Broadcaster) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bc.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
