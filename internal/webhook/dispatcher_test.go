package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

func testAlert(device string) telemetry.Alert {
	return telemetry.Alert{
		ID:          "a-1",
		DeviceID:    device,
		Kind:        telemetry.KindPredictive,
		Severity:    telemetry.SeverityHigh,
		Message:     "Model predicts failure risk 0.91",
		Probability: 0.91,
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestDispatcher(url string, maxAttempts int) *Dispatcher {
	return New(config.WebhookConfig{
		URL:         url,
		Timeout:     2 * time.Second,
		MaxAttempts: maxAttempts,
		BufferSize:  8,
		Workers:     1,
	}, metrics.New(prometheus.NewRegistry()))
}

func TestDispatcher_Delivers(t *testing.T) {
	got := make(chan Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		got <- p
	}))
	defer srv.Close()

	d := newTestDispatcher(srv.URL, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(testAlert("truck-7"))

	select {
	case p := <-got:
		if p.DeviceID != "truck-7" || p.Severity != telemetry.SeverityHigh {
			t.Errorf("payload: got %+v", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("webhook never received the alert")
	}
}

func TestDispatcher_SendsBearerToken(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	t.Setenv("TEST_CMMS_TOKEN", "tok-9")
	d := New(config.WebhookConfig{
		URL:         srv.URL,
		TokenEnv:    "TEST_CMMS_TOKEN",
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
		BufferSize:  4,
		Workers:     1,
	}, metrics.New(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(testAlert("truck-7"))

	select {
	case auth := <-got:
		if auth != "Bearer tok-9" {
			t.Errorf("Authorization: got %q, want Bearer tok-9", auth)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("webhook never received the alert")
	}
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusBadGateway)
			return
		}
	}))
	defer srv.Close()

	d := newTestDispatcher(srv.URL, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(testAlert("conveyor-a1"))

	deadline := time.After(10 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected a retry after 502: got %d calls", calls.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestDispatcher_DisabledIsNoop(t *testing.T) {
	d := newTestDispatcher("", 2)
	if d.Enabled() {
		t.Fatal("Enabled: got true without a url")
	}

	d.Enqueue(testAlert("truck-7"))
	if d.Pending() != 0 {
		t.Errorf("Pending: got %d, want 0 when disabled", d.Pending())
	}
}

func TestEnqueue_EvictsOldestWhenFull(t *testing.T) {
	d := New(config.WebhookConfig{
		URL:         "http://cmms.invalid/hook",
		MaxAttempts: 1,
		BufferSize:  2,
		Workers:     1,
	}, metrics.New(prometheus.NewRegistry()))
	// Run is never started, so jobs accumulate.

	for _, dev := range []string{"d1", "d2", "d3"} {
		d.Enqueue(testAlert(dev))
	}

	if d.Pending() != 2 {
		t.Fatalf("Pending: got %d, want 2", d.Pending())
	}
	// d1 evicted; d2 and d3 remain in order.
	if p := <-d.jobs; p.DeviceID != "d2" {
		t.Errorf("first pending job: got %q, want d2", p.DeviceID)
	}
	if p := <-d.jobs; p.DeviceID != "d3" {
		t.Errorf("second pending job: got %q, want d3", p.DeviceID)
	}
}
