package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

const (
	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 15 * time.Second
)

// Payload is the JSON body delivered to the CMMS for each alert.
type Payload struct {
	DeviceID    string    `json:"device_id"`
	Severity    string    `json:"severity"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Probability float64   `json:"probability"`
	CreatedAt   time.Time `json:"created_at"`
}

// Dispatcher delivers alert payloads to the configured CMMS endpoint on a
// bounded worker pool, decoupled from the ingestion critical path. Enqueue
// never blocks: a full buffer evicts its oldest pending job. Without a
// configured URL the dispatcher is a no-op.
type Dispatcher struct {
	cfg    config.WebhookConfig
	met    *metrics.Metrics
	client *http.Client
	jobs   chan Payload
}

// New creates a Dispatcher. Run must be started for deliveries to happen.
func New(cfg config.WebhookConfig, met *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		met:    met,
		client: &http.Client{},
		jobs:   make(chan Payload, cfg.BufferSize),
	}
}

// Enabled reports whether a destination is configured.
func (d *Dispatcher) Enabled() bool { return d.cfg.URL != "" }

// Enqueue queues the alert for delivery and returns immediately. When the
// buffer is full the oldest pending job is evicted to make room.
func (d *Dispatcher) Enqueue(a telemetry.Alert) {
	if !d.Enabled() {
		return
	}

	p := Payload{
		DeviceID:    a.DeviceID,
		Severity:    a.Severity,
		Kind:        a.Kind,
		Message:     a.Message,
		Probability: a.Probability,
		CreatedAt:   a.CreatedAt,
	}

	select {
	case d.jobs <- p:
		return
	default:
	}

	// Buffer full — drop the oldest job, keep the newest.
	select {
	case old := <-d.jobs:
		slog.Warn("webhook: buffer full, evicted oldest job",
			"evicted_device", old.DeviceID, "buffer_cap", cap(d.jobs))
	default:
	}
	select {
	case d.jobs <- p:
	default:
	}
}

// Pending returns the number of jobs waiting for delivery.
func (d *Dispatcher) Pending() int { return len(d.jobs) }

// Run drains the job buffer on the configured number of workers until ctx is
// cancelled. Each job is retried with exponential backoff up to the attempt
// ceiling; exhaustion is logged and counted, never surfaced to ingestion.
func (d *Dispatcher) Run(ctx context.Context) {
	if !d.Enabled() {
		slog.Info("webhook: no destination configured, dispatcher idle")
		<-ctx.Done()
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-d.jobs:
			d.deliverWithRetry(ctx, p)
		}
	}
}

// deliverWithRetry attempts delivery up to MaxAttempts times with jittered
// exponential backoff between attempts.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, p Payload) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(d.cfg.MaxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		return d.attempt(ctx, p)
	}, policy)

	if err != nil {
		d.met.WebhookFailed.Inc()
		slog.Error("webhook: delivery failed, giving up",
			"device_id", p.DeviceID,
			"kind", p.Kind,
			"attempts", d.cfg.MaxAttempts,
			"err", err,
		)
		return
	}

	d.met.WebhookDelivered.Inc()
	slog.Debug("webhook: delivered", "device_id", p.DeviceID, "kind", p.Kind)
}

// attempt performs one POST to the CMMS, bounded by the configured timeout.
func (d *Dispatcher) attempt(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token := d.cfg.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
