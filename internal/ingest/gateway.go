package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/alerting"
	"github.com/fleetpulse/fleetpulse/internal/broadcast"
	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/scoring"
	"github.com/fleetpulse/fleetpulse/internal/storage"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
	"github.com/fleetpulse/fleetpulse/internal/webhook"
	"github.com/fleetpulse/fleetpulse/internal/window"
)

// ErrPersistence wraps a failed write of the reading itself. The pipeline
// does not proceed to scoring, alerting, or broadcast for that reading.
var ErrPersistence = errors.New("persistence failure")

// Result is the outcome of one accepted reading.
type Result struct {
	Reading    telemetry.Reading
	Prediction telemetry.Prediction
	Alerts     []telemetry.Alert
}

// BatchRejection reports one rejected batch item by its index.
type BatchRejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult is the per-item outcome of a batch ingestion. Items are
// independent: one malformed item never blocks the rest.
type BatchResult struct {
	Accepted []Result
	Rejected []BatchRejection
}

// Gateway is the pipeline's single entry point. For each accepted reading it
// drives persistence, the context window, the scoring chain, and the rule
// engine in sequence, then fires broadcast and webhook delivery as decoupled
// side effects.
type Gateway struct {
	cfg     config.IngestConfig
	windows *window.Store
	chain   *scoring.Chain
	rules   *alerting.Engine
	store   *storage.Store
	bc      *broadcast.Broadcaster
	hooks   *webhook.Dispatcher
	met     *metrics.Metrics
	now     func() time.Time // injectable for deterministic tests
}

// New wires a Gateway from its collaborators.
func New(
	cfg config.IngestConfig,
	windows *window.Store,
	chain *scoring.Chain,
	rules *alerting.Engine,
	store *storage.Store,
	bc *broadcast.Broadcaster,
	hooks *webhook.Dispatcher,
	met *metrics.Metrics,
) *Gateway {
	return &Gateway{
		cfg:     cfg,
		windows: windows,
		chain:   chain,
		rules:   rules,
		store:   store,
		bc:      bc,
		hooks:   hooks,
		met:     met,
		now:     time.Now,
	}
}

// Ingest validates and processes one reading. It returns a *ValidationError
// for malformed input and an ErrPersistence-wrapped error when the reading
// cannot be stored; side-effect failures (prediction/alert writes, broadcast,
// webhook) never surface here.
func (g *Gateway) Ingest(ctx context.Context, in ReadingInput) (Result, error) {
	r, verr := validate(in, g.cfg, g.now())
	if verr != nil {
		g.met.ReadingsRejected.Inc()
		return Result{}, verr
	}

	if err := g.store.SaveReading(r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	g.met.ReadingsAccepted.Inc()

	g.windows.Append(r.DeviceID, r)

	feats, ok := window.BuildFeatures(g.windows.Window(r.DeviceID))
	if !ok {
		// Cannot happen: the window holds at least the reading just appended.
		feats, _ = window.BuildFeatures([]telemetry.Reading{r})
	}

	prob, provider := g.chain.Score(ctx, feats)
	pred := telemetry.Prediction{
		DeviceID:    r.DeviceID,
		Timestamp:   g.now().UTC(),
		Probability: prob,
		Provider:    provider,
	}
	if err := g.store.SavePrediction(pred); err != nil {
		// Favor ingestion availability: the prediction still flows through
		// alerting and broadcast even if its record was lost.
		slog.Error("ingest: save prediction", "device_id", r.DeviceID, "err", err)
	}

	alerts := g.rules.Evaluate(r.DeviceID, r, pred)
	for _, a := range alerts {
		if err := g.store.SaveAlert(a); err != nil {
			slog.Error("ingest: save alert", "alert_id", a.ID, "err", err)
		}
		g.bc.Publish(broadcast.Event{Type: broadcast.EventAlert, Data: a})
		g.hooks.Enqueue(a)
	}

	g.bc.Publish(broadcast.Event{Type: broadcast.EventReading, Data: r})
	g.bc.Publish(broadcast.Event{Type: broadcast.EventPrediction, Data: pred})

	return Result{Reading: r, Prediction: pred, Alerts: alerts}, nil
}

// IngestBatch processes each item independently and reports per-item
// outcomes. The batch is not atomic: malformed or unpersistable items are
// collected in Rejected while the rest proceed.
func (g *Gateway) IngestBatch(ctx context.Context, items []ReadingInput) BatchResult {
	var out BatchResult
	for i, in := range items {
		res, err := g.Ingest(ctx, in)
		if err != nil {
			out.Rejected = append(out.Rejected, BatchRejection{Index: i, Reason: err.Error()})
			continue
		}
		out.Accepted = append(out.Accepted, res)
	}
	return out
}

// WhatIf scores a hypothetical reading against the device's current context
// without mutating the window, persisting anything, alerting, or
// broadcasting. The hypothetical reading is validated like a real one.
func (g *Gateway) WhatIf(ctx context.Context, deviceID string, in ReadingInput) (telemetry.Prediction, error) {
	in.DeviceID = deviceID
	r, verr := validate(in, g.cfg, g.now())
	if verr != nil {
		return telemetry.Prediction{}, verr
	}

	feats, _ := window.BuildFeatures(g.windows.WithCandidate(deviceID, r))
	prob, provider := g.chain.Score(ctx, feats)

	return telemetry.Prediction{
		DeviceID:    deviceID,
		Timestamp:   g.now().UTC(),
		Probability: prob,
		Provider:    provider,
	}, nil
}

// WarmWindows re-hydrates the per-device context windows from persisted
// readings, so scoring context survives a restart.
func (g *Gateway) WarmWindows() error {
	ids, err := g.store.DeviceIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		readings, err := g.store.RecentReadings(id, g.windows.Capacity())
		if err != nil {
			return err
		}
		for _, r := range readings {
			g.windows.Append(id, r)
		}
	}
	slog.Info("ingest: context windows warmed", "devices", len(ids))
	return nil
}
