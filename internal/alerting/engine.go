package alerting

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// Dedup keys of the two built-in rules. An alert is suppressed when another
// alert with the same (device, kind, dedup key) fired within the cooldown.
const (
	dedupTemperatureMax = "temperature_max"
	dedupFailureRisk    = "failure_risk"
)

// Temperature excess bands above the configured limit, in °C.
// Up to thresholdMediumExcess over the limit is low severity, up to
// thresholdHighExcess is medium, beyond that high.
const (
	thresholdMediumExcess = 5.0
	thresholdHighExcess   = 15.0
)

// Engine evaluates the threshold and predictive rules against each
// reading/prediction pair and deduplicates repeat alerts within the
// configured cooldown window.
//
// Engine is safe for concurrent use.
type Engine struct {
	cfg config.AlertsConfig
	met *metrics.Metrics

	mu       sync.Mutex
	lastFire map[string]time.Time // key: deviceID + kind + dedup key
	now      func() time.Time     // injectable for deterministic tests
}

// New creates an Engine from the alerts configuration.
func New(cfg config.AlertsConfig, met *metrics.Metrics) *Engine {
	return &Engine{
		cfg:      cfg,
		met:      met,
		lastFire: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Evaluate runs both rules and returns zero or more new alerts. Alerts
// suppressed by the cooldown are not returned.
func (e *Engine) Evaluate(deviceID string, r telemetry.Reading, p telemetry.Prediction) []telemetry.Alert {
	var out []telemetry.Alert

	if r.Temperature > e.cfg.TemperatureMax {
		excess := r.Temperature - e.cfg.TemperatureMax
		a := telemetry.Alert{
			DeviceID: deviceID,
			Kind:     telemetry.KindThreshold,
			Severity: thresholdSeverity(excess),
			Message: fmt.Sprintf("Temperature %.1f°C exceeds max %.1f°C",
				r.Temperature, e.cfg.TemperatureMax),
			DedupKey: dedupTemperatureMax,
		}
		if e.admit(&a) {
			out = append(out, a)
		}
	}

	if p.Probability >= e.cfg.ProbabilityThreshold {
		a := telemetry.Alert{
			DeviceID:    deviceID,
			Kind:        telemetry.KindPredictive,
			Severity:    e.probabilitySeverity(p.Probability),
			Message:     fmt.Sprintf("Model predicts failure risk %.2f", p.Probability),
			Probability: p.Probability,
			DedupKey:    dedupFailureRisk,
		}
		if e.admit(&a) {
			out = append(out, a)
		}
	}

	return out
}

// admit applies cooldown deduplication and, when the alert passes, stamps its
// identity and fire time.
func (e *Engine) admit(a *telemetry.Alert) bool {
	key := a.DeviceID + "\x00" + a.Kind + "\x00" + a.DedupKey

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.lastFire[key]; ok && now.Sub(last) < e.cfg.Cooldown {
		slog.Debug("alerting: suppressed by cooldown",
			"device_id", a.DeviceID, "kind", a.Kind, "since_last", now.Sub(last))
		return false
	}
	e.lastFire[key] = now

	a.ID = uuid.NewString()
	a.CreatedAt = now.UTC()
	e.met.AlertsFired.WithLabelValues(a.Kind).Inc()
	slog.Warn("alert fired",
		"device_id", a.DeviceID,
		"kind", a.Kind,
		"severity", a.Severity,
		"message", a.Message,
	)
	return true
}

// thresholdSeverity maps temperature excess over the limit to a severity band.
func thresholdSeverity(excess float64) string {
	switch {
	case excess > thresholdHighExcess:
		return telemetry.SeverityHigh
	case excess > thresholdMediumExcess:
		return telemetry.SeverityMedium
	default:
		return telemetry.SeverityLow
	}
}

// probabilitySeverity maps a probability at or above the alert threshold to a
// severity using the configured cut points.
func (e *Engine) probabilitySeverity(p float64) string {
	switch {
	case p >= e.cfg.HighCut:
		return telemetry.SeverityHigh
	case p >= e.cfg.MediumCut:
		return telemetry.SeverityMedium
	default:
		return telemetry.SeverityLow
	}
}
