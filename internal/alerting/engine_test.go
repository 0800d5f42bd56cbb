package alerting

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(config.AlertsConfig{
		TemperatureMax:       80,
		ProbabilityThreshold: 0.6,
		MediumCut:            0.7,
		HighCut:              0.85,
		Cooldown:             5 * time.Minute,
	}, metrics.New(prometheus.NewRegistry()))
}

func TestEvaluate_TemperatureOverMax(t *testing.T) {
	e := newTestEngine(t)

	alerts := e.Evaluate("conveyor-a1",
		telemetry.Reading{DeviceID: "conveyor-a1", Temperature: 95},
		telemetry.Prediction{Probability: 0.1})

	if len(alerts) != 1 {
		t.Fatalf("Evaluate: got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Kind != telemetry.KindThreshold {
		t.Errorf("kind: got %q, want %q", a.Kind, telemetry.KindThreshold)
	}
	if a.Severity != telemetry.SeverityMedium {
		t.Errorf("severity for 15°C excess: got %q, want %q", a.Severity, telemetry.SeverityMedium)
	}
	if a.ID == "" {
		t.Error("alert missing id")
	}
	if a.CreatedAt.IsZero() {
		t.Error("alert missing created_at")
	}
}

func TestEvaluate_TemperatureWithinMax(t *testing.T) {
	e := newTestEngine(t)

	alerts := e.Evaluate("conveyor-a1",
		telemetry.Reading{DeviceID: "conveyor-a1", Temperature: 70},
		telemetry.Prediction{Probability: 0.1})

	if len(alerts) != 0 {
		t.Fatalf("Evaluate: got %d alerts, want 0", len(alerts))
	}
}

func TestThresholdSeverityBands(t *testing.T) {
	tests := []struct {
		excess float64
		want   string
	}{
		{excess: 1, want: telemetry.SeverityLow},
		{excess: 5, want: telemetry.SeverityLow},
		{excess: 6, want: telemetry.SeverityMedium},
		{excess: 15, want: telemetry.SeverityMedium},
		{excess: 16, want: telemetry.SeverityHigh},
	}
	for _, tc := range tests {
		if got := thresholdSeverity(tc.excess); got != tc.want {
			t.Errorf("thresholdSeverity(%v): got %q, want %q", tc.excess, got, tc.want)
		}
	}
}

func TestEvaluate_PredictiveThreshold(t *testing.T) {
	e := newTestEngine(t)

	// Just above the threshold fires, just below does not.
	alerts := e.Evaluate("truck-7",
		telemetry.Reading{DeviceID: "truck-7", Temperature: 40},
		telemetry.Prediction{Probability: 0.61})
	if len(alerts) != 1 {
		t.Fatalf("Evaluate(0.61): got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Kind != telemetry.KindPredictive {
		t.Errorf("kind: got %q, want %q", alerts[0].Kind, telemetry.KindPredictive)
	}
	if alerts[0].Probability != 0.61 {
		t.Errorf("probability: got %v, want 0.61", alerts[0].Probability)
	}

	alerts = e.Evaluate("truck-8",
		telemetry.Reading{DeviceID: "truck-8", Temperature: 40},
		telemetry.Prediction{Probability: 0.59})
	if len(alerts) != 0 {
		t.Fatalf("Evaluate(0.59): got %d alerts, want 0", len(alerts))
	}
}

func TestPredictiveSeverityCuts(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		p    float64
		want string
	}{
		{p: 0.6, want: telemetry.SeverityLow},
		{p: 0.7, want: telemetry.SeverityMedium},
		{p: 0.84, want: telemetry.SeverityMedium},
		{p: 0.85, want: telemetry.SeverityHigh},
		{p: 0.99, want: telemetry.SeverityHigh},
	}
	for _, tc := range tests {
		if got := e.probabilitySeverity(tc.p); got != tc.want {
			t.Errorf("probabilitySeverity(%v): got %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestEvaluate_CooldownSuppressesRepeat(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	e.now = func() time.Time { return now }

	r := telemetry.Reading{DeviceID: "forklift-3", Temperature: 95}
	p := telemetry.Prediction{Probability: 0.1}

	if got := len(e.Evaluate("forklift-3", r, p)); got != 1 {
		t.Fatalf("first Evaluate: got %d alerts, want 1", got)
	}

	// Within the cooldown: suppressed.
	now = base.Add(time.Minute)
	if got := len(e.Evaluate("forklift-3", r, p)); got != 0 {
		t.Fatalf("Evaluate within cooldown: got %d alerts, want 0", got)
	}

	// Past the cooldown: fires again.
	now = base.Add(6 * time.Minute)
	if got := len(e.Evaluate("forklift-3", r, p)); got != 1 {
		t.Fatalf("Evaluate after cooldown: got %d alerts, want 1", got)
	}
}

func TestEvaluate_CooldownIsPerDeviceAndKind(t *testing.T) {
	e := newTestEngine(t)

	r := telemetry.Reading{DeviceID: "forklift-3", Temperature: 95}

	// Threshold alert on one device does not suppress the same rule on
	// another device, nor the predictive rule on the same device.
	if got := len(e.Evaluate("forklift-3", r, telemetry.Prediction{Probability: 0.1})); got != 1 {
		t.Fatalf("device A threshold: got %d alerts, want 1", got)
	}
	if got := len(e.Evaluate("forklift-4", r, telemetry.Prediction{Probability: 0.1})); got != 1 {
		t.Fatalf("device B threshold: got %d alerts, want 1", got)
	}
	alerts := e.Evaluate("forklift-3",
		telemetry.Reading{DeviceID: "forklift-3", Temperature: 40},
		telemetry.Prediction{Probability: 0.9})
	if len(alerts) != 1 || alerts[0].Kind != telemetry.KindPredictive {
		t.Fatalf("device A predictive after threshold: got %v, want one predictive alert", alerts)
	}
}

func TestEvaluate_BothRulesFire(t *testing.T) {
	e := newTestEngine(t)

	alerts := e.Evaluate("conveyor-a1",
		telemetry.Reading{DeviceID: "conveyor-a1", Temperature: 99},
		telemetry.Prediction{Probability: 0.9})

	if len(alerts) != 2 {
		t.Fatalf("Evaluate: got %d alerts, want 2", len(alerts))
	}
	kinds := map[string]bool{}
	for _, a := range alerts {
		kinds[a.Kind] = true
	}
	if !kinds[telemetry.KindThreshold] || !kinds[telemetry.KindPredictive] {
		t.Errorf("kinds: got %v, want both threshold and predictive", kinds)
	}
}
