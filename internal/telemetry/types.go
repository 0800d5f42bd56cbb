package telemetry

import "time"

// Alert kinds produced by the rule engine.
const (
	KindThreshold  = "threshold"
	KindPredictive = "predictive"
)

// Alert severities, ordered from least to most urgent.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Channel names of the five sensor channels carried by every reading.
var Channels = []string{"vibration", "temperature", "current", "rpm", "load_pct"}

// Reading is one accepted equipment-sensor sample. Timestamps are always UTC;
// the ingest gateway normalizes or rejects anything else. A Reading is
// immutable once accepted.
type Reading struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Vibration   float64   `json:"vibration"`
	Temperature float64   `json:"temperature"`
	Current     float64   `json:"current"`
	RPM         float64   `json:"rpm"`
	LoadPct     float64   `json:"load_pct"`
}

// Value returns the named channel's value. Unknown channels return 0.
func (r Reading) Value(channel string) float64 {
	switch channel {
	case "vibration":
		return r.Vibration
	case "temperature":
		return r.Temperature
	case "current":
		return r.Current
	case "rpm":
		return r.RPM
	case "load_pct":
		return r.LoadPct
	default:
		return 0
	}
}

// Prediction is the scored failure risk for one reading.
// Probability is always in [0, 1]; Provider names the scorer that produced it.
type Prediction struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
	Provider    string    `json:"provider"`
}

// Alert is one alert record produced by the rule engine. Alerts are terminal
// in the pipeline's scope; acknowledgement and closure belong to the
// downstream maintenance system.
type Alert struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	Kind        string    `json:"kind"`     // threshold | predictive
	Severity    string    `json:"severity"` // low | medium | high
	Message     string    `json:"message"`
	Probability float64   `json:"probability,omitempty"`
	DedupKey    string    `json:"dedup_key"`
	CreatedAt   time.Time `json:"created_at"`
}
