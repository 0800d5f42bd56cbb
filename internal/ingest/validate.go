package ingest

import (
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// ReadingInput is the wire form of a reading before validation. Numeric
// fields are pointers so a missing field is distinguishable from zero.
type ReadingInput struct {
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp,omitempty"` // RFC 3339; empty defaults to receipt time
	Vibration   *float64 `json:"vibration"`
	Temperature *float64 `json:"temperature"`
	Current     *float64 `json:"current"`
	RPM         *float64 `json:"rpm"`
	LoadPct     *float64 `json:"load_pct"`
}

// ValidationError describes why a reading was rejected. It is surfaced to
// the caller per item and never aborts a batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reading: %s: %s", e.Field, e.Reason)
}

// validate checks in against the configured physical ranges and normalizes
// its timestamp to UTC. A missing timestamp defaults to receivedAt; an
// unparsable one is rejected.
func validate(in ReadingInput, cfg config.IngestConfig, receivedAt time.Time) (telemetry.Reading, *ValidationError) {
	if in.DeviceID == "" {
		return telemetry.Reading{}, &ValidationError{Field: "device_id", Reason: "required"}
	}

	channels := map[string]*float64{
		"vibration":   in.Vibration,
		"temperature": in.Temperature,
		"current":     in.Current,
		"rpm":         in.RPM,
		"load_pct":    in.LoadPct,
	}
	for _, name := range telemetry.Channels {
		v := channels[name]
		if v == nil {
			return telemetry.Reading{}, &ValidationError{Field: name, Reason: "required"}
		}
		if r, ok := cfg.Ranges[name]; ok && (*v < r[0] || *v > r[1]) {
			return telemetry.Reading{}, &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("value %v outside range [%v, %v]", *v, r[0], r[1]),
			}
		}
	}

	ts := receivedAt.UTC()
	if in.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return telemetry.Reading{}, &ValidationError{
				Field:  "timestamp",
				Reason: fmt.Sprintf("cannot parse %q as RFC 3339", in.Timestamp),
			}
		}
		ts = parsed.UTC()
	}

	return telemetry.Reading{
		DeviceID:    in.DeviceID,
		Timestamp:   ts,
		Vibration:   *in.Vibration,
		Temperature: *in.Temperature,
		Current:     *in.Current,
		RPM:         *in.RPM,
		LoadPct:     *in.LoadPct,
	}, nil
}
