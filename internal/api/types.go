package api

import (
	"github.com/fleetpulse/fleetpulse/internal/ingest"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// IngestResponse is the payload for POST /api/v1/readings.
type IngestResponse struct {
	Reading    telemetry.Reading    `json:"reading"`
	Prediction telemetry.Prediction `json:"prediction"`
	Alerts     []telemetry.Alert    `json:"alerts"`
}

// BatchRequest is the body of POST /api/v1/readings/batch.
type BatchRequest struct {
	Items []ingest.ReadingInput `json:"items"`
}

// BatchResponse reports per-item outcomes of a batch ingestion.
type BatchResponse struct {
	Accepted []IngestResponse        `json:"accepted"`
	Rejected []ingest.BatchRejection `json:"rejected"`
}

// WhatIfRequest is the body of POST /api/v1/whatif.
type WhatIfRequest struct {
	DeviceID string              `json:"device_id"`
	Reading  ingest.ReadingInput `json:"reading"`
}

// WhatIfResponse is the payload for POST /api/v1/whatif.
type WhatIfResponse struct {
	DeviceID    string  `json:"device_id"`
	Probability float64 `json:"probability"`
	Provider    string  `json:"provider"`
}

// ConfigResponse is the payload for GET /api/v1/config.
type ConfigResponse struct {
	Providers            []string `json:"providers"` // chain priority order
	ProbabilityThreshold float64  `json:"probability_threshold"`
	TemperatureMax       float64  `json:"temperature_max"`
	MediumCut            float64  `json:"medium_cut"`
	HighCut              float64  `json:"high_cut"`
	WindowSize           int      `json:"window_size"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
