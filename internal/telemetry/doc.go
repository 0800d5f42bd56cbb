// Package telemetry defines the core domain types shared across the
// fleetpulse pipeline: sensor readings, failure-risk predictions, and alerts.
//
// Devices themselves are owned by an external asset registry; the pipeline
// treats a device ID as an opaque string key.
package telemetry
