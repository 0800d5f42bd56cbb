// Package metrics defines the Prometheus collectors exported by fleetpulse
// on /metrics: ingest volume, provider fallback activity, alert counts, and
// the loss counters of the best-effort side effects.
package metrics
