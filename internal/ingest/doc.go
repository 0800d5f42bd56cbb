// Package ingest implements the telemetry ingestion gateway, the single
// entry point of the pipeline.
//
// Each reading is validated (required fields, configured physical ranges,
// UTC-normalized timestamp), persisted, appended to its device's context
// window, scored through the provider chain, and evaluated against the alert
// rules; broadcast and webhook delivery then happen as decoupled, non-blocking
// side effects. Batches are processed item by item — one malformed reading
// never blocks its neighbours. WhatIf scores a hypothetical reading with zero
// side effects.
package ingest
