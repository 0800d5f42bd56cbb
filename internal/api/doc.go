// Package api implements the HTTP REST API for fleetpulse.
//
// New(cfg, gateway, chain, store) returns an http.Handler that serves:
//
//	POST /api/v1/readings        — ingest one reading; 422 on validation failure
//	POST /api/v1/readings/batch  — ingest many; per-item accepted/rejected report
//	POST /api/v1/whatif          — hypothetical scoring, no side effects
//	GET  /api/v1/alerts          — latest alerts, newest first
//	GET  /api/v1/predictions     — latest predictions, newest first
//	GET  /api/v1/config          — provider order and alert thresholds
//	GET  /api/v1/health          — liveness probe
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. JSON types are defined in types.go. No external
// HTTP framework is used.
package api
