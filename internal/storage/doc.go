// Package storage persists accepted readings, real predictions, and alerts
// in SQLite via gorm. The pipeline treats it as its persistence collaborator:
// a failed reading write aborts that reading's pipeline run, while prediction
// and alert write failures are logged and tolerated.
package storage
