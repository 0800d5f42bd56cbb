// Package window implements the per-device context store: a bounded,
// ordered window of each device's most recent readings, and the feature
// vector derived from it for risk scoring.
//
// The store is an arena of fixed-capacity ring buffers keyed by device ID.
// Each ring has its own lock, so appends for different devices run fully in
// parallel while appends for one device are serialized. WithCandidate builds
// a transient window for what-if scoring without mutating anything.
package window
