package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestReadings_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.SaveReading(telemetry.Reading{
			DeviceID:    "conveyor-a1",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Temperature: float64(40 + i),
			Vibration:   1.5,
			Current:     8,
			RPM:         2000,
			LoadPct:     55,
		})
		if err != nil {
			t.Fatalf("SaveReading: %v", err)
		}
	}

	got, err := s.RecentReadings("conveyor-a1", 10)
	if err != nil {
		t.Fatalf("RecentReadings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentReadings: got %d, want 3", len(got))
	}
	// Chronological order, oldest first.
	for i, r := range got {
		if r.Temperature != float64(40+i) {
			t.Errorf("reading %d temperature: got %v, want %v", i, r.Temperature, 40+i)
		}
	}
}

func TestRecentReadings_HonorsLimitAndDevice(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := s.SaveReading(telemetry.Reading{
			DeviceID:  "truck-7",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			RPM:       float64(i),
		}); err != nil {
			t.Fatalf("SaveReading: %v", err)
		}
	}
	if err := s.SaveReading(telemetry.Reading{DeviceID: "truck-8", Timestamp: base}); err != nil {
		t.Fatalf("SaveReading: %v", err)
	}

	got, err := s.RecentReadings("truck-7", 2)
	if err != nil {
		t.Fatalf("RecentReadings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentReadings: got %d, want 2", len(got))
	}
	// The two newest, still oldest-first.
	if got[0].RPM != 3 || got[1].RPM != 4 {
		t.Errorf("limited readings: got rpms %v/%v, want 3/4", got[0].RPM, got[1].RPM)
	}
}

func TestAlerts_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a-1", "a-2"} {
		err := s.SaveAlert(telemetry.Alert{
			ID:          id,
			DeviceID:    "forklift-3",
			Kind:        telemetry.KindThreshold,
			Severity:    telemetry.SeverityMedium,
			Message:     "Temperature 95.0°C exceeds max 80.0°C",
			DedupKey:    "temperature_max",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveAlert: %v", err)
		}
	}

	got, err := s.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentAlerts: got %d, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != "a-2" || got[1].ID != "a-1" {
		t.Errorf("alert order: got %q, %q, want a-2, a-1", got[0].ID, got[1].ID)
	}
	if got[0].Severity != telemetry.SeverityMedium {
		t.Errorf("severity: got %q", got[0].Severity)
	}
}

func TestPredictions_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, p := range []float64{0.2, 0.8} {
		err := s.SavePrediction(telemetry.Prediction{
			DeviceID:    "truck-7",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Probability: p,
			Provider:    "heuristic",
		})
		if err != nil {
			t.Fatalf("SavePrediction: %v", err)
		}
	}

	got, err := s.RecentPredictions(1)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentPredictions: got %d, want 1", len(got))
	}
	if got[0].Probability != 0.8 || got[0].Provider != "heuristic" {
		t.Errorf("prediction: got %+v", got[0])
	}
}

func TestDeviceIDs(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	for _, dev := range []string{"a", "a", "b"} {
		if err := s.SaveReading(telemetry.Reading{DeviceID: dev, Timestamp: now}); err != nil {
			t.Fatalf("SaveReading: %v", err)
		}
	}

	ids, err := s.DeviceIDs()
	if err != nil {
		t.Fatalf("DeviceIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("DeviceIDs: got %v, want two distinct ids", ids)
	}
}
