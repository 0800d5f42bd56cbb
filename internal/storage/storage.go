package storage

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// Store persists readings, predictions, and alerts in SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	if err := db.AutoMigrate(&ReadingRecord{}, &PredictionRecord{}, &AlertRecord{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveReading persists an accepted reading.
func (s *Store) SaveReading(r telemetry.Reading) error {
	rec := ReadingRecord{
		DeviceID:    r.DeviceID,
		Timestamp:   r.Timestamp,
		Vibration:   r.Vibration,
		Temperature: r.Temperature,
		Current:     r.Current,
		RPM:         r.RPM,
		LoadPct:     r.LoadPct,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save reading: %w", err)
	}
	return nil
}

// SavePrediction persists a real prediction.
func (s *Store) SavePrediction(p telemetry.Prediction) error {
	rec := PredictionRecord{
		DeviceID:    p.DeviceID,
		Timestamp:   p.Timestamp,
		Probability: p.Probability,
		Provider:    p.Provider,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save prediction: %w", err)
	}
	return nil
}

// SaveAlert persists an alert.
func (s *Store) SaveAlert(a telemetry.Alert) error {
	rec := AlertRecord{
		ID:          a.ID,
		DeviceID:    a.DeviceID,
		Kind:        a.Kind,
		Severity:    a.Severity,
		Message:     a.Message,
		Probability: a.Probability,
		DedupKey:    a.DedupKey,
		CreatedAt:   a.CreatedAt,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(limit int) ([]telemetry.Alert, error) {
	var recs []AlertRecord
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: list alerts: %w", err)
	}
	out := make([]telemetry.Alert, len(recs))
	for i, r := range recs {
		out[i] = telemetry.Alert{
			ID:          r.ID,
			DeviceID:    r.DeviceID,
			Kind:        r.Kind,
			Severity:    r.Severity,
			Message:     r.Message,
			Probability: r.Probability,
			DedupKey:    r.DedupKey,
			CreatedAt:   r.CreatedAt,
		}
	}
	return out, nil
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]telemetry.Prediction, error) {
	var recs []PredictionRecord
	if err := s.db.Order("timestamp DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: list predictions: %w", err)
	}
	out := make([]telemetry.Prediction, len(recs))
	for i, r := range recs {
		out[i] = telemetry.Prediction{
			DeviceID:    r.DeviceID,
			Timestamp:   r.Timestamp,
			Probability: r.Probability,
			Provider:    r.Provider,
		}
	}
	return out, nil
}

// RecentReadings returns the device's last limit readings, oldest first —
// the shape the context window expects when re-hydrating after a restart.
func (s *Store) RecentReadings(deviceID string, limit int) ([]telemetry.Reading, error) {
	var recs []ReadingRecord
	err := s.db.Where("device_id = ?", deviceID).
		Order("timestamp DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("storage: list readings: %w", err)
	}

	out := make([]telemetry.Reading, len(recs))
	for i, r := range recs {
		// Reverse into chronological order.
		out[len(recs)-1-i] = telemetry.Reading{
			DeviceID:    r.DeviceID,
			Timestamp:   r.Timestamp,
			Vibration:   r.Vibration,
			Temperature: r.Temperature,
			Current:     r.Current,
			RPM:         r.RPM,
			LoadPct:     r.LoadPct,
		}
	}
	return out, nil
}

// DeviceIDs returns every device that has at least one persisted reading.
func (s *Store) DeviceIDs() ([]string, error) {
	var ids []string
	err := s.db.Model(&ReadingRecord{}).Distinct("device_id").Pluck("device_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("storage: list devices: %w", err)
	}
	return ids, nil
}
