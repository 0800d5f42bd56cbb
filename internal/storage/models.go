package storage

import "time"

// ReadingRecord is the persisted form of an accepted reading.
type ReadingRecord struct {
	ID          uint      `gorm:"primaryKey"`
	DeviceID    string    `gorm:"index:idx_readings_device_time;size:64"`
	Timestamp   time.Time `gorm:"index:idx_readings_device_time"`
	Vibration   float64
	Temperature float64
	Current     float64
	RPM         float64
	LoadPct     float64
}

// PredictionRecord is the persisted form of a real (non-hypothetical)
// prediction. What-if predictions are never written.
type PredictionRecord struct {
	ID          uint      `gorm:"primaryKey"`
	DeviceID    string    `gorm:"index;size:64"`
	Timestamp   time.Time `gorm:"index"`
	Probability float64
	Provider    string `gorm:"size:32"`
}

// AlertRecord is the persisted form of an alert.
type AlertRecord struct {
	ID          string    `gorm:"primaryKey;size:36"` // uuid
	DeviceID    string    `gorm:"index;size:64"`
	Kind        string    `gorm:"index;size:16"`
	Severity    string    `gorm:"size:16"`
	Message     string    `gorm:"type:text"`
	Probability float64
	DedupKey    string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"index"`
}
