package models

import "time"

// Severity bounds accepted on create. The scale is open-ended in the data
// but reports outside this range are rejected at the handler.
const (
	MinSeverity = 0
	MaxSeverity = 10
)

type Disaster struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	DisasterType string    `gorm:"not null" json:"disaster_type"`
	Location     string    `gorm:"not null" json:"location"`
	Severity     float64   `gorm:"not null" json:"severity"`
	TimeOccurred string    `gorm:"not null" json:"time_occurred"` // as reported, not parsed
	CreatedAt    time.Time `json:"created_at"`                    // when we stored it
}
