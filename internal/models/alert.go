package models

import "time"

type Alert struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	DisasterID int64     `gorm:"not null;index" json:"disaster_id"`
	Disaster   *Disaster `gorm:"constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
	AlertType  string    `gorm:"not null" json:"alert_type"`
	Message    string    `gorm:"not null" json:"message"`
	TimeSent   string    `gorm:"not null" json:"time_sent"`
	CreatedAt  time.Time `json:"created_at"`
}
