package domain

import "time"

// Participant ties an address-like identity to its declared market region.
// A participant belongs to at most one region at a time; re-registration
// moves it.
type Participant struct {
	Identity     string    `json:"identity" gorm:"primaryKey"`
	Region       string    `json:"region" gorm:"index"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
