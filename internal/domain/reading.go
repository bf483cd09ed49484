package domain

import "time"

type ReadingKind string

const (
	ReadingKindConsumption ReadingKind = "consumption"
	ReadingKindProduction  ReadingKind = "production"
)

type ReadingStatus string

const (
	ReadingStatusUnverified ReadingStatus = "Unverified"
	ReadingStatusVerified   ReadingStatus = "Verified"
)

// Reading is a self-reported consumption or production data point. Readings
// are append-only; the only mutation is the one-way Unverified -> Verified
// transition performed by an authorized verifier.
type Reading struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Reporter     string        `json:"reporter" gorm:"index"`
	Kind         ReadingKind   `json:"kind" gorm:"index"`
	Index        int           `json:"index"` // position within the reporter's per-kind log
	Amount       float64       `json:"amount"` // kWh, > 0
	Source       string        `json:"source"`
	CarbonOffset float64       `json:"carbon_offset,omitempty"` // production only
	Status       ReadingStatus `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	VerifiedAt   *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy   string        `json:"verified_by,omitempty"`
}

// EnergyStats aggregates reading totals for a participant or a region.
// Totals include unverified readings; verification gates certificate
// issuance, not accounting.
type EnergyStats struct {
	TotalConsumed     float64 `json:"total_consumed"`
	TotalProduced     float64 `json:"total_produced"`
	TotalCarbonOffset float64 `json:"total_carbon_offset"`
	ReadingCount      int     `json:"reading_count"`
}
