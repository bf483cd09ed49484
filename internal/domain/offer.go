package domain

import "time"

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "Active"
	OfferStatusInactive OfferStatus = "Inactive"
)

// Offer is a standing, partially-fillable sell listing. EnergyAmount is the
// remaining quantity and decreases on fills; the offer deactivates when the
// remainder drops below MinPurchase or the seller cancels it.
// Invariant while active: 0 < MinPurchase <= EnergyAmount.
type Offer struct {
	ID             uint64      `json:"id" gorm:"primaryKey"`
	Seller         string      `json:"seller" gorm:"index"`
	EnergyAmount   int64       `json:"energy_amount"`  // kWh remaining
	PricePerUnit   int64       `json:"price_per_unit"` // minor currency units per kWh
	MinPurchase    int64       `json:"min_purchase"`   // kWh
	ExpirationTime time.Time   `json:"expiration_time"`
	Region         string      `json:"region" gorm:"index"`
	Certified      bool        `json:"certified"`
	Status         OfferStatus `json:"status" gorm:"index"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Active reports whether the offer can still be filled (expiry is checked
// separately against the clock at acceptance time).
func (o *Offer) Active() bool {
	return o.Status == OfferStatusActive
}

// OfferRequest carries the seller-supplied parameters for creating or
// updating an offer.
type OfferRequest struct {
	EnergyAmount   int64     `json:"energy_amount"`
	PricePerUnit   int64     `json:"price_per_unit"`
	MinPurchase    int64     `json:"min_purchase"`
	ExpirationTime time.Time `json:"expiration_time"`
	Region         string    `json:"region"`
	Certified      bool      `json:"certified"`
}
