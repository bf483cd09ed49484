package domain

import "time"

type TradeStatus string

const (
	TradeStatusOpen      TradeStatus = "Open"
	TradeStatusCompleted TradeStatus = "Completed"
	TradeStatusCancelled TradeStatus = "Cancelled"
)

// Trade records a settled (or settling) exchange of energy and funds.
// Trades created through offer acceptance start Open; trades recorded for an
// off-platform exchange are Completed immediately. Completed and Cancelled
// are terminal.
type Trade struct {
	ID            uint64      `json:"id" gorm:"primaryKey"`
	Seller        string      `json:"seller" gorm:"index"`
	Buyer         string      `json:"buyer" gorm:"index"`
	EnergyAmount  int64       `json:"energy_amount"`  // kWh
	PricePerUnit  int64       `json:"price_per_unit"` // minor currency units per kWh
	TotalPrice    int64       `json:"total_price"`    // EnergyAmount * PricePerUnit
	Timestamp     time.Time   `json:"timestamp"`
	DeliveryTime  time.Time   `json:"delivery_time"`
	Region        string      `json:"region" gorm:"index"`
	Status        TradeStatus `json:"status" gorm:"index"`
	Certified     bool        `json:"certified"`
	CertificateID uint64      `json:"certificate_id,omitempty"` // 0 when uncertified
	OfferID       uint64      `json:"offer_id,omitempty"`       // 0 for directly recorded trades
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
}

// Settled reports whether the trade reached a terminal state.
func (t *Trade) Settled() bool {
	return t.Status != TradeStatusOpen
}

// DirectTradeRequest carries the parameters of an off-platform trade logged
// for transparency. No payment moves through the engine for these.
type DirectTradeRequest struct {
	Seller       string `json:"seller"`
	Buyer        string `json:"buyer"`
	EnergyAmount int64  `json:"energy_amount"`
	PricePerUnit int64  `json:"price_per_unit"`
	Region       string `json:"region"`
}
