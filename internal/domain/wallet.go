package domain

import "time"

// Wallet holds a participant's balance in minor currency units.
type Wallet struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Owner     string    `json:"owner" gorm:"uniqueIndex"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletTransaction is one credit or debit applied to a wallet.
type WalletTransaction struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	WalletID    string    `json:"wallet_id" gorm:"index"`
	Owner       string    `json:"owner" gorm:"index"`
	Type        string    `json:"type"` // "credit" or "debit"
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"` // balance after applying
	Description string    `json:"description"`
	ReferenceID string    `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payout is one leg of a settlement.
type Payout struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Settlement describes an atomic payment split: Amount is taken from Payer
// and distributed across Payouts, which must sum to Amount. Either every leg
// applies or none do.
type Settlement struct {
	Reference string   `json:"reference"`
	Payer     string   `json:"payer"`
	Amount    int64    `json:"amount"`
	Payouts   []Payout `json:"payouts"`
}
