package domain

import "time"

type CertificateStatus string

const (
	CertificateStatusValid    CertificateStatus = "Valid"
	CertificateStatusRedeemed CertificateStatus = "Redeemed"
)

// Certificate is a renewable-energy certificate representing exactly one
// threshold unit of certified production. Ownership is exclusive; a redeemed
// certificate stays queryable but can no longer be transferred.
type Certificate struct {
	ID           uint64            `json:"id" gorm:"primaryKey"`
	EnergyAmount int64             `json:"energy_amount"` // kWh, always the threshold unit
	IssuanceDate time.Time         `json:"issuance_date"`
	EnergySource string            `json:"energy_source"`
	Location     string            `json:"location"`
	Status       CertificateStatus `json:"status" gorm:"index"`
	Owner        string            `json:"owner" gorm:"index"`
}

// Valid reports whether the certificate can still be transferred or redeemed.
func (c *Certificate) Valid() bool {
	return c.Status == CertificateStatusValid
}
