package domain

import "time"

type UserRole string

const (
	UserRoleParticipant UserRole = "participant"
	UserRoleAdmin       UserRole = "admin"
)

// User is an API account. Its Identity is the opaque address-like key the
// ledger services know the caller by; the HTTP layer resolves it from the
// session token.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	Identity     string    `json:"identity" gorm:"uniqueIndex"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
