package domain

import "errors"

// Sentinel errors for the ledger engine. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")

	ErrNotRegistered = errors.New("participant has no registered region")

	ErrInvalidSource    = errors.New("energy source is not allowed")
	ErrBelowThreshold   = errors.New("energy below certificate threshold")
	ErrNotOwner         = errors.New("caller is not the owner")
	ErrCertificateSpent = errors.New("certificate is no longer valid")
	ErrAlreadyRedeemed  = errors.New("certificate already redeemed")

	ErrAlreadyVerified = errors.New("reading already verified")
	ErrOutOfRange      = errors.New("reading index out of range")

	ErrOfferNotActive           = errors.New("offer is not active")
	ErrOfferExpired             = errors.New("offer has expired")
	ErrBelowMinimum             = errors.New("amount below minimum purchase")
	ErrExceedsAvailable         = errors.New("amount exceeds available energy")
	ErrInsufficientPayment      = errors.New("payment does not cover total price")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInsufficientCertificates = errors.New("not enough valid certificates to back offer")

	ErrTransferFailed = errors.New("payment transfer failed")
)
