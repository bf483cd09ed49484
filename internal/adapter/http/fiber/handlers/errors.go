package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// statusFromError maps ledger sentinel errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrOutOfRange),
		errors.Is(err, domain.ErrNotRegistered):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyVerified),
		errors.Is(err, domain.ErrAlreadyRedeemed),
		errors.Is(err, domain.ErrCertificateSpent),
		errors.Is(err, domain.ErrOfferNotActive),
		errors.Is(err, domain.ErrOfferExpired):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrBelowThreshold),
		errors.Is(err, domain.ErrBelowMinimum),
		errors.Is(err, domain.ErrExceedsAvailable),
		errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientCertificates):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransferFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFromError(err)).JSON(fiber.Map{"error": err.Error()})
}

// identityFromCtx returns the ledger identity the auth middleware resolved.
func identityFromCtx(c *fiber.Ctx) string {
	identity, _ := c.Locals("identity").(string)
	return identity
}
