package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/ports"
)

type CertificateHandler struct {
	service ports.CertificateService
	log     *zap.Logger
}

func NewCertificateHandler(service ports.CertificateService, log *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		service: service,
		log:     log,
	}
}

func (h *CertificateHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid certificate id"})
	}

	cert, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cert)
}

type TransferCertificateRequest struct {
	To string `json:"to"`
}

func (h *CertificateHandler) Transfer(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid certificate id"})
	}

	var req TransferCertificateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.service.Transfer(c.Context(), identityFromCtx(c), req.To, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transferred": id, "to": req.To})
}

func (h *CertificateHandler) Redeem(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid certificate id"})
	}

	if err := h.service.Redeem(c.Context(), identityFromCtx(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"redeemed": id})
}

// Owned lists the caller's certificates and valid count.
func (h *CertificateHandler) Owned(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	return c.JSON(fiber.Map{
		"certificates": h.service.OwnedCertificates(c.Context(), identity),
		"valid_count":  h.service.ValidCount(c.Context(), identity),
	})
}

// OwnedBy lists another identity's certificates.
func (h *CertificateHandler) OwnedBy(c *fiber.Ctx) error {
	identity := c.Params("identity")
	return c.JSON(fiber.Map{
		"certificates": h.service.OwnedCertificates(c.Context(), identity),
		"valid_count":  h.service.ValidCount(c.Context(), identity),
	})
}
