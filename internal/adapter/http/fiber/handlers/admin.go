package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/ports"
)

// AdminHandler exposes owner-only engine administration. The service layer
// re-checks ownership; the route group additionally requires the admin role.
type AdminHandler struct {
	market ports.MarketService
	log    *zap.Logger
}

func NewAdminHandler(market ports.MarketService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		market: market,
		log:    log,
	}
}

type FeeRateRequest struct {
	FeeBps int64 `json:"fee_bps"`
}

func (h *AdminHandler) SetFeeRate(c *fiber.Ctx) error {
	var req FeeRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.market.SetFeeRate(c.Context(), identityFromCtx(c), req.FeeBps); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"fee_bps": req.FeeBps})
}

type FeeRecipientRequest struct {
	Recipient string `json:"recipient"`
}

func (h *AdminHandler) SetFeeRecipient(c *fiber.Ctx) error {
	var req FeeRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.market.SetFeeRecipient(c.Context(), identityFromCtx(c), req.Recipient); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"recipient": req.Recipient})
}

type WithdrawRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *AdminHandler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.market.Withdraw(c.Context(), identityFromCtx(c), req.To, req.Amount); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"withdrawn": req.Amount, "to": req.To})
}
