package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/ports"
)

type WalletHandler struct {
	service ports.WalletService
	cards   ports.CardProcessor
	log     *zap.Logger
}

func NewWalletHandler(service ports.WalletService, cards ports.CardProcessor, log *zap.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		cards:   cards,
		log:     log,
	}
}

func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.BalanceOf(c.Context(), identityFromCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

type DepositRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"` // confirm an existing payment intent
}

// Deposit charges the caller's card and credits their wallet once the charge
// confirms. Without a card processor configured, deposits are credited
// directly (development mode).
func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	identity := identityFromCtx(c)
	reference := req.PaymentID

	if h.cards != nil {
		paymentID := req.PaymentID
		if paymentID == "" {
			currency := req.Currency
			if currency == "" {
				currency = "usd"
			}
			id, err := h.cards.CreatePaymentIntent(c.Context(), req.Amount, currency, identity)
			if err != nil {
				return respondError(c, err)
			}
			paymentID = id
		}
		if err := h.cards.ConfirmPayment(c.Context(), paymentID); err != nil {
			return respondError(c, err)
		}
		reference = paymentID
	}

	if err := h.service.Deposit(c.Context(), identity, req.Amount, reference); err != nil {
		// The card was charged but the ledger credit failed; refund so the
		// caller is not charged for a deposit that never landed.
		if h.cards != nil && reference != "" {
			if refundErr := h.cards.RefundPayment(c.Context(), reference); refundErr != nil {
				h.log.Error("Failed to refund after deposit error",
					zap.String("payment_id", reference),
					zap.Error(refundErr),
				)
			}
		}
		return respondError(c, err)
	}

	balance, _ := h.service.BalanceOf(c.Context(), identity)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"deposited": req.Amount,
		"balance":   balance,
		"reference": reference,
	})
}

type TransferRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	identity := identityFromCtx(c)
	if err := h.service.Transfer(c.Context(), identity, req.To, req.Amount); err != nil {
		return respondError(c, err)
	}

	balance, _ := h.service.BalanceOf(c.Context(), identity)
	return c.JSON(fiber.Map{
		"transferred": req.Amount,
		"to":          req.To,
		"balance":     balance,
	})
}

func (h *WalletHandler) Transactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	txs, err := h.service.Transactions(c.Context(), identityFromCtx(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"transactions": txs,
		"count":        len(txs),
	})
}
