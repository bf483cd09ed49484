package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type MarketHandler struct {
	service ports.MarketService
	log     *zap.Logger
}

func NewMarketHandler(service ports.MarketService, log *zap.Logger) *MarketHandler {
	return &MarketHandler{
		service: service,
		log:     log,
	}
}

type OfferRequest struct {
	EnergyAmount   int64     `json:"energy_amount"`
	PricePerUnit   int64     `json:"price_per_unit"`
	MinPurchase    int64     `json:"min_purchase"`
	ExpirationTime time.Time `json:"expiration_time"`
	Region         string    `json:"region"`
	Certified      bool      `json:"certified"`
}

func (r *OfferRequest) toDomain() *domain.OfferRequest {
	return &domain.OfferRequest{
		EnergyAmount:   r.EnergyAmount,
		PricePerUnit:   r.PricePerUnit,
		MinPurchase:    r.MinPurchase,
		ExpirationTime: r.ExpirationTime,
		Region:         r.Region,
		Certified:      r.Certified,
	}
}

func (h *MarketHandler) CreateOffer(c *fiber.Ctx) error {
	var req OfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	offer, err := h.service.CreateOffer(c.Context(), identityFromCtx(c), req.toDomain())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

func (h *MarketHandler) UpdateOffer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req OfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	offer, err := h.service.UpdateOffer(c.Context(), identityFromCtx(c), id, req.toDomain())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(offer)
}

func (h *MarketHandler) CancelOffer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.CancelOffer(c.Context(), identityFromCtx(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": id})
}

type AcceptOfferRequest struct {
	EnergyAmount int64 `json:"energy_amount"`
	Payment      int64 `json:"payment"`
}

func (h *MarketHandler) AcceptOffer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req AcceptOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	trade, err := h.service.AcceptOffer(c.Context(), identityFromCtx(c), id, req.EnergyAmount, req.Payment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(trade)
}

func (h *MarketHandler) GetOffer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	offer, err := h.service.GetOffer(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(offer)
}

func (h *MarketHandler) CompleteTrade(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.CompleteTrade(c.Context(), identityFromCtx(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"completed": id})
}

func (h *MarketHandler) CancelTrade(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.CancelTrade(c.Context(), identityFromCtx(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": id})
}

type RecordTradeRequest struct {
	Seller       string `json:"seller"`
	Buyer        string `json:"buyer"`
	EnergyAmount int64  `json:"energy_amount"`
	PricePerUnit int64  `json:"price_per_unit"`
	Region       string `json:"region"`
}

// RecordTrade logs an off-platform trade for transparency.
func (h *MarketHandler) RecordTrade(c *fiber.Ctx) error {
	var req RecordTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	trade, err := h.service.RecordTrade(c.Context(), identityFromCtx(c), &domain.DirectTradeRequest{
		Seller:       req.Seller,
		Buyer:        req.Buyer,
		EnergyAmount: req.EnergyAmount,
		PricePerUnit: req.PricePerUnit,
		Region:       req.Region,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(trade)
}

func (h *MarketHandler) GetTrade(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	trade, err := h.service.GetTrade(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trade)
}

func (h *MarketHandler) MyOffers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"offers": h.service.OffersBySeller(c.Context(), identityFromCtx(c))})
}

func (h *MarketHandler) OffersByRegion(c *fiber.Ctx) error {
	region := c.Params("region")
	return c.JSON(fiber.Map{"offers": h.service.OffersByRegion(c.Context(), region)})
}

func (h *MarketHandler) MyTrades(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	return c.JSON(fiber.Map{
		"sold":   h.service.TradesBySeller(c.Context(), identity),
		"bought": h.service.TradesByBuyer(c.Context(), identity),
	})
}

func (h *MarketHandler) TradesByRegion(c *fiber.Ctx) error {
	region := c.Params("region")
	return c.JSON(fiber.Map{"trades": h.service.TradesByRegion(c.Context(), region)})
}

func (h *MarketHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.service.Metrics(c.Context()))
}

func (h *MarketHandler) RegionMetrics(c *fiber.Ctx) error {
	return c.JSON(h.service.RegionMetrics(c.Context(), c.Params("region")))
}

func parseID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return id, nil
}
