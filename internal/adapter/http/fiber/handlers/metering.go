package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type MeteringHandler struct {
	service ports.MeteringService
	log     *zap.Logger
}

func NewMeteringHandler(service ports.MeteringService, log *zap.Logger) *MeteringHandler {
	return &MeteringHandler{
		service: service,
		log:     log,
	}
}

type LogReadingRequest struct {
	Amount       float64 `json:"amount"`
	Source       string  `json:"source"`
	CarbonOffset float64 `json:"carbon_offset"`
}

func (h *MeteringHandler) LogConsumption(c *fiber.Ctx) error {
	var req LogReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	reading, err := h.service.LogConsumption(c.Context(), identityFromCtx(c), req.Amount, req.Source)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

func (h *MeteringHandler) LogProduction(c *fiber.Ctx) error {
	var req LogReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	reading, err := h.service.LogProduction(c.Context(), identityFromCtx(c), req.Amount, req.Source, req.CarbonOffset)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

type VerifyReadingRequest struct {
	Identity string `json:"identity"`
	Index    int    `json:"index"`
	Kind     string `json:"kind"`
}

// Verify marks a reading verified; verified production triggers certificate
// minting.
func (h *MeteringHandler) Verify(c *fiber.Ctx) error {
	var req VerifyReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	kind := domain.ReadingKind(req.Kind)
	if kind != domain.ReadingKindConsumption && kind != domain.ReadingKindProduction {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be consumption or production"})
	}

	if err := h.service.Verify(c.Context(), identityFromCtx(c), req.Identity, req.Index, kind); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"verified": true})
}

type VerifierRequest struct {
	Verifier string `json:"verifier"`
}

func (h *MeteringHandler) AddVerifier(c *fiber.Ctx) error {
	var req VerifierRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.service.AddVerifier(c.Context(), identityFromCtx(c), req.Verifier); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"added": req.Verifier})
}

func (h *MeteringHandler) RemoveVerifier(c *fiber.Ctx) error {
	var req VerifierRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.service.RemoveVerifier(c.Context(), identityFromCtx(c), req.Verifier); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"removed": req.Verifier})
}

func (h *MeteringHandler) Readings(c *fiber.Ctx) error {
	identity := c.Params("identity")
	kind := domain.ReadingKind(c.Query("kind", string(domain.ReadingKindProduction)))

	readings, err := h.service.Readings(c.Context(), identity, kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"readings": readings})
}

func (h *MeteringHandler) ParticipantStats(c *fiber.Ctx) error {
	stats, err := h.service.ParticipantStats(c.Context(), c.Params("identity"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *MeteringHandler) RegionStats(c *fiber.Ctx) error {
	stats, err := h.service.RegionStats(c.Context(), c.Params("region"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
