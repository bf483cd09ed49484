package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/ports"
)

type RegistryHandler struct {
	service ports.RegistryService
	log     *zap.Logger
}

func NewRegistryHandler(service ports.RegistryService, log *zap.Logger) *RegistryHandler {
	return &RegistryHandler{
		service: service,
		log:     log,
	}
}

type RegisterRegionRequest struct {
	Region string `json:"region"`
}

// Register declares (or moves) the caller's market region.
func (h *RegistryHandler) Register(c *fiber.Ctx) error {
	var req RegisterRegionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	identity := identityFromCtx(c)
	if err := h.service.Register(c.Context(), identity, req.Region); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"identity": identity,
		"region":   req.Region,
	})
}

// MyRegion returns the caller's registered region.
func (h *RegistryHandler) MyRegion(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	region, err := h.service.RegionOf(c.Context(), identity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"region": region})
}

// RegionParticipants returns a region's participant count.
func (h *RegistryHandler) RegionParticipants(c *fiber.Ctx) error {
	region := c.Params("region")
	count := h.service.RegionParticipants(c.Context(), region)
	return c.JSON(fiber.Map{
		"region":       region,
		"participants": count,
	})
}

// Regions lists every region with at least one participant.
func (h *RegistryHandler) Regions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"regions": h.service.Regions(c.Context())})
}
