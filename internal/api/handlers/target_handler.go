package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sundayhq/sunday-scheduler/internal/service"
	"github.com/sundayhq/sunday-scheduler/internal/transfer"
)

type TargetHandler struct {
	s service.TargetService
}

func NewTargetHandler(service service.TargetService) *TargetHandler {
	return &TargetHandler{s: service}
}

func (h *TargetHandler) CreateTarget(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var tc transfer.TargetCreation
	if err := c.BodyParser(&tc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	targetID, err := h.s.Create(c.Context(), userID, &tc)
	if err != nil {
		return c.Status(ErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": targetID,
	})
}

func (h *TargetHandler) ListTargets(c *fiber.Ctx) error {
	userID := GetUserID(c)

	targets, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list targets",
		})
	}

	return c.Status(fiber.StatusOK).JSON(targets)
}

func (h *TargetHandler) RemoveTarget(c *fiber.Ctx) error {
	userID := GetUserID(c)
	targetID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(targetID))
	if err != nil {
		return c.Status(ErrorStatus(err)).JSON(fiber.Map{
			"error": "Unable to remove target",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
