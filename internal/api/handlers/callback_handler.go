package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	cfg "github.com/sundayhq/sunday-scheduler/configs"
	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/service"
	"github.com/sundayhq/sunday-scheduler/internal/transfer"
)

type CallbackHandler struct {
	cfg cfg.Config
	s   service.ReconcileService
}

func NewCallbackHandler(cfg cfg.Config, service service.ReconcileService) *CallbackHandler {
	return &CallbackHandler{cfg: cfg, s: service}
}

// PublishCallback receives the publisher worker's final result for an item.
// Duplicates return 200, unknown items 404, invalid transitions 409.
func (h *CallbackHandler) PublishCallback(c *fiber.Ctx) error {
	secret := c.Get("X-Callback-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.CallbackSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid callback secret",
		})
	}

	var req transfer.PublishCallback
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if req.ItemID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "item_id is required",
		})
	}

	err := h.s.Reconcile(c.Context(), req.ItemID, models.Status(req.Outcome), req.ExternalRef, req.Error)
	if err != nil {
		return c.Status(ErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Callback applied",
	})
}
