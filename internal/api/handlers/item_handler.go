package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sundayhq/sunday-scheduler/internal/service"
	"github.com/sundayhq/sunday-scheduler/internal/transfer"
)

type ItemHandler struct {
	s service.ItemService
}

func NewItemHandler(service service.ItemService) *ItemHandler {
	return &ItemHandler{s: service}
}

func (h *ItemHandler) CreateItem(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var ic transfer.ItemCreation
	if err := c.BodyParser(&ic); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	itemID, err := h.s.Create(c.Context(), userID, &ic)
	if err != nil {
		return c.Status(ErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": itemID,
	})
}

func (h *ItemHandler) ListItems(c *fiber.Ctx) error {
	userID := GetUserID(c)
	itemID := c.QueryInt("id", 0)

	if itemID != 0 {
		item, err := h.s.Info(c.Context(), int64(itemID), userID)
		if err != nil {
			return c.Status(ErrorStatus(err)).JSON(fiber.Map{
				"error": "Unable to get item",
			})
		}

		return c.Status(fiber.StatusOK).JSON(item)
	}

	items, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list items",
		})
	}

	return c.Status(fiber.StatusOK).JSON(items)
}

func (h *ItemHandler) RemoveItem(c *fiber.Ctx) error {
	userID := GetUserID(c)
	itemID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(itemID))
	if err != nil {
		return c.Status(ErrorStatus(err)).JSON(fiber.Map{
			"error": "Unable to remove item",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *ItemHandler) ListAttempts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	attempts, err := h.s.ListAttempts(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list dispatch attempts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(attempts)
}
