package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docsight/backend/internal/conversation"
	"github.com/docsight/backend/pkg/logger"
)

type ConversationHandler struct {
	store conversation.Store
}

func NewConversationHandler(store conversation.Store) *ConversationHandler {
	return &ConversationHandler{store: store}
}

// GetRecent returns the newest entries of the shared conversation log.
func (h *ConversationHandler) GetRecent(c *fiber.Ctx) error {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	entries, err := h.store.LoadRecent(limit)
	if err != nil {
		logger.Error("Failed to load conversation log", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation log",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}
