package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docsight/backend/internal/insights"
)

type InsightsHandler struct {
	service *insights.Service
}

func NewInsightsHandler(service *insights.Service) *InsightsHandler {
	return &InsightsHandler{service: service}
}

func (h *InsightsHandler) GetSummary(c *fiber.Ctx) error {
	return c.JSON(h.service.Summary())
}

func (h *InsightsHandler) GetSales(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sales_by_product": h.service.SalesByProduct(),
	})
}

func (h *InsightsHandler) GetProduction(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"production_by_product": h.service.ProductionByProduct(),
	})
}

func (h *InsightsHandler) GetSentiments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sentiments": h.service.SentimentDistribution(),
	})
}

func (h *InsightsHandler) GetProducts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"products": h.service.Products(),
	})
}

func (h *InsightsHandler) GetProductDetail(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	detail, err := h.service.ProductDetail(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(detail)
}
