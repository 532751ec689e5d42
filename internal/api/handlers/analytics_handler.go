package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(service service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: service}
}

func (h *AnalyticsHandler) GetPostAnalytics(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("post_id", 0)

	analytics, err := h.s.ListByPost(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get analytics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(analytics)
}
