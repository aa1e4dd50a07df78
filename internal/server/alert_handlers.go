// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetAlerts handles GET /api/alerts
func (s *Server) GetAlerts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	alerts, err := s.alertService.GetAlerts(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(alerts)
}

// MarkAlertsRead handles PUT /api/alerts/read
func (s *Server) MarkAlertsRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if err := s.alertService.MarkAllRead(c.Context(), userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
