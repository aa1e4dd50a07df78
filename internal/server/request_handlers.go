// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"heartlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendRequest handles POST /api/requests/:userId
func (s *Server) SendRequest(c *fiber.Ctx) error {
	if err := s.requireMatchingIdentity(c); err != nil {
		return models.RespondWithError(c, fiber.StatusForbidden, err)
	}

	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var body struct {
		RequestType int `json:"request_type_id"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	request, err := s.requestService.SendRequest(c.Context(), userID, targetID, body.RequestType)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// RespondToRequest handles PUT /api/requests/:requestId/response
func (s *Server) RespondToRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	var body struct {
		Response *int `json:"response"`
	}
	if err := c.BodyParser(&body); err != nil || body.Response == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("response is required"))
	}

	request, err := s.requestService.Respond(c.Context(), userID, requestID, *body.Response)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(request)
}

// GetReceivedRequests handles GET /api/requests/received
func (s *Server) GetReceivedRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requests, err := s.requestService.GetReceived(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(requests)
}

// GetSentRequests handles GET /api/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requests, err := s.requestService.GetSent(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(requests)
}
