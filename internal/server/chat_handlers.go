// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"heartlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetChatRooms handles GET /api/chat-rooms
func (s *Server) GetChatRooms(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	rooms, err := s.chatService.GetRooms(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(rooms)
}

// GetChatRoom handles GET /api/chat-rooms/:id
func (s *Server) GetChatRoom(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	room, err := s.chatService.GetRoom(c.Context(), userID, roomID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(room)
}

// GetMessages handles GET /api/chat-rooms/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	room, err := s.chatService.GetRoom(c.Context(), userID, roomID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(room.Messages)
}

// SendMessage handles POST /api/chat-rooms/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.chatService.SendMessage(c.Context(), userID, roomID, body.Message)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// OpenChatRoom handles POST /api/chat-rooms/:id/open
func (s *Server) OpenChatRoom(c *fiber.Ctx) error {
	if err := s.requireMatchingIdentity(c); err != nil {
		return models.RespondWithError(c, fiber.StatusForbidden, err)
	}

	userID := c.Locals("userID").(uint)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	room, err := s.chatService.OpenRoom(c.Context(), userID, roomID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(room)
}

// DeleteChatRoom handles DELETE /api/chat-rooms/:id
func (s *Server) DeleteChatRoom(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.chatService.DeleteRoom(c.Context(), userID, roomID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
