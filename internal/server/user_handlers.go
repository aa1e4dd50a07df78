// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"heartlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Login handles POST /api/users/session
//
// The client sends its identity token; the verified subject uid becomes the
// account key. First login creates the account.
func (s *Server) Login(c *fiber.Ctx) error {
	idToken := c.Get("id_token")
	if idToken == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Identity token required"))
	}

	uid, err := s.verifier.Verify(c.Context(), idToken)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid identity token"))
	}

	session, err := s.userService.Login(c.Context(), uid, c.IP())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(session)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUser(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), userID, fields)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdatePushToken handles PUT /api/users/me/push-token
func (s *Server) UpdatePushToken(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var body struct {
		PushToken string `json:"push_token"`
	}
	if err := c.BodyParser(&body); err != nil || body.PushToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("push_token is required"))
	}

	if err := s.userService.UpdatePushToken(c.Context(), userID, body.PushToken); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateLocation handles PUT /api/users/me/location
func (s *Server) UpdateLocation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateLocation(c.Context(), userID, body.Latitude, body.Longitude, c.IP())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UploadImage handles POST /api/users/me/images/:index
func (s *Server) UploadImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid image index"))
	}

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("An image file is required"))
	}
	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read the uploaded file"))
	}
	defer src.Close()

	user, err := s.userService.UploadImage(c.Context(), userID, index, src)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteImage handles DELETE /api/users/me/images/:index
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid image index"))
	}

	user, err := s.userService.DeleteImage(c.Context(), userID, index)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// SubmitForReview handles POST /api/users/me/submit
func (s *Server) SubmitForReview(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.SubmitForReview(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// ApproveUser handles POST /api/users/:id/approval
func (s *Server) ApproveUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.Approve(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// RejectUser handles POST /api/users/:id/rejection
func (s *Server) RejectUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.Reject(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// PokeUser handles POST /api/users/:id/poke
func (s *Server) PokeUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.Poke(c.Context(), userID, targetID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RateUser handles POST /api/users/:id/rating
func (s *Server) RateUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Score int `json:"score"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	rating, err := s.userService.RateUser(c.Context(), userID, targetID, body.Score)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rating)
}

// BrowseUsers handles GET /api/users
func (s *Server) BrowseUsers(c *fiber.Ctx) error {
	users, err := s.userService.BrowseUsers(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetRatedMeHigh handles GET /api/users/rated-me-high
func (s *Server) GetRatedMeHigh(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	users, err := s.userService.RatedMeHigh(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetMyRatings handles GET /api/users/me/ratings
func (s *Server) GetMyRatings(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	ratings, err := s.userService.GetRatings(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(ratings)
}

// GetNearbyRealTime handles GET /api/users/nearby/real-time
func (s *Server) GetNearbyRealTime(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	users, err := s.userService.NearbyRealTime(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetNearbyClose handles GET /api/users/nearby/close
func (s *Server) GetNearbyClose(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	users, err := s.userService.NearbyClose(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}
