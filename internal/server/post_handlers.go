// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"strings"

	"heartlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts. Multipart requests may attach an
// "image" file, which is uploaded before the post is created.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return s.createPostMultipart(c, userID)
	}

	var body struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		URL           string `json:"url"`
		EnableComment *bool  `json:"enable_comment"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	enableComment := true
	if body.EnableComment != nil {
		enableComment = *body.EnableComment
	}

	post, err := s.postService.CreatePost(c.Context(), userID, body.Title, body.Description, body.URL, enableComment)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) createPostMultipart(c *fiber.Ctx, userID uint) error {
	title := c.FormValue("title")
	description := c.FormValue("description")
	enableComment := true
	if v := c.FormValue("enable_comment"); v == "false" || v == "0" {
		enableComment = false
	}

	file, err := c.FormFile("image")
	if err != nil {
		post, err := s.postService.CreatePost(c.Context(), userID, title, description, "", enableComment)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	}

	f, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read the attached image"))
	}
	defer func() { _ = f.Close() }()

	post, err := s.postService.CreatePostWithImage(c.Context(), userID, title, description, enableComment, f)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	posts, err := s.postService.GetPosts(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), userID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddFavorite handles POST /api/posts/:id/favorite
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.AddFavorite(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// RemoveFavorite handles DELETE /api/posts/:id/favorite
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.RemoveFavorite(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetPostFavoriteUsers handles GET /api/posts/:id/favorite
func (s *Server) GetPostFavoriteUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.postService.GetFavoriteUsers(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetFavoritePosts handles GET /api/posts/favorites
func (s *Server) GetFavoritePosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	posts, err := s.postService.GetFavoritePosts(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}
