// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"heartlink/internal/cache"
	"heartlink/internal/config"
	"heartlink/internal/database"
	"heartlink/internal/geo"
	"heartlink/internal/identity"
	"heartlink/internal/middleware"
	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
	"heartlink/internal/service"
	"heartlink/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	verifier       identity.Verifier
	userRepo       repository.UserRepository
	requestRepo    repository.RequestRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	chatRepo       repository.ChatRepository
	ratingRepo     repository.RatingRepository
	alertRepo      repository.AlertRepository
	dispatcher     *notifications.Dispatcher
	userService    *service.UserService
	requestService *service.RequestService
	postService    *service.PostService
	commentService *service.CommentService
	chatService    *service.ChatService
	alertService   *service.AlertService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	ctx := context.Background()
	verifier, err := identity.NewFirebaseVerifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity verifier init failed: %w", err)
	}
	sender, err := notifications.NewFCMSender(ctx)
	if err != nil {
		return nil, fmt.Errorf("push sender init failed: %w", err)
	}
	uploader, err := storage.NewGCSUploader(ctx, cfg.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	locator := geo.NewIPStackLocator(cfg.GeoAPIURL, cfg.GeoAPIKey)

	return NewServerWithDeps(cfg, db, redisClient, verifier, sender, uploader, locator)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this to swap in an in-memory database and fake external services.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	verifier identity.Verifier,
	sender notifications.Sender,
	uploader storage.Uploader,
	locator geo.Locator,
) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	chatRepo := repository.NewChatRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	dispatcher := notifications.NewDispatcher(alertRepo, sender, slog.Default())

	server := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		verifier:    verifier,
		userRepo:    userRepo,
		requestRepo: requestRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		chatRepo:    chatRepo,
		ratingRepo:  ratingRepo,
		alertRepo:   alertRepo,
		dispatcher:  dispatcher,
	}
	server.userService = service.NewUserService(userRepo, requestRepo, ratingRepo, alertRepo, uploader, locator, dispatcher)
	server.requestService = service.NewRequestService(requestRepo, userRepo, chatRepo, dispatcher)
	server.postService = service.NewPostService(postRepo, userRepo, uploader, dispatcher)
	server.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, dispatcher)
	server.chatService = service.NewChatService(chatRepo, userRepo, dispatcher)
	server.alertService = service.NewAlertService(alertRepo, userRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid)
	app.Use(middleware.RequestLogger())

	// CORS before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, uid, id_token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Session bootstrap: identity token verification happens here. Routes
	// behind AuthRequired trust the uid header, except the flows that act
	// in a user's name toward others, which re-verify the token.
	api.Post("/users/session", middleware.RateLimit(
		s.redis, "session", 10, 5*time.Minute), s.Login)

	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/", s.BrowseUsers)
	users.Get("/rated-me-high", s.GetRatedMeHigh)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Put("/me/push-token", s.UpdatePushToken)
	users.Put("/me/location", s.UpdateLocation)
	users.Post("/me/images/:index", s.UploadImage)
	users.Delete("/me/images/:index", s.DeleteImage)
	users.Post("/me/submit", s.SubmitForReview)
	users.Get("/me/ratings", s.GetMyRatings)
	users.Get("/nearby/real-time", s.GetNearbyRealTime)
	users.Get("/nearby/close", s.GetNearbyClose)
	users.Post("/:id/poke", middleware.RateLimit(
		s.redis, "poke", 5, 5*time.Minute), s.PokeUser)
	users.Post("/:id/rating", s.RateUser)
	users.Post("/:id/approval", s.AdminRequired(), s.ApproveUser)
	users.Post("/:id/rejection", s.AdminRequired(), s.RejectUser)
	users.Get("/:id", s.GetUserProfile)

	// Relationship request routes
	requests := protected.Group("/requests")
	requests.Post("/:userId", middleware.RateLimit(
		s.redis, "request", 5, 5*time.Minute), s.SendRequest)
	requests.Get("/received", s.GetReceivedRequests)
	requests.Get("/sent", s.GetSentRequests)
	requests.Put("/:requestId/response", s.RespondToRequest)

	// Post routes
	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(
		s.redis, "create_post", 5, 5*time.Minute), s.CreatePost)
	posts.Get("/favorites", s.GetFavoritePosts)
	posts.Get("/:id/favorite", s.GetPostFavoriteUsers)
	posts.Post("/:id/favorite", s.AddFavorite)
	posts.Delete("/:id/favorite", s.RemoveFavorite)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, "create_comment", 10, time.Minute), s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	// Comment routes
	comments := protected.Group("/comments")
	comments.Post("/:id/thumb-up", s.ThumbUpComment)
	comments.Post("/:id/thumb-down", s.ThumbDownComment)
	comments.Delete("/:id/vote", s.RemoveCommentVote)
	comments.Delete("/:id", s.DeleteComment)

	// Chat routes
	chatRooms := protected.Group("/chat-rooms")
	chatRooms.Get("/", s.GetChatRooms)
	chatRooms.Get("/:id/messages", s.GetMessages)
	chatRooms.Post("/:id/messages", middleware.RateLimit(
		s.redis, "send_chat", 15, time.Minute), s.SendMessage)
	chatRooms.Post("/:id/open", s.OpenChatRoom)
	chatRooms.Get("/:id", s.GetChatRoom)
	chatRooms.Delete("/:id", s.DeleteChatRoom)

	// Alert routes
	alerts := protected.Group("/alerts")
	alerts.Get("/", s.GetAlerts)
	alerts.Put("/read", s.MarkAlertsRead)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns middleware that resolves the caller from the uid
// header established at session bootstrap. The resolved user's id is stored
// in locals for handlers.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := c.Get("uid")
		if uid == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.userRepo.GetByUID(c.Context(), uid)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unknown user"))
		}

		c.Locals("userID", user.ID)
		c.Locals("userUID", user.UID)
		return c.Next()
	}
}

// requireMatchingIdentity re-verifies the identity token on sensitive
// mutations and confirms it belongs to the acting user. The uid header
// alone is spoofable; these flows act in another user's name if it is.
func (s *Server) requireMatchingIdentity(c *fiber.Ctx) error {
	idToken := c.Get("id_token")
	if idToken == "" {
		return models.NewForbiddenError("Identity token required")
	}
	uid, err := s.verifier.Verify(c.Context(), idToken)
	if err != nil {
		return models.NewForbiddenError("Invalid identity token")
	}
	if actingUID, ok := c.Locals("userUID").(string); !ok || uid != actingUID {
		return models.NewForbiddenError("Identity token does not match the acting user")
	}
	return nil
}

// AdminRequired returns middleware that validates the moderation token.
// Review endpoints are called by the back-office, not by end users.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Get("X-Admin-Token")
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.AdminJWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Invalid admin token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Invalid admin token claims"))
		}
		if role, roleOk := claims["role"].(string); !roleOk || role != "admin" {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Heartlink API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
