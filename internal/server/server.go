// Package server contains the HTTP handlers for the marketplace ledger API.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "promptmart/docs" // swagger docs
	"promptmart/internal/bootstrap"
	"promptmart/internal/cache"
	"promptmart/internal/config"
	"promptmart/internal/middleware"
	"promptmart/internal/models"
	"promptmart/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	dirty *cache.DirtySet

	userService         *service.UserService
	relationshipService *service.RelationshipService
	commentService      *service.CommentService
	entitlementService  *service.EntitlementService
	listingService      *service.ListingService
	moderationService   *service.ModerationService
	reconcileService    *service.ReconcileService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Redis is optional; a nil client disables cache, dirty tracking and rate limiting.
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps wires repositories and services around an existing
// database and (possibly nil) Redis client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("promptmart-api"),
	}

	svc, err := service.NewServices(db, s.cmdable(), service.Options{
		ListingCacheTTL:   cfg.ListingCacheTTL(),
		CascadeMaxElapsed: cfg.CascadeMaxElapsed(),
		SnowflakeNode:     cfg.SnowflakeNode,
	})
	if err != nil {
		return nil, err
	}

	s.dirty = svc.Dirty
	s.userService = svc.Users
	s.relationshipService = svc.Relationships
	s.commentService = svc.Comments
	s.entitlementService = svc.Entitlements
	s.listingService = svc.Listings
	s.moderationService = svc.Moderation
	s.reconcileService = svc.Reconcile

	return s, nil
}

// cmdable hides a nil *redis.Client behind a nil interface.
func (s *Server) cmdable() redis.Cmdable {
	if s.redis == nil {
		return nil
	}
	return s.redis
}

// SetupMiddleware configures all middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(middleware.TracingMiddleware())

	globalLimit := s.config.RateLimitGlobalPerMinute
	if globalLimit <= 0 {
		globalLimit = 100
	}
	app.Use(limiter.New(limiter.Config{
		Max:        globalLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Promptmart Ledger Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	writeLimit := s.config.RateLimitWritesPerMinute
	if writeLimit <= 0 {
		writeLimit = 60
	}
	limitWrites := func(name string) fiber.Handler {
		return middleware.RateLimit(s.cmdable(), writeLimit, time.Minute, name)
	}

	// Public reads. A valid bearer token upgrades the caller from anonymous.
	public := api.Group("", middleware.OptionalAuth)

	listings := public.Group("/listings")
	listings.Get("/", s.GetListings)
	listings.Post("/statuses", s.GetEdgeStatuses)
	listings.Get("/:id/comments", s.GetComments)
	listings.Get("/:id/likes", s.GetListingLikes)
	listings.Get("/:id/access", s.CheckAccess)
	listings.Get("/:id", s.GetListing)

	users := public.Group("/users")
	users.Get("/:id/listings", s.GetUserListings)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/follow-status", s.GetFollowStatus)
	users.Get("/:id", s.GetUserProfile)

	protected := api.Group("", middleware.AuthRequired)

	myListings := protected.Group("/listings")
	myListings.Post("/", limitWrites("create_listing"), s.CreateListing)
	myListings.Post("/:id/like", limitWrites("toggle_edge"), s.ToggleLike)
	myListings.Post("/:id/favorite", limitWrites("toggle_edge"), s.ToggleFavorite)
	myListings.Post("/:id/comments", limitWrites("create_comment"), s.CreateComment)
	myListings.Post("/:id/purchase", limitWrites("purchase"), s.PurchaseListing)
	myListings.Post("/:id/draft", s.MoveListingToDraft)
	myListings.Post("/:id/submit", s.SubmitListing)
	myListings.Put("/:id", s.UpdateListing)
	myListings.Delete("/:id", s.DeleteListing)

	protected.Post("/users/:id/follow", limitWrites("toggle_edge"), s.ToggleFollow)
	protected.Delete("/comments/:commentId", s.DeleteComment)
	protected.Post("/purchases/:id/download", s.DownloadPurchase)

	me := protected.Group("/me")
	me.Get("/", s.GetMyProfile)
	me.Get("/likes", s.GetMyLikes)
	me.Get("/favorites", s.GetMyFavorites)
	me.Get("/purchases", s.GetMyPurchases)
	me.Get("/sales", s.GetMySales)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/listings/pending", s.GetPendingListings)
	admin.Post("/listings/:id/approve", s.ApproveListing)
	admin.Post("/listings/:id/reject", s.RejectListing)
	admin.Post("/reconcile", s.Reconcile)
	admin.Get("/users/admins", s.GetAdmins)
	admin.Put("/users/:username/role", s.SetUserRole)
}

// NewApp builds a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Promptmart Ledger API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck answers liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck answers readiness checks. Redis is optional, so its
// absence degrades the report without failing it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
