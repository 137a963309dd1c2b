// Package server contains the HTTP and WebSocket surface of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "townsquare/docs" // swagger docs
	"townsquare/internal/cache"
	"townsquare/internal/config"
	"townsquare/internal/database"
	"townsquare/internal/featureflags"
	"townsquare/internal/middleware"
	"townsquare/internal/models"
	"townsquare/internal/notifications"
	"townsquare/internal/observability"
	"townsquare/internal/repository"
	"townsquare/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *service.TokenService
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Set
	imageStore     *service.ImageStore
	authService    *service.AuthService
	postService    *service.PostService
	userService    *service.UserService
}

// NewServer connects to the database and Redis and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; without it caching is bypassed and feed events stay local.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		tokens:         service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.Parse(cfg.FeatureFlags),
		imageStore:     service.NewImageStore(cfg),
	}
	s.authService = service.NewAuthService(userRepo, s.tokens)
	s.postService = service.NewPostService(postRepo, s.imageStore,
		notifications.NewFeedPublisher(s.notifier, s.hub), s.featureFlags)
	s.userService = service.NewUserService(userRepo, postRepo)

	return s, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if s.config != nil && s.config.ImageMaxUploadSizeMB > 0 {
		// Leave room for the multipart envelope and text fields.
		bodyLimit = (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Townsquare API",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	// Tracing before the context middleware so trace ids reach the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded images are embedded cross-origin by the SPA.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	origins := ""
	if s.config != nil {
		origins = s.config.AllowedOrigins
	}
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	app.Get(middleware.MetricsPath, middleware.MetricsHandler())

	if s.imageStore != nil {
		app.Static(strings.TrimSuffix(service.UploadURLPrefix, "/"), s.imageStore.Dir(), fiber.Static{
			MaxAge: 86400,
		})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Townsquare Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)

	posts := api.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Patch("/:id", s.AuthRequired(), s.EditPost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	api.Get("/feature-flags", s.AuthRequired(), s.GetFeatureFlags)

	users := api.Group("/users")
	users.Get("/:id", s.GetProfile)
	users.Patch("/:id", s.AuthRequired(), s.UpdateProfile)

	ws := api.Group("/ws", requireUpgrade)
	ws.Get("/feed", s.FeedStreamHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only a configured but failing Redis makes the instance unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start wires the feed hub to Redis and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Warn("feed hub wiring failed, events stay local", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down feed hub", slog.String("error", err.Error()))
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// errorHandler renders errors that escaped a handler, including panics
// converted by the recover middleware.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeValidation
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fe.Code >= fiber.StatusInternalServerError:
			code = models.CodeInternal
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}
