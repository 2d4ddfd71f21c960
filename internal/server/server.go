// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"contentflow/internal/bootstrap"
	"contentflow/internal/cache"
	"contentflow/internal/calendar"
	"contentflow/internal/config"
	"contentflow/internal/featureflags"
	"contentflow/internal/identity"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"contentflow/internal/repository"
	"contentflow/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	startedAt       time.Time
	caches          *cache.Caches
	identity        identity.Provider
	gateway         calendar.Gateway
	userRepo        repository.UserRepository
	contentRepo     repository.ContentRepository
	featureFlags    *featureflags.Manager
	contentService  *service.ContentService
	userService     *service.UserService
	calendarService *service.CalendarService
}

// Option overrides a collaborator NewServerWithDeps would otherwise build
// from configuration.
type Option func(*Server)

// WithIdentityProvider replaces the identity provider used for provisioning.
func WithIdentityProvider(p identity.Provider) Option {
	return func(s *Server) { s.identity = p }
}

// WithCalendarGateway replaces the Google Calendar gateway.
func WithCalendarGateway(g calendar.Gateway) Option {
	return func(s *Server) { s.gateway = g }
}

// WithCaches replaces the in-process caches.
func WithCaches(c *cache.Caches) Option {
	return func(s *Server) { s.caches = c }
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("contentflow-api"),
		startedAt:      time.Now(),
		userRepo:       repository.NewUserRepository(db),
		contentRepo:    repository.NewContentRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	for _, opt := range opts {
		opt(server)
	}

	if server.caches == nil {
		server.caches = cache.NewCaches(cfg)
	}
	if server.identity == nil {
		server.identity = newIdentityProvider(cfg)
	}
	if server.gateway == nil {
		server.gateway = calendar.NewGoogleGateway(calendar.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
		})
	}

	retry := service.RetryPolicy{Attempts: cfg.DBRetryAttempts, Delay: cfg.DBRetryDelay}
	server.contentService = service.NewContentService(server.contentRepo, server.caches)
	server.userService = service.NewUserService(server.userRepo, server.caches, server.identity, retry)
	server.calendarService = service.NewCalendarService(
		server.gateway,
		calendar.NewStateSigner(cfg.StateSecret(), redisClient),
		server.userRepo,
		server.userService,
		server.contentService,
	)

	return server, nil
}

func newIdentityProvider(cfg *config.Config) identity.Provider {
	if cfg.IdentitySecretKey == "" {
		middleware.Logger.Warn("IDENTITY_SECRET_KEY not set; provisioning users with placeholder profiles")
		return identity.StaticProvider{}
	}
	return identity.NewClerkProvider(cfg.IdentityAPIURL, cfg.IdentitySecretKey, &http.Client{Timeout: identity.DefaultTimeout})
}

// Caches exposes the in-process caches, e.g. for periodic stats reporting.
func (s *Server) Caches() *cache.Caches {
	return s.caches
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Sentry sits in front of recover so panics are reported before recovery.
	if s.config.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on 429 responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:5000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
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
	api.Get("/health", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "ContentFlow Metrics Dashboard",
	}))

	// Google redirects the browser here without a session, so the callback
	// must be registered ahead of the protected group.
	api.Get("/google/callback", s.featureFlags.Require(featureflags.GoogleCalendar), s.GoogleCallback)

	protected := api.Group("", middleware.AuthRequired(s.config, s.redis))

	protected.Get("/auth/user", s.GetCurrentUser)
	protected.Post("/logout", s.Logout)
	protected.Get("/cache/stats", s.GetCacheStats)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	content := protected.Group("/content")
	content.Get("/", s.ListContent)
	content.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_content"), s.CreateContent)
	content.Get("/:id", s.GetContent)
	content.Patch("/:id", s.UpdateContent)
	content.Delete("/:id", s.DeleteContent)

	google := protected.Group("/google", s.featureFlags.Require(featureflags.GoogleCalendar))
	google.Get("/auth", s.GoogleAuth)
	google.Post("/sync/:id", middleware.RateLimit(s.redis, 20, time.Minute, "calendar_sync"), s.GoogleSync)
	google.Delete("/disconnect", s.GoogleDisconnect)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "ContentFlow API",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{
					Error:   fe.Message,
					Message: fe.Message,
				})
			}
			s.captureError(c, err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the HTTP server
func (s *Server) Start() error {
	app := s.App()
	addr := ":" + s.config.Port
	middleware.Logger.Info("starting server", "addr", addr, "env", s.config.Env)
	return app.Listen(addr)
}

// Shutdown gracefully shuts down the server and closes the DB and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	middleware.Logger.Info("shutting down server")

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down fiber app", "error", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				middleware.Logger.Error("error closing database", "error", err)
			}
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	return nil
}
