package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/urbanlens/urbanlens/internal/pkg/metrics"
)

// SetupRoutes registers all REST, WebSocket, and dashboard routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 60 requests per minute per IP. Pipeline runs hit
	// several upstream services, so the budget is deliberately lower
	// than a read-only API would use.
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Dashboard
	app.Get("/", DashboardHandler())

	v1 := app.Group("/v1")

	// Pipeline runs synchronously: geocode plus up to four raster
	// fetches, so the write path gets a much longer budget than reads.
	v1.Post("/jobs", timeout.NewWithContext(CreateJobHandler(deps), 5*time.Minute))
	v1.Post("/parse", timeout.NewWithContext(ParseHandler(deps), 30*time.Second))
	v1.Post("/chat", timeout.NewWithContext(ChatHandler(deps), 30*time.Second))

	v1.Get("/jobs", timeout.NewWithContext(ListJobsHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id", timeout.NewWithContext(GetJobHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id/manifest", timeout.NewWithContext(JobManifestHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id/artifacts", timeout.NewWithContext(ListArtifactsHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id/artifacts/:name", timeout.NewWithContext(JobArtifactHandler(deps), 30*time.Second))

	// WebSocket job event feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	if deps.NATS != nil {
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
