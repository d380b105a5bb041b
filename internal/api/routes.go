package api

import (
	"time"

	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewServer builds the fiber app with global middleware and all routes
func NewServer(cfg *config.Config, h *Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "autopress",
		ReadTimeout:           cfg.HTTPTimeout,
		IdleTimeout:           120 * time.Second,
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	SetupRoutes(app, h, cfg)
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg *config.Config) {
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	feeds := api.Group("/feeds")
	{
		feeds.Get("", h.ListFeeds)
		feeds.Get("/articles", h.FetchFeeds)
	}

	api.Post("/extract", middleware.ValidateBody[ExtractRequest](), h.Extract)

	// Trigger endpoint for external schedulers, addressed by task key only
	api.Get("/jobs/:taskKey", h.TriggerJob)

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/jobs", middleware.ValidateBody[CreateJobRequest](), h.CreateJob)
		admin.Get("/jobs", h.ListJobs)
		admin.Get("/articles", h.ListArticles)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Endpoint not found",
		})
	})
}
