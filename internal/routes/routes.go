package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jokeworks/joker-api/internal/handlers"
	"github.com/jokeworks/joker-api/internal/middleware"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

// Setup mounts the fixed administrative surface and one route per
// catalog-configured joke endpoint. The joke routes all funnel into the
// pipeline handler; authorization happens inside the pipeline's gate, not
// here, so denials are audited like any other terminal state.
func Setup(
	app *fiber.App,
	st *store.Store,
	endpoints []models.APIEndpoint,
	jokeHandler *handlers.JokeHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
) {
	// 60 req/min per IP across the whole surface.
	app.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	app.Get("/health", healthHandler.Check)

	// User management — SYSTEM_ADMIN only, role set re-read per request.
	users := app.Group("/users", middleware.RoleRequired(st, models.RoleSystemAdmin))
	users.Post("/", userHandler.Create)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)

	// Joke database management and operational views — either admin tier,
	// one role check per request.
	admin := app.Group("/admin",
		middleware.RoleRequired(st, models.RoleSystemAdmin, models.RoleDatabaseManager))
	admin.Get("/jokes/status", adminHandler.JokeStatus)
	admin.Post("/jokes/settings", adminHandler.UpdateSourceSettings)
	admin.Get("/sources/health", adminHandler.SourceHealth)
	admin.Get("/requests", adminHandler.ListRequests)

	// Catalog-driven joke endpoints.
	for _, ep := range endpoints {
		app.Add(string(ep.Method), ep.Path, jokeHandler.Serve)
	}
}
