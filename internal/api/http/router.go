package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/booking-system/user-service/internal/api/http/handlers"
	"github.com/booking-system/user-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	users := app.Group("/api/v1/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)

	protected := users.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/me", cfg.Users.Me)

	admin := auth.RequireAdmin()
	protected.Get("/", admin, cfg.Users.List)
	protected.Get("/search", admin, cfg.Users.Search)
	protected.Get("/stats", admin, cfg.Users.Stats)
	protected.Get("/email-exists", admin, cfg.Users.EmailExists)

	self := auth.RequireSelfOrAdmin("id")
	protected.Get("/:id", self, cfg.Users.Get)
	protected.Put("/:id", self, cfg.Users.Update)
	protected.Post("/:id/password", self, cfg.Users.ChangePassword)

	protected.Delete("/:id", admin, cfg.Users.Delete)
	protected.Post("/:id/deactivate", admin, cfg.Users.Deactivate)
	protected.Post("/:id/reactivate", admin, cfg.Users.Reactivate)
	protected.Post("/:id/suspend", admin, cfg.Users.Suspend)
	protected.Post("/:id/password/reset", admin, cfg.Users.ResetPassword)
}
