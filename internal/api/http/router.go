package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-desk/internal/api/http/handlers"
	"github.com/spec-kit/issue-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Users    *handlers.UsersHandler
	Issues   *handlers.IssuesHandler
	Settings *handlers.SettingsHandler
	Cron     *handlers.CronHandler
	Session  *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	issues := app.Group("/issues")
	issues.Get("", cfg.Session.Optional, cfg.Issues.List)
	issues.Get("/:id", cfg.Issues.Get)
	issues.Post("", cfg.Session.Handle, cfg.Issues.Create)
	issues.Patch("/:id/status", cfg.Session.Handle, cfg.Issues.UpdateStatus)
	issues.Delete("/:id", cfg.Session.Handle, auth.RequireAdmin(), cfg.Issues.Delete)
	issues.Post("/:id/replies", cfg.Session.Handle, cfg.Issues.AddReply)

	users := app.Group("/users", cfg.Session.Handle)
	users.Get("/:id", cfg.Users.GetProfile)
	users.Put("/:id", cfg.Users.UpdateProfile)
	users.Put("/:id/password", cfg.Users.ChangePassword)

	admin := app.Group("/admin", cfg.Session.Handle, auth.RequireAdmin())
	admin.Get("/settings", cfg.Settings.GetSettings)
	admin.Put("/settings", cfg.Settings.UpdateSettings)
	admin.Get("/stats", cfg.Settings.GetStats)

	app.Get("/cron/cleanup-issues", cfg.Cron.CleanupIssues)
}
