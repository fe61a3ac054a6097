package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/remediation-review/internal/api/http/handlers"
	"github.com/spec-kit/remediation-review/internal/auth"
	"github.com/spec-kit/remediation-review/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/counters", cfg.Health.Counters)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Post("/reviewers", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Auth.CreateReviewer)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)

	tickets.Post("", auth.RequireRole(domain.RoleWorker), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/pending", cfg.Tickets.GetPending)
	tickets.Get("/approved", auth.RequireRole(domain.RoleWorker), cfg.Tickets.GetApproved)
	tickets.Get("/stats", cfg.Tickets.GetStats)
	tickets.Get("/by-alert/:alertID", cfg.Tickets.GetTicketByAlert)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	tickets.Post("/:id/review", auth.RequireRole(domain.RoleReviewer), cfg.Tickets.MarkInReview)
	tickets.Post("/:id/approve", auth.RequireRole(domain.RoleReviewer), cfg.Tickets.ApproveTicket)
	tickets.Post("/:id/reject", auth.RequireRole(domain.RoleReviewer), cfg.Tickets.RejectTicket)
	tickets.Post("/:id/apply", auth.RequireRole(domain.RoleWorker), cfg.Tickets.MarkApplied)
	tickets.Post("/:id/rollback", auth.RequireRole(domain.RoleReviewer), cfg.Tickets.RollbackTicket)
}
