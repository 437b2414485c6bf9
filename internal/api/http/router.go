package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Clients        *handlers.ClientsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authn := cfg.AuthMiddleware.Handle
	staffOnly := auth.RequireStaff()
	adminOnly := auth.RequireRoles(domain.RoleAdmin)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Get("/auth/me", authn, cfg.Auth.Me)

	tickets := app.Group("/tickets", authn)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/board", cfg.Tickets.Board)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/assignees", staffOnly, cfg.Tickets.Assignees)
	tickets.Patch("/:id/status", staffOnly, cfg.Tickets.MoveStatus)
	tickets.Post("/:id/updates", cfg.Tickets.AddUpdate)

	clients := app.Group("/clients", authn)
	clients.Get("/", cfg.Clients.List)
	clients.Post("/", staffOnly, cfg.Clients.Create)
	clients.Get("/:id", cfg.Clients.Get)
	clients.Patch("/:id", staffOnly, cfg.Clients.Update)
	clients.Delete("/:id", adminOnly, cfg.Clients.Delete)
	clients.Get("/:id/contacts", cfg.Clients.ListContacts)
	clients.Post("/:id/contacts", staffOnly, cfg.Clients.CreateContact)

	contacts := app.Group("/contacts", authn, staffOnly)
	contacts.Patch("/:id", cfg.Users.UpdateContact)
	contacts.Delete("/:id", cfg.Users.DeleteContact)

	staff := app.Group("/staff", authn, staffOnly)
	staff.Get("/", cfg.Users.ListStaff)
	staff.Post("/", adminOnly, cfg.Users.CreateStaff)
	staff.Patch("/:id", adminOnly, cfg.Users.UpdateStaff)
	staff.Delete("/:id", adminOnly, cfg.Users.DeleteStaff)
}
