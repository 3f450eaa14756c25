package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/logistics-ticketing/internal/api/http/handlers"
	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
	Catalog        *auth.RoleCatalog
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.JSON(cfg.Metrics.Snapshot())
		})
	}

	app.Post("/auth/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/auth/me", cfg.Users.Me)
	protected.Post("/auth/password/change", cfg.Users.ChangePassword)
	protected.Get("/roles", cfg.Users.ListRoles)
	protected.Get("/departments", cfg.Users.ListDepartments)

	tickets := protected.Group("/tickets")
	tickets.Post("/", auth.RequireCapability(cfg.Catalog, auth.CapTicketCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequireCapability(cfg.Catalog, auth.CapTicketUpdate), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireCapability(cfg.Catalog, auth.CapTicketDelete), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/transition", auth.RequireCapability(cfg.Catalog, auth.CapTicketUpdate), cfg.Tickets.Transition)
	tickets.Post("/:id/assign", auth.RequireCapability(cfg.Catalog, auth.CapTicketAssign), cfg.Tickets.Assign)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/quotes", auth.RequireCapability(cfg.Catalog, auth.CapQuoteCreate), cfg.Tickets.AddQuote)
	tickets.Post("/:id/attachments", auth.RequireCapability(cfg.Catalog, auth.CapAttachmentUpload), cfg.Tickets.AddAttachment)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/sla", cfg.Tickets.SLAStatus)

	protected.Delete("/attachments/:id", auth.RequireCapability(cfg.Catalog, auth.CapAttachmentDelete), cfg.Tickets.DeleteAttachment)

	analytics := protected.Group("/analytics")
	analytics.Get("/users/:id", cfg.Analytics.UserStats)
	analytics.Get("/departments/:code", cfg.Analytics.DepartmentStats)
	analytics.Get("/tickets/:id", cfg.Analytics.TicketStats)
	analytics.Get("/sla", cfg.Analytics.SLASummary)
	analytics.Get("/sla/at-risk", cfg.Analytics.SLAAtRisk)

	users := protected.Group("/users")
	users.Post("/", auth.RequireCapability(cfg.Catalog, auth.CapUsersManage), cfg.Users.CreateUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id/active", auth.RequireCapability(cfg.Catalog, auth.CapUsersManage), cfg.Users.SetActive)
	users.Put("/:id/role", auth.RequireCapability(cfg.Catalog, auth.CapUsersManage), cfg.Users.ChangeRole)
}
