package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/service"
)

// AnalyticsHandler exposes response-time and SLA dashboards.
type AnalyticsHandler struct {
	responses *service.ResponseTimeAnalyzer
	sla       *service.SLATracker
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(responses *service.ResponseTimeAnalyzer, sla *service.SLATracker) *AnalyticsHandler {
	return &AnalyticsHandler{responses: responses, sla: sla}
}

// UserStats handles GET /analytics/users/:id.
func (h *AnalyticsHandler) UserStats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	window, err := parseWindow(c)
	if err != nil {
		return err
	}
	stats, err := h.responses.ComputeUserStats(c.UserContext(), actor, c.Params("id"), window, parseDirection(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// DepartmentStats handles GET /analytics/departments/:code.
func (h *AnalyticsHandler) DepartmentStats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	window, err := parseWindow(c)
	if err != nil {
		return err
	}
	dept := domain.DepartmentCode(c.Params("code"))
	stats, err := h.responses.ComputeDepartmentStats(c.UserContext(), actor, dept, window, parseDirection(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// TicketStats handles GET /analytics/tickets/:id.
func (h *AnalyticsHandler) TicketStats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	window, err := parseWindow(c)
	if err != nil {
		return err
	}
	stats, err := h.responses.ComputeTicketStats(c.UserContext(), actor, c.Params("id"), window, parseDirection(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// SLASummary handles GET /analytics/sla.
func (h *AnalyticsHandler) SLASummary(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	window, err := parseWindow(c)
	if err != nil {
		return err
	}
	summary, err := h.sla.Summary(c.UserContext(), actor, window, departmentQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// SLAAtRisk handles GET /analytics/sla/at-risk.
func (h *AnalyticsHandler) SLAAtRisk(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.sla.AtRisk(c.UserContext(), actor, departmentQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tickets})
}

func departmentQuery(c *fiber.Ctx) *domain.DepartmentCode {
	raw := c.Query("department_code")
	if raw == "" {
		return nil
	}
	code := domain.DepartmentCode(raw)
	return &code
}
