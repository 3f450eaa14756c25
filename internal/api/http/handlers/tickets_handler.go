package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/api/dto"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	sla     *service.SLATracker
	logger  *zap.Logger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, sla *service.SLATracker, logger *zap.Logger) *TicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketsHandler{tickets: tickets, sla: sla, logger: logger}
}

// CreateTicket POST /tickets. A code race reported as CONFLICT is retried once.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	typeData, err := dto.DecodeTypeData(req.Type, req.TypeData)
	if err != nil {
		return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "type_data", Message: err.Error()})
	}
	input := service.TicketCreateInput{
		Type:           req.Type,
		DepartmentCode: req.DepartmentCode,
		Priority:       req.Priority,
		Title:          req.Title,
		Description:    req.Description,
		TypeData:       typeData,
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, input)
	if apperrors.HasCode(err, apperrors.CodeConflict) {
		h.logger.Info("retrying ticket creation after code conflict", zap.String("actor_id", actor.ID))
		ticket, err = h.tickets.CreateTicket(c.UserContext(), actor, input)
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	details, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": details})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		Priority:    req.Priority,
		Title:       req.Title,
		Description: req.Description,
	}
	if len(req.TypeData) > 0 {
		details, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		input.TypeData, err = dto.DecodeTypeData(details.Ticket.Type, req.TypeData)
		if err != nil {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "type_data", Message: err.Error()})
		}
	}
	ticket, err := h.tickets.UpdateDetails(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Transition(c.UserContext(), actor, c.Params("id"), service.TransitionInput{
		Target:      req.Status,
		Outcome:     req.CloseOutcome,
		ProjectDate: req.ProjectDate,
		LostReason:  req.CloseReason,
		Note:        req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	event, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": event})
}

// AddQuote POST /tickets/:id/quotes.
func (h *TicketsHandler) AddQuote(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.QuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.tickets.AddQuote(c.UserContext(), actor, c.Params("id"), service.QuoteInput{
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		ValidUntil:  req.ValidUntil,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": result})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	attachment, err := h.tickets.AddAttachment(c.UserContext(), actor, c.Params("id"), service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachment})
}

// DeleteAttachment DELETE /attachments/:id.
func (h *TicketsHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteAttachment(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// SLAStatus GET /tickets/:id/sla.
func (h *TicketsHandler) SLAStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	status, err := h.sla.TicketStatus(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, raw := range splitQuery(c.Query("status")) {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return filter, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "status", Message: "unknown status " + raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitQuery(c.Query("type")) {
		filter.Types = append(filter.Types, domain.TicketType(raw))
	}
	if dept := c.Query("department_code"); dept != "" {
		code := domain.DepartmentCode(dept)
		filter.DepartmentCode = &code
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	from, err := parseTime(c.Query("created_from"))
	if err != nil {
		return filter, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "created_from", Message: "must be RFC3339"})
	}
	to, err := parseTime(c.Query("created_to"))
	if err != nil {
		return filter, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "created_to", Message: "must be RFC3339"})
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}
