package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

const (
	maxTitleLength = 200
	maxListLimit   = 100
)

// TicketService coordinates ticket workflows. Every mutation runs in one
// transaction together with its SLA and audit writes; events are published
// only after commit.
type TicketService struct {
	store       repository.Store
	permissions *auth.PermissionEngine
	codes       *TicketCodeGenerator
	sla         *SLATracker
	responses   *ResponseTimeAnalyzer
	audit       *AuditLogger
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         NowFunc
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Permissions *auth.PermissionEngine
	Codes       *TicketCodeGenerator
	SLA         *SLATracker
	Responses   *ResponseTimeAnalyzer
	Audit       *AuditLogger
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         NowFunc
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type           domain.TicketType
	DepartmentCode domain.DepartmentCode
	Priority       domain.TicketPriority
	Title          string
	Description    string
	TypeData       domain.TypeData
}

// TicketListFilter describes listing filters. Results are further limited to
// the tickets the actor may view.
type TicketListFilter struct {
	DepartmentCode *domain.DepartmentCode
	AssignedTo     *string
	Statuses       []domain.TicketStatus
	Types          []domain.TicketType
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// TransitionInput carries the target status and close fields.
type TransitionInput struct {
	Target      string
	Outcome     *domain.CloseOutcome
	ProjectDate *time.Time
	LostReason  *domain.LostReason
	Note        string
}

// TicketUpdateInput carries editable fields; nil leaves a field unchanged.
type TicketUpdateInput struct {
	Priority    *domain.TicketPriority
	Title       *string
	Description *string
	TypeData    domain.TypeData
}

// QuoteInput describes a price quote on an RFQ ticket.
type QuoteInput struct {
	AmountMinor int64
	Currency    string
	ValidUntil  *time.Time
	Notes       string
}

// AttachmentInput defines attachment metadata. Storage happens elsewhere.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// TicketDetails is a ticket with its timeline.
type TicketDetails struct {
	Ticket      *domain.Ticket       `json:"ticket"`
	Events      []domain.TicketEvent `json:"events"`
	Attachments []domain.Attachment  `json:"attachments"`
	Quotes      []domain.Quote       `json:"quotes"`
}

// QuoteResult is a stored quote and the timeline event announcing it.
type QuoteResult struct {
	Quote *domain.Quote       `json:"quote"`
	Event *domain.TicketEvent `json:"event"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:       deps.Store,
		permissions: deps.Permissions,
		codes:       deps.Codes,
		sla:         deps.SLA,
		responses:   deps.Responses,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger),
		now:         nowOrDefault(deps.Now),
	}
}

// CreateTicket validates input, reserves a code, and stores the ticket with
// its SLA record. A CONFLICT result means the code race was lost and the
// whole call may be retried once.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !s.permissions.CanPerform(actor, auth.OpTicketCreate, auth.Resource{}) {
		return nil, apperrors.NewForbidden("not allowed to create tickets")
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		dept, err := repos.Departments.GetByCode(ctx, input.DepartmentCode)
		if err != nil {
			return storeError(err, "department", map[string]any{"code": input.DepartmentCode})
		}
		now := s.now()
		code, err := s.codes.Generate(ctx, repos.Sequences, input.Type, dept.Code, now)
		if err != nil {
			return err
		}
		ticket = &domain.Ticket{
			ID:             uuid.NewString(),
			Code:           code,
			Type:           input.Type,
			Status:         domain.TicketStatusOpen,
			Priority:       input.Priority,
			DepartmentCode: dept.Code,
			CreatedBy:      actor.ID,
			Title:          input.Title,
			Description:    input.Description,
			TypeData:       input.TypeData,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"code": code})
		}
		if _, err := s.sla.initialize(ctx, repos, actor.ID, ticket, dept); err != nil {
			return err
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionCreate, nil, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Code:           ticket.Code,
			Type:           ticket.Type,
			DepartmentCode: ticket.DepartmentCode,
			Priority:       ticket.Priority,
			Title:          ticket.Title,
		},
	})
	return ticket, nil
}

func validateCreate(input TicketCreateInput) error {
	var fields []apperrors.FieldError
	if !input.Type.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "type", Message: "must be RFQ or GEN"})
	}
	if !input.DepartmentCode.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "department_code", Message: "unknown department"})
	}
	if !input.Priority.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
	}
	fields = append(fields, validateTitle(input.Title)...)
	if input.Type.Valid() {
		fields = append(fields, validateTypeData(input.Type, input.TypeData)...)
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields...)
	}
	return nil
}

func validateTitle(title string) []apperrors.FieldError {
	switch {
	case title == "":
		return []apperrors.FieldError{{Field: "title", Message: "required"}}
	case len(title) > maxTitleLength:
		return []apperrors.FieldError{{Field: "title", Message: "too long"}}
	}
	return nil
}

func validateTypeData(ticketType domain.TicketType, data domain.TypeData) []apperrors.FieldError {
	if data == nil {
		return nil
	}
	if data.TicketType() != ticketType {
		return []apperrors.FieldError{{Field: "type_data", Message: "does not match ticket type " + string(ticketType)}}
	}
	if err := data.Validate(); err != nil {
		return []apperrors.FieldError{{Field: "type_data", Message: err.Error()}}
	}
	return nil
}

// GetTicket returns a ticket with its timeline.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetails, error) {
	repos := s.store.Repos()
	ticket, err := s.loadVisible(ctx, repos, actor, ticketID, auth.OpTicketView)
	if err != nil {
		return nil, err
	}
	timeline, err := repos.Events.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket events", nil)
	}
	attachments, err := repos.Attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "attachments", nil)
	}
	quotes, err := repos.Quotes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "quotes", nil)
	}
	return &TicketDetails{Ticket: ticket, Events: timeline, Attachments: attachments, Quotes: quotes}, nil
}

// ListTickets returns tickets visible to the actor: all for admins, the
// department's tickets for managers, and created or assigned ones for everyone.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	if !actor.IsActive {
		return nil, apperrors.NewForbidden("user is inactive")
	}
	class, ok := s.permissions.Catalog().Classification(actor.Role)
	if !ok {
		return nil, apperrors.NewForbidden("unknown role")
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	repoFilter := repository.TicketFilter{
		DepartmentCode: filter.DepartmentCode,
		AssignedTo:     filter.AssignedTo,
		Statuses:       filter.Statuses,
		Types:          filter.Types,
		CreatedFrom:    filter.CreatedFrom,
		CreatedTo:      filter.CreatedTo,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if class != domain.ClassificationAdmin {
		repoFilter.VisibleToUser = &actor.ID
		if class == domain.ClassificationManager && actor.DepartmentCode != nil {
			repoFilter.VisibleDepartment = actor.DepartmentCode
		}
	}
	tickets, err := s.store.Repos().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err, "tickets", nil)
	}
	return tickets, nil
}

// Transition moves a ticket along the status state machine. The edge is
// checked first, then permission, then the close fields.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, ticketID string, input TransitionInput) (*domain.Ticket, error) {
	target, ok := domain.ParseTicketStatus(input.Target)
	if !ok {
		return nil, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "status", Message: "unknown status"})
	}

	var (
		ticket    *domain.Ticket
		previous  domain.TicketStatus
		milestone *milestoneResult
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !domain.CanTransition(ticket.Status, target) {
			return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
		}
		if !s.permissions.CanPerform(actor, auth.OpTicketUpdate, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to update this ticket")
		}
		if err := validateClose(ticket, target, input); err != nil {
			return err
		}

		before := *ticket
		previous = ticket.Status
		now := s.now()
		ticket.Status = target
		ticket.UpdatedAt = now
		if target == domain.TicketStatusClosed {
			applyClose(ticket, input, now)
			milestone, err = s.sla.apply(ctx, repos, actor.ID, ticket, domain.MilestoneResolved, now)
			if err != nil {
				return err
			}
		}

		event := &domain.TicketEvent{
			ID:         uuid.NewString(),
			TicketID:   ticket.ID,
			AuthorID:   actor.ID,
			Kind:       domain.EventKindStatusChange,
			Body:       strings.TrimSpace(input.Note),
			FromStatus: ptr(previous),
			ToStatus:   ptr(target),
			CreatedAt:  now,
		}
		if err := repos.Events.Create(ctx, event); err != nil {
			return storeError(err, "ticket event", nil)
		}
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionUpdate, before, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: ticket.Status,
			Outcome:   ticket.CloseOutcome,
		},
	})
	s.sla.publishMilestone(ctx, actor.ID, ticket.ID, milestone)
	return ticket, nil
}

func validateClose(ticket *domain.Ticket, target domain.TicketStatus, input TransitionInput) error {
	if target != domain.TicketStatusClosed {
		if input.Outcome != nil {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_outcome", Message: "only allowed when closing"})
		}
		return nil
	}
	if ticket.Type != domain.TicketTypeRFQ {
		if input.Outcome != nil {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_outcome", Message: "only RFQ tickets take an outcome"})
		}
		return nil
	}
	if input.Outcome == nil {
		return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_outcome", Message: "required to close an RFQ ticket"})
	}
	switch *input.Outcome {
	case domain.CloseOutcomeWon:
		if input.ProjectDate == nil || input.ProjectDate.IsZero() {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "project_date", Message: "required when the outcome is won"})
		}
	case domain.CloseOutcomeLost:
		if input.LostReason == nil {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_reason", Message: "required when the outcome is lost"})
		}
		if !input.LostReason.Valid() {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_reason", Message: "unknown reason code"})
		}
	default:
		return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "close_outcome", Message: "must be won or lost"})
	}
	return nil
}

func applyClose(ticket *domain.Ticket, input TransitionInput, now time.Time) {
	ticket.CloseNote = strings.TrimSpace(input.Note)
	if ticket.Type == domain.TicketTypeRFQ && input.Outcome != nil {
		ticket.CloseOutcome = ptr(*input.Outcome)
		switch *input.Outcome {
		case domain.CloseOutcomeWon:
			ticket.ProjectDate = ptr(*input.ProjectDate)
		case domain.CloseOutcomeLost:
			ticket.CloseReason = ptr(*input.LostReason)
		}
	}
	if ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}
}

// Assign sets the ticket's assignee. The assignee must be an active user.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "assignee_id", Message: "required"})
	}

	var (
		ticket   *domain.Ticket
		previous *string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !s.permissions.CanPerform(actor, auth.OpTicketAssign, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to assign this ticket")
		}
		if ticket.IsClosed() {
			return apperrors.NewValidationError("closed tickets cannot be reassigned", map[string]any{"status": ticket.Status})
		}
		assignee, err := repos.Users.GetByID(ctx, assigneeID)
		if err != nil {
			return storeError(err, "user", map[string]any{"id": assigneeID})
		}
		if !assignee.IsActive {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "assignee_id", Message: "user is inactive"})
		}

		before := *ticket
		previous = ticket.AssignedTo
		ticket.AssignedTo = &assignee.ID
		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionUpdate, before, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{PreviousAssignee: previous, Assignee: assigneeID},
	})
	return ticket, nil
}

// UpdateDetails edits priority, title, description or type data. The
// department and type are fixed at creation.
func (s *TicketService) UpdateDetails(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !s.permissions.CanPerform(actor, auth.OpTicketUpdate, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to update this ticket")
		}

		before := *ticket
		var fields []apperrors.FieldError
		if input.Priority != nil {
			if !input.Priority.Valid() {
				fields = append(fields, apperrors.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
			}
			ticket.Priority = *input.Priority
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			fields = append(fields, validateTitle(title)...)
			ticket.Title = title
		}
		if input.Description != nil {
			ticket.Description = strings.TrimSpace(*input.Description)
		}
		if input.TypeData != nil {
			fields = append(fields, validateTypeData(ticket.Type, input.TypeData)...)
			ticket.TypeData = input.TypeData
		}
		if len(fields) > 0 {
			return apperrors.NewFieldValidationError(fields...)
		}

		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionUpdate, before, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  ticket,
	})
	return ticket, nil
}

// AddComment appends a comment and attributes its response time.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string) (*domain.TicketEvent, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "body", Message: "required"})
	}
	var event *domain.TicketEvent
	milestone, err := s.respond(ctx, actor, ticketID, auth.OpTicketComment, func(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, e *domain.TicketEvent) error {
		e.Kind = domain.EventKindComment
		e.Body = body
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishResponse(ctx, actor.ID, event, milestone)
	return event, nil
}

// AddQuote records a price quote on an RFQ ticket. Quotes count as responses.
func (s *TicketService) AddQuote(ctx context.Context, actor domain.Actor, ticketID string, input QuoteInput) (*QuoteResult, error) {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	var fields []apperrors.FieldError
	if input.AmountMinor < 0 {
		fields = append(fields, apperrors.FieldError{Field: "amount_minor", Message: "must not be negative"})
	}
	if len(currency) != 3 {
		fields = append(fields, apperrors.FieldError{Field: "currency", Message: "must be a 3-letter code"})
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields...)
	}

	result := &QuoteResult{}
	milestone, err := s.respond(ctx, actor, ticketID, auth.OpQuoteCreate, func(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, e *domain.TicketEvent) error {
		if ticket.Type != domain.TicketTypeRFQ {
			return apperrors.NewValidationError("quotes are only accepted on RFQ tickets", map[string]any{"type": ticket.Type})
		}
		e.Kind = domain.EventKindQuote
		e.Body = strings.TrimSpace(input.Notes)
		quote := &domain.Quote{
			ID:          uuid.NewString(),
			TicketID:    ticket.ID,
			EventID:     e.ID,
			CreatedBy:   e.AuthorID,
			AmountMinor: input.AmountMinor,
			Currency:    currency,
			ValidUntil:  input.ValidUntil,
			Notes:       strings.TrimSpace(input.Notes),
			CreatedAt:   e.CreatedAt,
		}
		result.Quote = quote
		result.Event = e
		return nil
	}, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Quotes.Create(ctx, result.Quote); err != nil {
			return storeError(err, "quote", nil)
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableQuotes, result.Quote.ID, domain.AuditActionCreate, nil, result.Quote)
	})
	if err != nil {
		return nil, err
	}
	s.publishResponse(ctx, actor.ID, result.Event, milestone)
	return result, nil
}

type eventBuilder func(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, event *domain.TicketEvent) error

type afterEvent func(ctx context.Context, repos repository.Repositories) error

// respond stores a comment or quote event with its response attribution and,
// for the first response by someone other than the creator, the SLA
// first-response milestone.
func (s *TicketService) respond(ctx context.Context, actor domain.Actor, ticketID string, op auth.Operation, build eventBuilder, after ...afterEvent) (*milestoneResult, error) {
	var milestone *milestoneResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !s.permissions.CanPerform(actor, op, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to respond on this ticket")
		}
		if ticket.IsClosed() {
			return apperrors.NewValidationError("ticket is closed", map[string]any{"status": ticket.Status})
		}

		now := s.now()
		event := &domain.TicketEvent{
			ID:        uuid.NewString(),
			TicketID:  ticket.ID,
			AuthorID:  actor.ID,
			CreatedAt: now,
		}
		if err := build(ctx, repos, ticket, event); err != nil {
			return err
		}
		prior, err := repos.Events.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return storeError(err, "ticket events", nil)
		}
		attribution := s.responses.Attribute(ticket, prior, actor.ID, event.Kind, now)
		event.ResponseDirection = attribution.Direction
		event.ResponseTimeSeconds = attribution.Seconds

		if err := repos.Events.Create(ctx, event); err != nil {
			return storeError(err, "ticket event", nil)
		}
		if err := s.audit.Record(ctx, repos.Audit, actor.ID, tableTicketEvents, event.ID, domain.AuditActionCreate, nil, event); err != nil {
			return err
		}
		for _, fn := range after {
			if err := fn(ctx, repos); err != nil {
				return err
			}
		}

		if actor.ID == ticket.CreatedBy {
			return nil
		}
		before := *ticket
		milestone, err = s.sla.apply(ctx, repos, actor.ID, ticket, domain.MilestoneFirstResponse, now)
		if err != nil || milestone == nil {
			return err
		}
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionUpdate, before, ticket)
	})
	return milestone, err
}

func (s *TicketService) publishResponse(ctx context.Context, actorID string, event *domain.TicketEvent, milestone *milestoneResult) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketResponded,
		TicketID: event.TicketID,
		ActorID:  actorID,
		Payload: events.TicketRespondedPayload{
			EventID:             event.ID,
			Kind:                event.Kind,
			Direction:           event.ResponseDirection,
			ResponseTimeSeconds: event.ResponseTimeSeconds,
			BodyPreview:         stringPreview(event.Body, 120),
		},
	})
	s.sla.publishMilestone(ctx, actorID, event.TicketID, milestone)
}

// AddAttachment records attachment metadata for a ticket the actor can view.
func (s *TicketService) AddAttachment(ctx context.Context, actor domain.Actor, ticketID string, input AttachmentInput) (*domain.Attachment, error) {
	var fields []apperrors.FieldError
	if strings.TrimSpace(input.StorageKey) == "" {
		fields = append(fields, apperrors.FieldError{Field: "storage_key", Message: "required"})
	}
	if strings.TrimSpace(input.FileName) == "" {
		fields = append(fields, apperrors.FieldError{Field: "file_name", Message: "required"})
	}
	if input.SizeBytes < 0 {
		fields = append(fields, apperrors.FieldError{Field: "size_bytes", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields...)
	}
	if input.MimeType == "" {
		input.MimeType = "application/octet-stream"
	}

	var attachment *domain.Attachment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !s.permissions.CanPerform(actor, auth.OpAttachmentUpload, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to upload to this ticket")
		}
		attachment = &domain.Attachment{
			ID:         uuid.NewString(),
			TicketID:   ticket.ID,
			UploadedBy: actor.ID,
			StorageKey: strings.TrimSpace(input.StorageKey),
			FileName:   strings.TrimSpace(input.FileName),
			MimeType:   input.MimeType,
			SizeBytes:  input.SizeBytes,
			CreatedAt:  s.now(),
		}
		if err := repos.Attachments.Create(ctx, attachment); err != nil {
			return storeError(err, "attachment", nil)
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableAttachments, attachment.ID, domain.AuditActionCreate, nil, attachment)
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachment removes attachment metadata. Only the uploader or an admin may.
func (s *TicketService) DeleteAttachment(ctx context.Context, actor domain.Actor, attachmentID string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		attachment, err := repos.Attachments.GetByID(ctx, attachmentID)
		if err != nil {
			return storeError(err, "attachment", map[string]any{"id": attachmentID})
		}
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, attachment.TicketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": attachment.TicketID})
		}
		if !s.permissions.CanPerform(actor, auth.OpAttachmentDelete, auth.AttachmentResource(ticket, attachment)) {
			return apperrors.NewForbidden("not allowed to delete this attachment")
		}
		if err := repos.Attachments.Delete(ctx, attachment.ID); err != nil {
			return storeError(err, "attachment", map[string]any{"id": attachmentID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableAttachments, attachment.ID, domain.AuditActionDelete, attachment, nil)
	})
}

// DeleteTicket physically removes a ticket. The audit trail is kept.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !s.permissions.CanPerform(actor, auth.OpTicketDelete, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to delete this ticket")
		}
		if err := repos.Tickets.Delete(ctx, ticket.ID); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionDelete, ticket, nil)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  map[string]string{"code": ticket.Code},
	})
	return nil
}

// History returns the audit trail of a ticket and its SLA record, oldest first.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.AuditLogEntry, error) {
	repos := s.store.Repos()
	if _, err := s.loadVisible(ctx, repos, actor, ticketID, auth.OpAuditView); err != nil {
		return nil, err
	}
	var entries []domain.AuditLogEntry
	for _, table := range []string{tableTickets, tableSLARecords} {
		found, err := repos.Audit.ListByRecord(ctx, table, ticketID)
		if err != nil {
			return nil, storeError(err, "audit log", nil)
		}
		entries = append(entries, found...)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (s *TicketService) loadVisible(ctx context.Context, repos repository.Repositories, actor domain.Actor, ticketID string, op auth.Operation) (*domain.Ticket, error) {
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"id": ticketID})
	}
	if !s.permissions.CanPerform(actor, op, auth.TicketResource(ticket)) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, s.now, event)
}
