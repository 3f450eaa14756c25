package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/sla"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

const summaryPageSize = 500

// SLATracker owns SLA records: targets at creation, milestone outcomes, and
// read-side status.
type SLATracker struct {
	store       repository.Store
	permissions *auth.PermissionEngine
	calendar    *sla.Calendar
	policy      *sla.Policy
	audit       *AuditLogger
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         NowFunc
}

// SLATrackerDependencies bundles collaborators for the tracker.
type SLATrackerDependencies struct {
	Store       repository.Store
	Permissions *auth.PermissionEngine
	Calendar    *sla.Calendar
	Policy      *sla.Policy
	Audit       *AuditLogger
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         NowFunc
}

// MilestoneStatus is the progress of one milestone.
type MilestoneStatus struct {
	Milestone    domain.Milestone `json:"milestone"`
	TargetHours  float64          `json:"target_hours"`
	ElapsedHours float64          `json:"elapsed_hours"`
	Status       domain.SLAStatus `json:"status"`
	AchievedAt   *time.Time       `json:"achieved_at,omitempty"`
}

// TicketSLAStatus is the SLA view of a ticket.
type TicketSLAStatus struct {
	TicketID      string          `json:"ticket_id"`
	Code          string          `json:"code"`
	FirstResponse MilestoneStatus `json:"first_response"`
	Resolution    MilestoneStatus `json:"resolution"`
}

// SLASummary counts statuses per milestone over tickets created in a window.
type SLASummary struct {
	From          time.Time                `json:"from"`
	To            time.Time                `json:"to"`
	Department    *domain.DepartmentCode   `json:"department,omitempty"`
	Tickets       int                      `json:"tickets"`
	FirstResponse map[domain.SLAStatus]int `json:"first_response"`
	Resolution    map[domain.SLAStatus]int `json:"resolution"`
}

// milestoneResult describes an applied milestone for post-commit events.
type milestoneResult struct {
	Milestone domain.Milestone
	Met       bool
}

// NewSLATracker constructs the tracker.
func NewSLATracker(deps SLATrackerDependencies) *SLATracker {
	calendar := deps.Calendar
	if calendar == nil {
		calendar = sla.DefaultCalendar()
	}
	return &SLATracker{
		store:       deps.Store,
		permissions: deps.Permissions,
		calendar:    calendar,
		policy:      deps.Policy,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger),
		now:         nowOrDefault(deps.Now),
	}
}

// Calendar exposes the business-hours calendar.
func (t *SLATracker) Calendar() *sla.Calendar {
	return t.calendar
}

// initialize creates the SLA record for a new ticket inside the caller's transaction.
func (t *SLATracker) initialize(ctx context.Context, repos repository.Repositories, actorID string, ticket *domain.Ticket, dept *domain.Department) (*domain.SLARecord, error) {
	targets := sla.Targets{FirstResponseHours: 4, ResolutionHours: 48}
	if t.policy != nil {
		targets = t.policy.Resolve(*dept, ticket.Type)
	}
	record := &domain.SLARecord{
		TicketID:                 ticket.ID,
		FirstResponseTargetHours: targets.FirstResponseHours,
		ResolutionTargetHours:    targets.ResolutionHours,
	}
	if err := repos.SLA.Create(ctx, record); err != nil {
		return nil, storeError(err, "sla record", map[string]any{"ticket_id": ticket.ID})
	}
	if err := t.audit.Record(ctx, repos.Audit, actorID, tableSLARecords, ticket.ID, domain.AuditActionCreate, nil, record); err != nil {
		return nil, err
	}
	return record, nil
}

// apply stamps the milestone on ticket and stores the outcome on its SLA
// record inside the caller's transaction. The caller persists ticket. It
// returns nil when the milestone was already recorded.
func (t *SLATracker) apply(ctx context.Context, repos repository.Repositories, actorID string, ticket *domain.Ticket, milestone domain.Milestone, at time.Time) (*milestoneResult, error) {
	switch milestone {
	case domain.MilestoneFirstResponse:
		if ticket.FirstResponseAt != nil {
			return nil, nil
		}
	case domain.MilestoneResolved:
		if ticket.ResolvedAt != nil {
			return nil, nil
		}
	default:
		return nil, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "milestone", Message: "unknown milestone"})
	}

	record, err := repos.SLA.GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "sla record", map[string]any{"ticket_id": ticket.ID})
	}
	before := *record
	elapsed := t.calendar.BusinessHoursElapsed(ticket.CreatedAt, at)
	stamp := at

	var met bool
	if milestone == domain.MilestoneFirstResponse {
		met = sla.Met(elapsed, record.FirstResponseTargetHours)
		ticket.FirstResponseAt = &stamp
		record.FirstResponseMet = &met
	} else {
		met = sla.Met(elapsed, record.ResolutionTargetHours)
		ticket.ResolvedAt = &stamp
		record.ResolutionMet = &met
	}

	if err := repos.SLA.Update(ctx, record); err != nil {
		return nil, storeError(err, "sla record", map[string]any{"ticket_id": ticket.ID})
	}
	if err := t.audit.Record(ctx, repos.Audit, actorID, tableSLARecords, ticket.ID, domain.AuditActionUpdate, before, record); err != nil {
		return nil, err
	}
	return &milestoneResult{Milestone: milestone, Met: met}, nil
}

// RecordMilestone marks a milestone in its own transaction. Recording a
// milestone that is already set changes nothing.
func (t *SLATracker) RecordMilestone(ctx context.Context, actor domain.Actor, ticketID string, milestone domain.Milestone) (*domain.Ticket, error) {
	var (
		result  *milestoneResult
		updated *domain.Ticket
	)
	err := t.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		if !t.permissions.CanPerform(actor, auth.OpTicketUpdate, auth.TicketResource(ticket)) {
			return apperrors.NewForbidden("not allowed to update this ticket")
		}
		before := *ticket
		now := t.now()
		result, err = t.apply(ctx, repos, actor.ID, ticket, milestone, now)
		if err != nil {
			return err
		}
		updated = ticket
		if result == nil {
			return nil
		}
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return storeError(err, "ticket", map[string]any{"id": ticketID})
		}
		return t.audit.Record(ctx, repos.Audit, actor.ID, tableTickets, ticket.ID, domain.AuditActionUpdate, before, ticket)
	})
	if err != nil {
		return nil, err
	}
	t.publishMilestone(ctx, actor.ID, ticketID, result)
	return updated, nil
}

func (t *SLATracker) publishMilestone(ctx context.Context, actorID, ticketID string, result *milestoneResult) {
	if result == nil {
		return
	}
	publish(ctx, t.dispatcher, t.logger, t.now, events.Event{
		Type:     events.EventSLAMilestone,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload:  events.SLAMilestonePayload{Milestone: result.Milestone, Met: result.Met},
	})
}

// TicketStatus reports elapsed business hours and classification per milestone.
func (t *SLATracker) TicketStatus(ctx context.Context, actor domain.Actor, ticketID string) (*TicketSLAStatus, error) {
	repos := t.store.Repos()
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"id": ticketID})
	}
	if !t.permissions.CanPerform(actor, auth.OpTicketView, auth.TicketResource(ticket)) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	record, err := repos.SLA.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "sla record", map[string]any{"ticket_id": ticketID})
	}
	status := t.evaluate(ticket, record, t.now())
	return &status, nil
}

func (t *SLATracker) evaluate(ticket *domain.Ticket, record *domain.SLARecord, now time.Time) TicketSLAStatus {
	// Open milestones stop the clock when the ticket closes.
	pendingEnd := now
	if ticket.ClosedAt != nil {
		pendingEnd = *ticket.ClosedAt
	}
	return TicketSLAStatus{
		TicketID:      ticket.ID,
		Code:          ticket.Code,
		FirstResponse: t.milestone(domain.MilestoneFirstResponse, ticket.CreatedAt, ticket.FirstResponseAt, pendingEnd, record.FirstResponseTargetHours),
		Resolution:    t.milestone(domain.MilestoneResolved, ticket.CreatedAt, ticket.ResolvedAt, pendingEnd, record.ResolutionTargetHours),
	}
}

func (t *SLATracker) milestone(m domain.Milestone, start time.Time, achieved *time.Time, pendingEnd time.Time, target float64) MilestoneStatus {
	end := pendingEnd
	if achieved != nil {
		end = *achieved
	}
	elapsed := t.calendar.BusinessHoursElapsed(start, end)
	return MilestoneStatus{
		Milestone:    m,
		TargetHours:  target,
		ElapsedHours: elapsed.Hours(),
		Status:       sla.Classify(elapsed, target, achieved != nil),
		AchievedAt:   achieved,
	}
}

// Summary aggregates SLA status over tickets created within [from, to).
// Managers are limited to their own department; staff may not read it.
func (t *SLATracker) Summary(ctx context.Context, actor domain.Actor, window Window, dept *domain.DepartmentCode) (*SLASummary, error) {
	window, err := window.normalize(t.now())
	if err != nil {
		return nil, err
	}
	scope, err := reportScope(t.permissions, actor, dept)
	if err != nil {
		return nil, err
	}

	repos := t.store.Repos()
	summary := &SLASummary{
		From:          window.From,
		To:            window.To,
		Department:    scope,
		FirstResponse: map[domain.SLAStatus]int{},
		Resolution:    map[domain.SLAStatus]int{},
	}
	now := t.now()
	for offset := 0; ; offset += summaryPageSize {
		tickets, err := repos.Tickets.List(ctx, repository.TicketFilter{
			DepartmentCode: scope,
			CreatedFrom:    &window.From,
			CreatedTo:      &window.To,
			Limit:          summaryPageSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, storeError(err, "tickets", nil)
		}
		ids := make([]string, len(tickets))
		for i := range tickets {
			ids[i] = tickets[i].ID
		}
		records, err := repos.SLA.ListByTickets(ctx, ids)
		if err != nil {
			return nil, storeError(err, "sla records", nil)
		}
		for i := range tickets {
			record, ok := records[tickets[i].ID]
			if !ok {
				continue
			}
			status := t.evaluate(&tickets[i], &record, now)
			summary.Tickets++
			summary.FirstResponse[status.FirstResponse.Status]++
			summary.Resolution[status.Resolution.Status]++
		}
		if len(tickets) < summaryPageSize {
			break
		}
	}
	return summary, nil
}

// reportScope resolves which department a dashboard request may cover.
func reportScope(permissions *auth.PermissionEngine, actor domain.Actor, dept *domain.DepartmentCode) (*domain.DepartmentCode, error) {
	if dept != nil && !dept.Valid() {
		return nil, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "department_code", Message: "unknown department"})
	}
	if !actor.IsActive {
		return nil, apperrors.NewForbidden("user is inactive")
	}
	class, ok := permissions.Catalog().Classification(actor.Role)
	if !ok {
		return nil, apperrors.NewForbidden("unknown role")
	}
	switch class {
	case domain.ClassificationAdmin:
		return dept, nil
	case domain.ClassificationManager:
		if actor.DepartmentCode == nil {
			return nil, apperrors.NewForbidden("manager has no department")
		}
		if dept != nil && *dept != *actor.DepartmentCode {
			return nil, apperrors.NewForbidden("reports are limited to your department")
		}
		return actor.DepartmentCode, nil
	default:
		return nil, apperrors.NewForbidden("reports require a manager or admin role")
	}
}

// AtRisk lists non-closed tickets with a pending milestone past its target.
// Scope follows the same rules as Summary.
func (t *SLATracker) AtRisk(ctx context.Context, actor domain.Actor, dept *domain.DepartmentCode) ([]TicketSLAStatus, error) {
	scope, err := reportScope(t.permissions, actor, dept)
	if err != nil {
		return nil, err
	}
	repos := t.store.Repos()
	open := make([]domain.TicketStatus, 0, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		if status != domain.TicketStatusClosed {
			open = append(open, status)
		}
	}

	flagged := []TicketSLAStatus{}
	now := t.now()
	for offset := 0; ; offset += summaryPageSize {
		tickets, err := repos.Tickets.List(ctx, repository.TicketFilter{
			DepartmentCode: scope,
			Statuses:       open,
			Limit:          summaryPageSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, storeError(err, "tickets", nil)
		}
		ids := make([]string, len(tickets))
		for i := range tickets {
			ids[i] = tickets[i].ID
		}
		records, err := repos.SLA.ListByTickets(ctx, ids)
		if err != nil {
			return nil, storeError(err, "sla records", nil)
		}
		for i := range tickets {
			record, ok := records[tickets[i].ID]
			if !ok {
				continue
			}
			status := t.evaluate(&tickets[i], &record, now)
			if needsAttention(status.FirstResponse) || needsAttention(status.Resolution) {
				flagged = append(flagged, status)
			}
		}
		if len(tickets) < summaryPageSize {
			break
		}
	}
	return flagged, nil
}

func needsAttention(m MilestoneStatus) bool {
	return m.AchievedAt == nil && (m.Status == domain.SLAStatusWarning || m.Status == domain.SLAStatusAtRisk)
}
