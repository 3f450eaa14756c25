package events

import (
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketResponded     EventType = "ticket_responded"
	EventSLAMilestone        EventType = "sla_milestone"
	EventUserUpdated         EventType = "user_updated"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code           string                `json:"code"`
	Type           domain.TicketType     `json:"type"`
	DepartmentCode domain.DepartmentCode `json:"department_code"`
	Priority       domain.TicketPriority `json:"priority"`
	Title          string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus  `json:"old_status"`
	NewStatus domain.TicketStatus  `json:"new_status"`
	Outcome   *domain.CloseOutcome `json:"outcome,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
	Assignee         string  `json:"assignee"`
}

// TicketRespondedPayload payload.
type TicketRespondedPayload struct {
	EventID             string                    `json:"event_id"`
	Kind                domain.EventKind          `json:"kind"`
	Direction           *domain.ResponseDirection `json:"direction,omitempty"`
	ResponseTimeSeconds *int64                    `json:"response_time_seconds,omitempty"`
	BodyPreview         string                    `json:"body_preview"`
}

// SLAMilestonePayload payload.
type SLAMilestonePayload struct {
	Milestone domain.Milestone `json:"milestone"`
	Met       bool             `json:"met"`
}

// UserUpdatedPayload payload.
type UserUpdatedPayload struct {
	UserID   string          `json:"user_id"`
	Role     domain.RoleName `json:"role"`
	IsActive bool            `json:"is_active"`
}
