package domain

import "time"

// TicketType distinguishes quotation requests from general inquiries.
type TicketType string

const (
	TicketTypeRFQ TicketType = "RFQ"
	TicketTypeGEN TicketType = "GEN"
)

// Valid reports whether the type is known.
func (t TicketType) Valid() bool {
	return t == TicketTypeRFQ || t == TicketTypeGEN
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// CloseOutcome is the commercial result of a closed RFQ.
type CloseOutcome string

const (
	CloseOutcomeWon  CloseOutcome = "won"
	CloseOutcomeLost CloseOutcome = "lost"
)

// LostReason is the fixed list of reasons for a lost RFQ.
type LostReason string

const (
	LostReasonPriceNotCompetitive LostReason = "price_not_competitive"
	LostReasonCustomerCancel      LostReason = "customer_cancel"
	LostReasonCompetitorWon       LostReason = "competitor_won"
	LostReasonServiceNotMatch     LostReason = "service_not_match"
	LostReasonTimingIssue         LostReason = "timing_issue"
	LostReasonOther               LostReason = "other"
)

// Valid reports whether the reason is one of the fixed codes.
func (r LostReason) Valid() bool {
	switch r {
	case LostReasonPriceNotCompetitive, LostReasonCustomerCancel, LostReasonCompetitorWon,
		LostReasonServiceNotMatch, LostReasonTimingIssue, LostReasonOther:
		return true
	}
	return false
}

// Ticket is the aggregate for department requests.
type Ticket struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Type            TicketType     `json:"type"`
	Status          TicketStatus   `json:"status"`
	Priority        TicketPriority `json:"priority"`
	DepartmentCode  DepartmentCode `json:"department_code"`
	CreatedBy       string         `json:"created_by"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	TypeData        TypeData       `json:"type_data,omitempty"`
	CloseOutcome    *CloseOutcome  `json:"close_outcome,omitempty"`
	CloseReason     *LostReason    `json:"close_reason,omitempty"`
	CloseNote       string         `json:"close_note,omitempty"`
	ProjectDate     *time.Time     `json:"project_date,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	FirstResponseAt *time.Time     `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
}

// IsClosed reports whether the ticket reached the terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}
