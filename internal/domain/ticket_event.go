package domain

import "time"

// EventKind differentiates ticket timeline entries.
type EventKind string

const (
	EventKindComment      EventKind = "comment"
	EventKindQuote        EventKind = "quote"
	EventKindStatusChange EventKind = "status_change"
)

// CountsAsResponse reports whether the kind participates in response attribution.
func (k EventKind) CountsAsResponse() bool {
	return k == EventKindComment || k == EventKindQuote
}

// ResponseDirection records which side a reply was addressed to.
type ResponseDirection string

const (
	DirectionToRequester  ResponseDirection = "to_requester"
	DirectionToDepartment ResponseDirection = "to_department"
)

// Valid reports whether the direction is known.
func (d ResponseDirection) Valid() bool {
	return d == DirectionToRequester || d == DirectionToDepartment
}

// TicketEvent is an append-only timeline record.
type TicketEvent struct {
	ID                  string             `json:"id"`
	TicketID            string             `json:"ticket_id"`
	AuthorID            string             `json:"author_id"`
	Kind                EventKind          `json:"kind"`
	Body                string             `json:"body,omitempty"`
	FromStatus          *TicketStatus      `json:"from_status,omitempty"`
	ToStatus            *TicketStatus      `json:"to_status,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	ResponseDirection   *ResponseDirection `json:"response_direction,omitempty"`
	ResponseTimeSeconds *int64             `json:"response_time_seconds,omitempty"`
}
