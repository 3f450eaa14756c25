package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type           domain.TicketType     `json:"type"`
	DepartmentCode domain.DepartmentCode `json:"department_code"`
	Priority       domain.TicketPriority `json:"priority"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	TypeData       json.RawMessage       `json:"type_data"`
}

// UpdateTicketRequest payload. Omitted fields stay unchanged.
type UpdateTicketRequest struct {
	Priority    *domain.TicketPriority `json:"priority"`
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	TypeData    json.RawMessage        `json:"type_data"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status       string               `json:"status"`
	CloseOutcome *domain.CloseOutcome `json:"close_outcome"`
	ProjectDate  *time.Time           `json:"project_date"`
	CloseReason  *domain.LostReason   `json:"close_reason"`
	Note         string               `json:"note"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body string `json:"body"`
}

// QuoteRequest payload.
type QuoteRequest struct {
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	ValidUntil  *time.Time `json:"valid_until"`
	Notes       string     `json:"notes"`
}

// AttachmentRequest describes attachment metadata.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketSummary is the list view of a ticket.
type TicketSummary struct {
	ID             string                `json:"id"`
	Code           string                `json:"code"`
	Type           domain.TicketType     `json:"type"`
	DepartmentCode domain.DepartmentCode `json:"department_code"`
	Title          string                `json:"title"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	CreatedBy      string                `json:"created_by"`
	AssignedTo     *string               `json:"assigned_to"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewTicketSummary builds the list view.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:             ticket.ID,
		Code:           ticket.Code,
		Type:           ticket.Type,
		DepartmentCode: ticket.DepartmentCode,
		Title:          ticket.Title,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		CreatedBy:      ticket.CreatedBy,
		AssignedTo:     ticket.AssignedTo,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

// DecodeTypeData parses raw type data for the given ticket type. Empty input
// decodes to nil.
func DecodeTypeData(ticketType domain.TicketType, raw json.RawMessage) (domain.TypeData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch ticketType {
	case domain.TicketTypeRFQ:
		var data domain.RFQData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		return data, nil
	case domain.TicketTypeGEN:
		var data domain.GenData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown ticket type %q", ticketType)
	}
}
