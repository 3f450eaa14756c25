package domain

import "time"

// Attachment stores metadata for a file linked to a ticket.
type Attachment struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UploadedBy string    `json:"uploaded_by"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Quote is a price offer attached to an RFQ ticket.
type Quote struct {
	ID          string     `json:"id"`
	TicketID    string     `json:"ticket_id"`
	EventID     string     `json:"event_id"`
	CreatedBy   string     `json:"created_by"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
