package domain

import (
	"encoding/json"
	"time"
)

// AuditAction enumerates mutation kinds.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLogEntry is an immutable record of a mutation.
type AuditLogEntry struct {
	ID        string          `json:"id"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	Action    AuditAction     `json:"action"`
	ActorID   string          `json:"actor_id"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
