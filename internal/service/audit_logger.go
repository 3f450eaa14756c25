package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// Audited table names.
const (
	tableTickets      = "tickets"
	tableTicketEvents = "ticket_events"
	tableSLARecords   = "sla_records"
	tableAttachments  = "attachments"
	tableQuotes       = "quotes"
	tableUsers        = "users"
)

// systemActorID marks mutations not triggered by a user, such as seeding.
const systemActorID = "system"

// AuditLogger writes before/after snapshots of every mutation. It always
// writes through the repository of the caller's transaction, so a failed
// append fails the whole unit of work.
type AuditLogger struct {
	now NowFunc
}

// NewAuditLogger constructs the logger.
func NewAuditLogger(now NowFunc) *AuditLogger {
	return &AuditLogger{now: nowOrDefault(now)}
}

// Record appends one entry. before is nil for creates and after is nil for deletes.
func (a *AuditLogger) Record(ctx context.Context, repo repository.AuditRepository, actorID, tableName, recordID string, action domain.AuditAction, before, after any) error {
	beforeRaw, err := snapshot(before)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("audit snapshot: %w", err))
	}
	afterRaw, err := snapshot(after)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("audit snapshot: %w", err))
	}
	if actorID == "" {
		actorID = systemActorID
	}
	entry := &domain.AuditLogEntry{
		ID:        uuid.NewString(),
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		ActorID:   actorID,
		Before:    beforeRaw,
		After:     afterRaw,
		CreatedAt: a.now(),
	}
	if err := repo.Append(ctx, entry); err != nil {
		return apperrors.NewPersistenceError(fmt.Errorf("append audit entry: %w", err))
	}
	return nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}
