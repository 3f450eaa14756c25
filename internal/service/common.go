package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// NowFunc supplies the current time. Tests inject a controllable clock.
type NowFunc func() time.Time

func nowOrDefault(now NowFunc) NowFunc {
	if now == nil {
		return time.Now
	}
	return now
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// storeError maps repository failures onto the error taxonomy. Errors that
// already carry a code pass through unchanged.
func storeError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	default:
		return apperrors.NewPersistenceError(err)
	}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now NowFunc, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func ptr[T any](v T) *T {
	return &v
}
