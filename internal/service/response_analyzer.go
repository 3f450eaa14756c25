package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/analytics"
	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/sla"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// Stat scopes.
const (
	ScopeUser       = "user"
	ScopeDepartment = "department"
	ScopeTicket     = "ticket"
)

// ResponseTimeAnalyzer attributes response times to new timeline events and
// aggregates them for dashboards.
type ResponseTimeAnalyzer struct {
	store       repository.Store
	permissions *auth.PermissionEngine
	calendar    *sla.Calendar
	cache       analytics.Cache
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         NowFunc
}

// ResponseAnalyzerDependencies bundles collaborators for the analyzer.
type ResponseAnalyzerDependencies struct {
	Store       repository.Store
	Permissions *auth.PermissionEngine
	Calendar    *sla.Calendar
	Cache       analytics.Cache
	CacheTTL    time.Duration
	Logger      *zap.Logger
	Now         NowFunc
}

// ResponseStats is the result of one aggregation.
type ResponseStats struct {
	Scope     string                    `json:"scope"`
	Key       string                    `json:"key"`
	From      time.Time                 `json:"from"`
	To        time.Time                 `json:"to"`
	Direction *domain.ResponseDirection `json:"direction,omitempty"`
	analytics.Summary
}

// Attribution is the response data derived for a new event.
type Attribution struct {
	Direction *domain.ResponseDirection
	Seconds   *int64
}

// NewResponseTimeAnalyzer constructs the analyzer.
func NewResponseTimeAnalyzer(deps ResponseAnalyzerDependencies) *ResponseTimeAnalyzer {
	cache := deps.Cache
	if cache == nil {
		cache = analytics.NoopCache{}
	}
	calendar := deps.Calendar
	if calendar == nil {
		calendar = sla.DefaultCalendar()
	}
	return &ResponseTimeAnalyzer{
		store:       deps.Store,
		permissions: deps.Permissions,
		calendar:    calendar,
		cache:       cache,
		cacheTTL:    deps.CacheTTL,
		logger:      loggerOrNop(deps.Logger),
		now:         nowOrDefault(deps.Now),
	}
}

// Attribute derives direction and business-hours response time for a
// comment or quote by authorID at the given instant. prior must hold the
// ticket's earlier events.
//
// Anyone other than the creator answers the requester and is measured from
// the creator's latest comment or quote, or from ticket creation. The creator
// answers the department and is measured from the latest staff comment or
// quote; with none there is nothing to answer and no time is recorded.
func (a *ResponseTimeAnalyzer) Attribute(ticket *domain.Ticket, prior []domain.TicketEvent, authorID string, kind domain.EventKind, at time.Time) Attribution {
	if !kind.CountsAsResponse() {
		return Attribution{}
	}
	fromRequester := authorID == ticket.CreatedBy

	var anchor *time.Time
	for i := range prior {
		event := prior[i]
		if !event.Kind.CountsAsResponse() || event.CreatedAt.After(at) {
			continue
		}
		if (event.AuthorID == ticket.CreatedBy) == fromRequester {
			continue
		}
		if anchor == nil || event.CreatedAt.After(*anchor) {
			created := event.CreatedAt
			anchor = &created
		}
	}

	direction := domain.DirectionToRequester
	if fromRequester {
		direction = domain.DirectionToDepartment
		if anchor == nil {
			return Attribution{}
		}
	} else if anchor == nil {
		created := ticket.CreatedAt
		anchor = &created
	}

	seconds := int64(a.calendar.BusinessHoursElapsed(*anchor, at) / time.Second)
	return Attribution{Direction: &direction, Seconds: &seconds}
}

// ComputeUserStats aggregates responses authored by userID. Users may read
// their own stats; managers those of users in their department.
func (a *ResponseTimeAnalyzer) ComputeUserStats(ctx context.Context, actor domain.Actor, userID string, window Window, direction *domain.ResponseDirection) (*ResponseStats, error) {
	if err := validateDirection(direction); err != nil {
		return nil, err
	}
	user, err := a.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"id": userID})
	}
	if !a.canReadUser(actor, user) {
		return nil, apperrors.NewForbidden("not allowed to read this user's stats")
	}
	return a.compute(ctx, ScopeUser, userID, window, direction, repository.ResponseFilter{AuthorID: &userID})
}

// ComputeDepartmentStats aggregates responses on tickets owned by dept.
// Without a direction only staff replies to requesters are counted, so
// requester reply times stay out of department performance.
func (a *ResponseTimeAnalyzer) ComputeDepartmentStats(ctx context.Context, actor domain.Actor, dept domain.DepartmentCode, window Window, direction *domain.ResponseDirection) (*ResponseStats, error) {
	if err := validateDirection(direction); err != nil {
		return nil, err
	}
	if direction == nil {
		toRequester := domain.DirectionToRequester
		direction = &toRequester
	}
	if _, err := reportScope(a.permissions, actor, &dept); err != nil {
		return nil, err
	}
	return a.compute(ctx, ScopeDepartment, string(dept), window, direction, repository.ResponseFilter{DepartmentCode: &dept})
}

// ComputeTicketStats aggregates responses on one ticket the actor can view.
func (a *ResponseTimeAnalyzer) ComputeTicketStats(ctx context.Context, actor domain.Actor, ticketID string, window Window, direction *domain.ResponseDirection) (*ResponseStats, error) {
	if err := validateDirection(direction); err != nil {
		return nil, err
	}
	ticket, err := a.store.Repos().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"id": ticketID})
	}
	if !a.permissions.CanPerform(actor, auth.OpTicketView, auth.TicketResource(ticket)) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return a.compute(ctx, ScopeTicket, ticketID, window, direction, repository.ResponseFilter{TicketID: &ticketID})
}

func (a *ResponseTimeAnalyzer) compute(ctx context.Context, scope, key string, window Window, direction *domain.ResponseDirection, filter repository.ResponseFilter) (*ResponseStats, error) {
	window, err := window.normalize(a.now())
	if err != nil {
		return nil, err
	}
	cacheKey := statsCacheKey(scope, key, window, direction)

	var cached ResponseStats
	switch err := a.cache.Get(ctx, cacheKey, &cached); {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, analytics.ErrCacheMiss):
		a.logger.Warn("analytics cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	filter.From = window.From
	filter.To = window.To
	filter.Direction = direction
	samples, err := a.store.Repos().Events.ListResponses(ctx, filter)
	if err != nil {
		return nil, storeError(err, "responses", nil)
	}
	seconds := make([]int64, len(samples))
	for i, sample := range samples {
		seconds[i] = sample.Seconds
	}

	stats := &ResponseStats{
		Scope:     scope,
		Key:       key,
		From:      window.From,
		To:        window.To,
		Direction: direction,
		Summary:   analytics.Summarize(seconds),
	}
	if a.cacheTTL > 0 {
		if err := a.cache.Set(ctx, cacheKey, stats, a.cacheTTL); err != nil {
			a.logger.Warn("analytics cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return stats, nil
}

func (a *ResponseTimeAnalyzer) canReadUser(actor domain.Actor, user *domain.UserProfile) bool {
	if !actor.IsActive {
		return false
	}
	if actor.ID == user.ID {
		return true
	}
	class, ok := a.permissions.Catalog().Classification(actor.Role)
	if !ok {
		return false
	}
	switch class {
	case domain.ClassificationAdmin:
		return true
	case domain.ClassificationManager:
		return user.DepartmentCode != nil && actor.InDepartment(*user.DepartmentCode)
	}
	return false
}

func validateDirection(direction *domain.ResponseDirection) error {
	if direction != nil && !direction.Valid() {
		return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "direction", Message: "must be to_requester or to_department"})
	}
	return nil
}

func statsCacheKey(scope, key string, window Window, direction *domain.ResponseDirection) string {
	dir := "all"
	if direction != nil {
		dir = string(*direction)
	}
	return fmt.Sprintf("analytics:%s:%s:%d:%d:%s", scope, key, window.From.Unix(), window.To.Unix(), dir)
}
