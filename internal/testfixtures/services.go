package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/analytics"
	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/repository/memstore"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/sla"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "correct-horse-battery"

var userCounter uint64

// Env wires the full service graph over an in-memory store.
type Env struct {
	Store       repository.Store
	Clock       *Clock
	Dispatcher  events.Dispatcher
	Permissions *auth.PermissionEngine
	Tokens      *auth.TokenManager
	Audit       *service.AuditLogger
	Codes       *service.TicketCodeGenerator
	SLA         *service.SLATracker
	Responses   *service.ResponseTimeAnalyzer
	Tickets     *service.TicketService
	Users       *service.UserService
	Auth        *service.AuthService
}

// EnvOption configures NewEnv.
type EnvOption func(*envOptions)

type envOptions struct {
	store    repository.Store
	clock    *Clock
	cache    analytics.Cache
	cacheTTL time.Duration
	policy   config.SLAPolicy
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) EnvOption {
	return func(o *envOptions) { o.store = store }
}

// WithClock overrides the clock.
func WithClock(clock *Clock) EnvOption {
	return func(o *envOptions) { o.clock = clock }
}

// WithCache enables analytics caching.
func WithCache(cache analytics.Cache, ttl time.Duration) EnvOption {
	return func(o *envOptions) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

// WithSLAPolicy overrides the SLA policy.
func WithSLAPolicy(policy config.SLAPolicy) EnvOption {
	return func(o *envOptions) { o.policy = policy }
}

// NewEnv constructs the environment. The calendar is 08:00-17:00 UTC, Monday
// to Friday, without holidays.
func NewEnv(opts ...EnvOption) *Env {
	o := &envOptions{policy: config.DefaultSLAPolicy()}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = memstore.New()
	}
	if o.clock == nil {
		o.clock = NewClock(time.Time{})
	}

	now := service.NowFunc(o.clock.Now)
	calendar := sla.DefaultCalendar()
	permissions := auth.NewPermissionEngine(auth.NewRoleCatalog())
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditLogger(now)
	tokens := auth.NewTokenManager("test-secret", 60)

	env := &Env{
		Store:       o.store,
		Clock:       o.clock,
		Dispatcher:  dispatcher,
		Permissions: permissions,
		Tokens:      tokens,
		Audit:       audit,
		Codes:       service.NewTicketCodeGenerator(calendar.Location()),
	}
	env.SLA = service.NewSLATracker(service.SLATrackerDependencies{
		Store:       o.store,
		Permissions: permissions,
		Calendar:    calendar,
		Policy:      sla.NewPolicy(o.policy),
		Audit:       audit,
		Dispatcher:  dispatcher,
		Now:         now,
	})
	env.Responses = service.NewResponseTimeAnalyzer(service.ResponseAnalyzerDependencies{
		Store:       o.store,
		Permissions: permissions,
		Calendar:    calendar,
		Cache:       o.cache,
		CacheTTL:    o.cacheTTL,
		Now:         now,
	})
	env.Tickets = service.NewTicketService(service.TicketDependencies{
		Store:       o.store,
		Permissions: permissions,
		Codes:       env.Codes,
		SLA:         env.SLA,
		Responses:   env.Responses,
		Audit:       audit,
		Dispatcher:  dispatcher,
		Now:         now,
	})
	env.Users = service.NewUserService(service.UserDependencies{
		Store:       o.store,
		Permissions: permissions,
		Audit:       audit,
		Dispatcher:  dispatcher,
		BcryptCost:  4,
		Now:         now,
	})
	env.Auth = service.NewAuthService(service.AuthDependencies{
		Store:      o.store,
		Tokens:     tokens,
		Audit:      audit,
		BcryptCost: 4,
		Now:        now,
	})
	return env
}

// CreateUser stores an active user with the role's home department and
// returns the matching actor.
func (e *Env) CreateUser(role domain.RoleName) domain.Actor {
	var dept *domain.DepartmentCode
	if def, ok := e.Permissions.Catalog().Lookup(role); ok && def.HomeDepartment != nil {
		code := *def.HomeDepartment
		dept = &code
	}
	return e.CreateUserIn(role, dept)
}

// CreateUserIn stores an active user in an explicit department.
func (e *Env) CreateUserIn(role domain.RoleName, dept *domain.DepartmentCode) domain.Actor {
	idx := atomic.AddUint64(&userCounter, 1)
	hash, err := auth.HashPassword(TestPassword, 4)
	if err != nil {
		panic(err)
	}
	now := e.Clock.Now()
	user := &domain.UserProfile{
		ID:             fmt.Sprintf("user-%03d", idx),
		Email:          fmt.Sprintf("user-%03d@example.com", idx),
		FullName:       fmt.Sprintf("User %03d", idx),
		PasswordHash:   hash,
		Role:           role,
		DepartmentCode: dept,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Store.Repos().Users.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return domain.ActorFromProfile(user)
}

// NewRFQ creates an RFQ ticket in dept on behalf of actor.
func (e *Env) NewRFQ(actor domain.Actor, dept domain.DepartmentCode) *domain.Ticket {
	return e.newTicket(actor, domain.TicketTypeRFQ, dept)
}

// NewGEN creates a general inquiry in dept on behalf of actor.
func (e *Env) NewGEN(actor domain.Actor, dept domain.DepartmentCode) *domain.Ticket {
	return e.newTicket(actor, domain.TicketTypeGEN, dept)
}

func (e *Env) newTicket(actor domain.Actor, ticketType domain.TicketType, dept domain.DepartmentCode) *domain.Ticket {
	ticket, err := e.Tickets.CreateTicket(context.Background(), actor, service.TicketCreateInput{
		Type:           ticketType,
		DepartmentCode: dept,
		Priority:       domain.TicketPriorityMedium,
		Title:          "Fixture " + string(ticketType),
		Description:    "created by fixture",
	})
	if err != nil {
		panic(err)
	}
	return ticket
}
