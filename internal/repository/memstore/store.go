// Package memstore is an in-process implementation of repository.Store used
// for local development without Postgres and for tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
)

type sequenceKey struct {
	ticketType domain.TicketType
	dept       domain.DepartmentCode
	day        string
}

type state struct {
	users       map[string]domain.UserProfile
	departments map[domain.DepartmentCode]domain.Department
	tickets     map[string]domain.Ticket
	events      []domain.TicketEvent
	sla         map[string]domain.SLARecord
	sequences   map[sequenceKey]int
	attachments map[string]domain.Attachment
	quotes      []domain.Quote
	audit       []domain.AuditLogEntry
}

func newState() *state {
	return &state{
		users:       map[string]domain.UserProfile{},
		departments: map[domain.DepartmentCode]domain.Department{},
		tickets:     map[string]domain.Ticket{},
		sla:         map[string]domain.SLARecord{},
		sequences:   map[sequenceKey]int{},
		attachments: map[string]domain.Attachment{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[string]domain.UserProfile, len(s.users)),
		departments: make(map[domain.DepartmentCode]domain.Department, len(s.departments)),
		tickets:     make(map[string]domain.Ticket, len(s.tickets)),
		events:      append([]domain.TicketEvent(nil), s.events...),
		sla:         make(map[string]domain.SLARecord, len(s.sla)),
		sequences:   make(map[sequenceKey]int, len(s.sequences)),
		attachments: make(map[string]domain.Attachment, len(s.attachments)),
		quotes:      append([]domain.Quote(nil), s.quotes...),
		audit:       append([]domain.AuditLogEntry(nil), s.audit...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.sla {
		c.sla[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	return c
}

// DefaultDepartments mirrors the rows seeded by the initial migration.
var DefaultDepartments = []domain.Department{
	{Code: domain.DepartmentMarketing, Name: "Marketing", DefaultSLAHours: 48},
	{Code: domain.DepartmentSales, Name: "Sales", DefaultSLAHours: 24},
	{Code: domain.DepartmentDomestics, Name: "Domestics Operations", DefaultSLAHours: 24},
	{Code: domain.DepartmentExim, Name: "Exim Operations", DefaultSLAHours: 48},
	{Code: domain.DepartmentImportDTD, Name: "Import DTD Operations", DefaultSLAHours: 48},
	{Code: domain.DepartmentWarehouseTraffic, Name: "Warehouse & Traffic Operations", DefaultSLAHours: 24},
}

// Store keeps every table in memory. Transactions are serialized and run
// against a copy of the state that replaces the live one only on success.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New returns a store seeded with the default departments.
func New() *Store {
	st := newState()
	for _, dept := range DefaultDepartments {
		dept.CreatedAt = time.Time{}
		st.departments[dept.Code] = dept
	}
	return &Store{state: st}
}

// Repos returns repositories that lock the store for each call.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(func(fn func(*state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
}

// WithinTx runs fn against a private copy of the state. Callers must use the
// repositories passed to fn; calling Repos inside fn deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	repos := newRepositories(func(apply func(*state) error) error {
		return apply(working)
	})
	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.state = working
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

type runner func(fn func(*state) error) error

func newRepositories(run runner) repository.Repositories {
	return repository.Repositories{
		Users:       &userRepository{run: run},
		Departments: &departmentRepository{run: run},
		Tickets:     &ticketRepository{run: run},
		Events:      &eventRepository{run: run},
		SLA:         &slaRepository{run: run},
		Sequences:   &sequenceRepository{run: run},
		Attachments: &attachmentRepository{run: run},
		Quotes:      &quoteRepository{run: run},
		Audit:       &auditRepository{run: run},
	}
}

var _ repository.Store = (*Store)(nil)
