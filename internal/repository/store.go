package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Users       UserRepository
	Departments DepartmentRepository
	Tickets     TicketRepository
	Events      TicketEventRepository
	SLA         SLARepository
	Sequences   SequenceRepository
	Attachments AttachmentRepository
	Quotes      QuoteRepository
	Audit       AuditRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	// Repos returns repositories outside of any transaction.
	Repos() Repositories
	// WithinTx runs fn in a single transaction. Any error rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	DepartmentCode *domain.DepartmentCode
	CreatedBy      *string
	AssignedTo     *string
	Statuses       []domain.TicketStatus
	Types          []domain.TicketType
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	// Visibility restricts results to tickets the user created or is assigned,
	// plus every ticket of VisibleDepartment when set.
	VisibleToUser     *string
	VisibleDepartment *domain.DepartmentCode
	Limit             int
	Offset            int
}

// ResponseFilter selects attributed responses for analytics.
type ResponseFilter struct {
	AuthorID       *string
	DepartmentCode *domain.DepartmentCode
	TicketID       *string
	Direction      *domain.ResponseDirection
	From           time.Time
	To             time.Time
}

// ResponseSample is one attributed response.
type ResponseSample struct {
	EventID        string
	TicketID       string
	AuthorID       string
	DepartmentCode domain.DepartmentCode
	Direction      domain.ResponseDirection
	Seconds        int64
	CreatedAt      time.Time
}

// UserRepository defines persistence access for user profiles.
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserProfile) error
	Update(ctx context.Context, user *domain.UserProfile) error
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
}

// DepartmentRepository reads department reference data.
type DepartmentRepository interface {
	GetByCode(ctx context.Context, code domain.DepartmentCode) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate reads the ticket and holds its row lock until the
	// transaction ends. Read-modify-write paths inside WithinTx must use it.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// TicketEventRepository stores the append-only ticket timeline.
type TicketEventRepository interface {
	Create(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error)
	ListResponses(ctx context.Context, filter ResponseFilter) ([]ResponseSample, error)
}

// SLARepository stores one SLA record per ticket.
type SLARepository interface {
	Create(ctx context.Context, record *domain.SLARecord) error
	Update(ctx context.Context, record *domain.SLARecord) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.SLARecord, error)
	ListByTickets(ctx context.Context, ticketIDs []string) (map[string]domain.SLARecord, error)
}

// SequenceRepository issues per-(type, department, day) ticket sequences.
type SequenceRepository interface {
	// Next atomically increments and returns the counter. Within a transaction
	// the increment is rolled back together with the caller's writes.
	Next(ctx context.Context, ticketType domain.TicketType, dept domain.DepartmentCode, day time.Time) (int, error)
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

// QuoteRepository persists quotes.
type QuoteRepository interface {
	Create(ctx context.Context, quote *domain.Quote) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error)
}

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByRecord(ctx context.Context, tableName, recordID string) ([]domain.AuditLogEntry, error)
}
