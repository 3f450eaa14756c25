package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Repos returns pool-bound repositories.
func (s *PostgresStore) Repos() Repositories {
	return newRepositories(s.pool)
}

// WithinTx runs fn inside a read-committed transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Departments: &departmentRepository{db: db},
		Tickets:     &ticketRepository{db: db},
		Events:      &ticketEventRepository{db: db},
		SLA:         &slaRepository{db: db},
		Sequences:   &sequenceRepository{db: db},
		Attachments: &attachmentRepository{db: db},
		Quotes:      &quoteRepository{db: db},
		Audit:       &auditRepository{db: db},
	}
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func dateKey(day time.Time) string {
	return day.Format("2006-01-02")
}
