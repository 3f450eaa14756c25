package repository

import (
	"context"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type sequenceRepository struct {
	db DBTX
}

// Next relies on the upsert row lock: concurrent callers for the same key
// queue on the row until the holding transaction commits or rolls back.
func (r *sequenceRepository) Next(ctx context.Context, ticketType domain.TicketType, dept domain.DepartmentCode, day time.Time) (int, error) {
	const query = `
        INSERT INTO ticket_sequences (ticket_type, department_code, seq_date, last_value)
        VALUES ($1, $2, $3::date, 1)
        ON CONFLICT (ticket_type, department_code, seq_date)
        DO UPDATE SET last_value = ticket_sequences.last_value + 1
        RETURNING last_value`
	var next int
	if err := r.db.QueryRow(ctx, query, string(ticketType), string(dept), dateKey(day)).Scan(&next); err != nil {
		return 0, translate(err)
	}
	return next, nil
}
