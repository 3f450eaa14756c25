package repository

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type quoteRepository struct {
	db DBTX
}

func (r *quoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	const query = `
        INSERT INTO quotes (id, ticket_id, event_id, created_by, amount_minor, currency, valid_until, notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Exec(ctx, query,
		quote.ID,
		quote.TicketID,
		quote.EventID,
		quote.CreatedBy,
		quote.AmountMinor,
		quote.Currency,
		quote.ValidUntil,
		quote.Notes,
		quote.CreatedAt,
	)
	return translate(err)
}

func (r *quoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error) {
	const query = `
        SELECT id, ticket_id, event_id, created_by, amount_minor, currency, valid_until, notes, created_at
        FROM quotes WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Quote
	for rows.Next() {
		var quote domain.Quote
		if err := rows.Scan(
			&quote.ID,
			&quote.TicketID,
			&quote.EventID,
			&quote.CreatedBy,
			&quote.AmountMinor,
			&quote.Currency,
			&quote.ValidUntil,
			&quote.Notes,
			&quote.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, quote)
	}
	return result, rows.Err()
}
