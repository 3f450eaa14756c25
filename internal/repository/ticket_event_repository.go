package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type ticketEventRepository struct {
	db DBTX
}

func (r *ticketEventRepository) Create(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, author_id, kind, body, from_status, to_status, created_at,
            response_direction, response_time_seconds)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.TicketID,
		event.AuthorID,
		string(event.Kind),
		event.Body,
		statusArg(event.FromStatus),
		statusArg(event.ToStatus),
		event.CreatedAt,
		directionArg(event.ResponseDirection),
		event.ResponseTimeSeconds,
	)
	return translate(err)
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, author_id, kind, body, from_status, to_status, created_at,
               response_direction, response_time_seconds
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var (
			event            domain.TicketEvent
			kind             string
			from, to, direct *string
		)
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.AuthorID,
			&kind,
			&event.Body,
			&from,
			&to,
			&event.CreatedAt,
			&direct,
			&event.ResponseTimeSeconds,
		); err != nil {
			return nil, err
		}
		event.Kind = domain.EventKind(kind)
		if from != nil {
			s := domain.TicketStatus(*from)
			event.FromStatus = &s
		}
		if to != nil {
			s := domain.TicketStatus(*to)
			event.ToStatus = &s
		}
		if direct != nil {
			d := domain.ResponseDirection(*direct)
			event.ResponseDirection = &d
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

func (r *ticketEventRepository) ListResponses(ctx context.Context, filter ResponseFilter) ([]ResponseSample, error) {
	args := []any{filter.From, filter.To}
	clauses := []string{
		"e.response_time_seconds IS NOT NULL",
		"e.response_direction IS NOT NULL",
		"e.created_at >= $1",
		"e.created_at < $2",
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		clauses = append(clauses, fmt.Sprintf("e.author_id=$%d", len(args)))
	}
	if filter.DepartmentCode != nil {
		args = append(args, string(*filter.DepartmentCode))
		clauses = append(clauses, fmt.Sprintf("t.department_code=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("e.ticket_id=$%d", len(args)))
	}
	if filter.Direction != nil {
		args = append(args, string(*filter.Direction))
		clauses = append(clauses, fmt.Sprintf("e.response_direction=$%d", len(args)))
	}

	query := `SELECT e.id, e.ticket_id, e.author_id, t.department_code, e.response_direction,
                     e.response_time_seconds, e.created_at
              FROM ticket_events e JOIN tickets t ON t.id = e.ticket_id
              WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY e.created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []ResponseSample
	for rows.Next() {
		var (
			sample          ResponseSample
			dept, direction string
		)
		if err := rows.Scan(
			&sample.EventID,
			&sample.TicketID,
			&sample.AuthorID,
			&dept,
			&direction,
			&sample.Seconds,
			&sample.CreatedAt,
		); err != nil {
			return nil, err
		}
		sample.DepartmentCode = domain.DepartmentCode(dept)
		sample.Direction = domain.ResponseDirection(direction)
		result = append(result, sample)
	}
	return result, rows.Err()
}

func statusArg(s *domain.TicketStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func directionArg(d *domain.ResponseDirection) *string {
	if d == nil {
		return nil
	}
	v := string(*d)
	return &v
}
