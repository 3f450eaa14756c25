package repository

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type slaRepository struct {
	db DBTX
}

func (r *slaRepository) Create(ctx context.Context, record *domain.SLARecord) error {
	const query = `
        INSERT INTO sla_records (ticket_id, first_response_target_hours, first_response_met, resolution_target_hours, resolution_met)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.db.Exec(ctx, query,
		record.TicketID,
		record.FirstResponseTargetHours,
		record.FirstResponseMet,
		record.ResolutionTargetHours,
		record.ResolutionMet,
	)
	return translate(err)
}

func (r *slaRepository) Update(ctx context.Context, record *domain.SLARecord) error {
	const query = `
        UPDATE sla_records SET first_response_target_hours=$1, first_response_met=$2,
            resolution_target_hours=$3, resolution_met=$4
        WHERE ticket_id=$5`
	cmd, err := r.db.Exec(ctx, query,
		record.FirstResponseTargetHours,
		record.FirstResponseMet,
		record.ResolutionTargetHours,
		record.ResolutionMet,
		record.TicketID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *slaRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SLARecord, error) {
	const query = `
        SELECT ticket_id, first_response_target_hours, first_response_met, resolution_target_hours, resolution_met
        FROM sla_records WHERE ticket_id=$1`
	var record domain.SLARecord
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&record.TicketID,
		&record.FirstResponseTargetHours,
		&record.FirstResponseMet,
		&record.ResolutionTargetHours,
		&record.ResolutionMet,
	); err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *slaRepository) ListByTickets(ctx context.Context, ticketIDs []string) (map[string]domain.SLARecord, error) {
	result := make(map[string]domain.SLARecord, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT ticket_id, first_response_target_hours, first_response_met, resolution_target_hours, resolution_met
        FROM sla_records WHERE ticket_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	for rows.Next() {
		var record domain.SLARecord
		if err := rows.Scan(
			&record.TicketID,
			&record.FirstResponseTargetHours,
			&record.FirstResponseMet,
			&record.ResolutionTargetHours,
			&record.ResolutionMet,
		); err != nil {
			return nil, err
		}
		result[record.TicketID] = record
	}
	return result, rows.Err()
}
