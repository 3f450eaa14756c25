package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

const ticketColumns = `id, code, ticket_type, status, priority, department_code, created_by, assigned_to,
               title, description, type_data, close_outcome, close_reason, close_note, project_date,
               created_at, updated_at, first_response_at, resolved_at, closed_at`

type ticketRepository struct {
	db DBTX
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	typeData, err := domain.MarshalTypeData(ticket.TypeData)
	if err != nil {
		return fmt.Errorf("encode type data: %w", err)
	}
	const query = `
        INSERT INTO tickets (id, code, ticket_type, status, priority, department_code, created_by, assigned_to,
            title, description, type_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`
	_, err = r.db.Exec(ctx, query,
		ticket.ID,
		ticket.Code,
		string(ticket.Type),
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.DepartmentCode),
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.Title,
		ticket.Description,
		typeData,
		ticket.CreatedAt,
	)
	if err == nil {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	return translate(err)
}

// Update writes every mutable column. department_code and created_by are never updated.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	typeData, err := domain.MarshalTypeData(ticket.TypeData)
	if err != nil {
		return fmt.Errorf("encode type data: %w", err)
	}
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assigned_to=$3, title=$4, description=$5, type_data=$6,
            close_outcome=$7, close_reason=$8, close_note=$9, project_date=$10, updated_at=$11,
            first_response_at=$12, resolved_at=$13, closed_at=$14
        WHERE id=$15`
	cmd, err := r.db.Exec(ctx, query,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedTo,
		ticket.Title,
		ticket.Description,
		typeData,
		outcomeArg(ticket.CloseOutcome),
		reasonArg(ticket.CloseReason),
		ticket.CloseNote,
		ticket.ProjectDate,
		ticket.UpdatedAt,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code=$1`, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                             domain.Ticket
		ticketType, status, priority, dept string
		typeData                           []byte
		outcome, reason                    *string
		projectDate                        *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticketType,
		&status,
		&priority,
		&dept,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Title,
		&ticket.Description,
		&typeData,
		&outcome,
		&reason,
		&ticket.CloseNote,
		&projectDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	ticket.Type = domain.TicketType(ticketType)
	parsed, ok := domain.ParseTicketStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown status %q for ticket %s", status, ticket.ID)
	}
	ticket.Status = parsed
	ticket.Priority = domain.TicketPriority(priority)
	ticket.DepartmentCode = domain.DepartmentCode(dept)
	ticket.ProjectDate = projectDate
	if outcome != nil {
		o := domain.CloseOutcome(*outcome)
		ticket.CloseOutcome = &o
	}
	if reason != nil {
		lr := domain.LostReason(*reason)
		ticket.CloseReason = &lr
	}
	data, err := domain.UnmarshalTypeData(typeData)
	if err != nil {
		return nil, fmt.Errorf("decode type data for ticket %s: %w", ticket.ID, err)
	}
	ticket.TypeData = data
	return &ticket, nil
}

func outcomeArg(o *domain.CloseOutcome) *string {
	if o == nil {
		return nil
	}
	v := string(*o)
	return &v
}

func reasonArg(r *domain.LostReason) *string {
	if r == nil {
		return nil
	}
	v := string(*r)
	return &v
}

// buildTicketListQuery orders by code after created_at so that OFFSET
// pages are stable when creation times collide.
func buildTicketListQuery(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DepartmentCode != nil {
		args = append(args, string(*filter.DepartmentCode))
		clauses = append(clauses, fmt.Sprintf("department_code=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, string(t))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("ticket_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.VisibleToUser != nil {
		args = append(args, *filter.VisibleToUser)
		user := fmt.Sprintf("$%d", len(args))
		scope := fmt.Sprintf("created_by=%s OR assigned_to=%s", user, user)
		if filter.VisibleDepartment != nil {
			args = append(args, string(*filter.VisibleDepartment))
			scope += fmt.Sprintf(" OR department_code=$%d", len(args))
		}
		clauses = append(clauses, "("+scope+")")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	return fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, code DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset), args
}
