package repository

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type auditRepository struct {
	db DBTX
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (id, table_name, record_id, action, actor_id, before_snapshot, after_snapshot, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.TableName,
		entry.RecordID,
		string(entry.Action),
		entry.ActorID,
		nullableJSON(entry.Before),
		nullableJSON(entry.After),
		entry.CreatedAt,
	)
	return translate(err)
}

func (r *auditRepository) ListByRecord(ctx context.Context, tableName, recordID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, table_name, record_id, action, actor_id, before_snapshot, after_snapshot, created_at
        FROM audit_log WHERE table_name=$1 AND record_id=$2 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, tableName, recordID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var (
			entry         domain.AuditLogEntry
			action        string
			before, after []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TableName,
			&entry.RecordID,
			&action,
			&entry.ActorID,
			&before,
			&after,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Action = domain.AuditAction(action)
		entry.Before = before
		entry.After = after
		result = append(result, entry)
	}
	return result, rows.Err()
}

func nullableJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
