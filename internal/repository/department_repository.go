package repository

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type departmentRepository struct {
	db DBTX
}

func (r *departmentRepository) GetByCode(ctx context.Context, code domain.DepartmentCode) (*domain.Department, error) {
	const query = `
        SELECT code, name, default_sla_hours, created_at
        FROM departments WHERE code=$1`
	var (
		dept domain.Department
		raw  string
	)
	if err := r.db.QueryRow(ctx, query, string(code)).Scan(
		&raw,
		&dept.Name,
		&dept.DefaultSLAHours,
		&dept.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	dept.Code = domain.DepartmentCode(raw)
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT code, name, default_sla_hours, created_at
        FROM departments ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var (
			dept domain.Department
			raw  string
		)
		if err := rows.Scan(&raw, &dept.Name, &dept.DefaultSLAHours, &dept.CreatedAt); err != nil {
			return nil, err
		}
		dept.Code = domain.DepartmentCode(raw)
		result = append(result, dept)
	}
	return result, rows.Err()
}
