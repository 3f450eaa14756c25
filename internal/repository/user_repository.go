package repository

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

type userRepository struct {
	db DBTX
}

const userColumns = `id, email, full_name, password_hash, role_name, department_code, is_active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.UserProfile) error {
	const query = `
        INSERT INTO users (id, email, full_name, password_hash, role_name, department_code, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		string(user.Role),
		deptArg(user.DepartmentCode),
		user.IsActive,
		user.CreatedAt,
	)
	if err == nil {
		user.UpdatedAt = user.CreatedAt
	}
	return translate(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.UserProfile) error {
	const query = `
        UPDATE users SET email=$1, full_name=$2, password_hash=$3, role_name=$4, department_code=$5, is_active=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.db.Exec(ctx, query,
		user.Email,
		user.FullName,
		user.PasswordHash,
		string(user.Role),
		deptArg(user.DepartmentCode),
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.UserProfile, error) {
	var (
		user domain.UserProfile
		role string
		dept *string
	)
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&role,
		&dept,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	user.Role = domain.RoleName(role)
	user.DepartmentCode = deptPtr(dept)
	return &user, nil
}

func deptArg(code *domain.DepartmentCode) *string {
	if code == nil {
		return nil
	}
	v := string(*code)
	return &v
}

func deptPtr(raw *string) *domain.DepartmentCode {
	if raw == nil {
		return nil
	}
	code := domain.DepartmentCode(*raw)
	return &code
}
