package dto

import (
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Email          string                 `json:"email"`
	FullName       string                 `json:"full_name"`
	Password       string                 `json:"password"`
	Role           domain.RoleName        `json:"role"`
	DepartmentCode *domain.DepartmentCode `json:"department_code"`
}

// SetActiveRequest payload.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role           domain.RoleName        `json:"role"`
	DepartmentCode *domain.DepartmentCode `json:"department_code"`
}
