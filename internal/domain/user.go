package domain

import "time"

// UserProfile is the internal user account used for authorization.
type UserProfile struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	FullName       string          `json:"full_name"`
	PasswordHash   string          `json:"-"`
	Role           RoleName        `json:"role"`
	DepartmentCode *DepartmentCode `json:"department_code,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Actor is the identity on whose behalf an operation runs.
type Actor struct {
	ID             string
	Role           RoleName
	DepartmentCode *DepartmentCode
	IsActive       bool
}

// ActorFromProfile derives an Actor from a stored profile.
func ActorFromProfile(u *UserProfile) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		ID:             u.ID,
		Role:           u.Role,
		DepartmentCode: u.DepartmentCode,
		IsActive:       u.IsActive,
	}
}

// InDepartment reports whether the actor belongs to the given department.
func (a Actor) InDepartment(code DepartmentCode) bool {
	return a.DepartmentCode != nil && *a.DepartmentCode == code
}
