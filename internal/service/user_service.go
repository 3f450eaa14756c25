package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// UserService manages user accounts and their role assignments.
type UserService struct {
	store       repository.Store
	permissions *auth.PermissionEngine
	audit       *AuditLogger
	dispatcher  events.Dispatcher
	bcryptCost  int
	logger      *zap.Logger
	now         NowFunc
}

// UserDependencies encapsulates requirements for user management.
type UserDependencies struct {
	Store       repository.Store
	Permissions *auth.PermissionEngine
	Audit       *AuditLogger
	Dispatcher  events.Dispatcher
	BcryptCost  int
	Logger      *zap.Logger
	Now         NowFunc
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Email          string
	FullName       string
	Password       string
	Role           domain.RoleName
	DepartmentCode *domain.DepartmentCode
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		store:       deps.Store,
		permissions: deps.Permissions,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		bcryptCost:  deps.BcryptCost,
		logger:      loggerOrNop(deps.Logger),
		now:         nowOrDefault(deps.Now),
	}
}

// CreateUser registers an account. Only admins may.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Actor, input CreateUserInput) (*domain.UserProfile, error) {
	if !s.permissions.CanPerform(actor, auth.OpUserManage, auth.Resource{}) {
		return nil, apperrors.NewForbidden("not allowed to manage users")
	}
	return s.createUser(ctx, actor.ID, input)
}

// SeedAdmin creates the first super admin, or returns the existing account
// with that email unchanged.
func (s *UserService) SeedAdmin(ctx context.Context, email, fullName, password string) (*domain.UserProfile, bool, error) {
	existing, err := s.store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperrors.NewPersistenceError(err)
	}
	user, err := s.createUser(ctx, systemActorID, CreateUserInput{
		Email:    email,
		FullName: fullName,
		Password: password,
		Role:     domain.RoleSuperAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *UserService) createUser(ctx context.Context, actorID string, input CreateUserInput) (*domain.UserProfile, error) {
	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	var fields []apperrors.FieldError
	if email == "" || !strings.Contains(email, "@") {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "must be a valid email"})
	}
	if fullName == "" {
		fields = append(fields, apperrors.FieldError{Field: "full_name", Message: "required"})
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: err.Error()})
	}
	dept, roleFields := s.resolveRoleDepartment(input.Role, input.DepartmentCode)
	fields = append(fields, roleFields...)
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields...)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now()
	user := &domain.UserProfile{
		ID:             uuid.NewString(),
		Email:          email,
		FullName:       fullName,
		PasswordHash:   hash,
		Role:           input.Role,
		DepartmentCode: dept,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"email": email})
		}
		return s.audit.Record(ctx, repos.Audit, actorID, tableUsers, user.ID, domain.AuditActionCreate, nil, user)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// resolveRoleDepartment validates a role and defaults the department to the
// role's home department. Admins carry no department.
func (s *UserService) resolveRoleDepartment(role domain.RoleName, dept *domain.DepartmentCode) (*domain.DepartmentCode, []apperrors.FieldError) {
	def, ok := s.permissions.Catalog().Lookup(role)
	if !ok {
		return nil, []apperrors.FieldError{{Field: "role", Message: "unknown role"}}
	}
	if def.Classification == domain.ClassificationAdmin {
		return nil, nil
	}
	if dept == nil {
		if def.HomeDepartment == nil {
			return nil, []apperrors.FieldError{{Field: "department_code", Message: "required for this role"}}
		}
		return ptr(*def.HomeDepartment), nil
	}
	if !dept.Valid() {
		return nil, []apperrors.FieldError{{Field: "department_code", Message: "unknown department"}}
	}
	return ptr(*dept), nil
}

// GetUser returns a profile. Users can read themselves; admins anyone.
func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, userID string) (*domain.UserProfile, error) {
	if actor.ID != userID && !s.permissions.CanPerform(actor, auth.OpUserManage, auth.Resource{}) {
		return nil, apperrors.NewForbidden("not allowed to view this user")
	}
	user, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"id": userID})
	}
	return user, nil
}

// SetActive activates or deactivates an account. Deactivation takes effect on
// the user's next request.
func (s *UserService) SetActive(ctx context.Context, actor domain.Actor, userID string, active bool) (*domain.UserProfile, error) {
	if !active && actor.ID == userID {
		return nil, apperrors.NewValidationError("cannot deactivate yourself", nil)
	}
	return s.mutate(ctx, actor, userID, func(user *domain.UserProfile) error {
		user.IsActive = active
		return nil
	})
}

// ChangeRole moves a user to another role and department.
func (s *UserService) ChangeRole(ctx context.Context, actor domain.Actor, userID string, role domain.RoleName, dept *domain.DepartmentCode) (*domain.UserProfile, error) {
	resolved, fields := s.resolveRoleDepartment(role, dept)
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields...)
	}
	return s.mutate(ctx, actor, userID, func(user *domain.UserProfile) error {
		user.Role = role
		user.DepartmentCode = resolved
		return nil
	})
}

func (s *UserService) mutate(ctx context.Context, actor domain.Actor, userID string, change func(*domain.UserProfile) error) (*domain.UserProfile, error) {
	var user *domain.UserProfile
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return storeError(err, "user", map[string]any{"id": userID})
		}
		if !s.permissions.CanPerform(actor, auth.OpUserManage, auth.UserResource(user)) {
			return apperrors.NewForbidden("not allowed to manage users")
		}
		before := *user
		if err := change(user); err != nil {
			return err
		}
		user.UpdatedAt = s.now()
		if err := repos.Users.Update(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"id": userID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableUsers, user.ID, domain.AuditActionUpdate, before, user)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:    events.EventUserUpdated,
		ActorID: actor.ID,
		Payload: events.UserUpdatedPayload{UserID: user.ID, Role: user.Role, IsActive: user.IsActive},
	})
	return user, nil
}

// ListRoles returns the role catalog.
func (s *UserService) ListRoles() []domain.Role {
	return s.permissions.Catalog().Roles()
}

// ListDepartments returns department reference data.
func (s *UserService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	departments, err := s.store.Repos().Departments.List(ctx)
	if err != nil {
		return nil, storeError(err, "departments", nil)
	}
	return departments, nil
}
