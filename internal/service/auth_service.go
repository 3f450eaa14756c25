package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// AuthService coordinates login and password flows.
type AuthService struct {
	store      repository.Store
	tokens     *auth.TokenManager
	audit      *AuditLogger
	bcryptCost int
	logger     *zap.Logger
	now        NowFunc
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store      repository.Store
	Tokens     *auth.TokenManager
	Audit      *AuditLogger
	BcryptCost int
	Logger     *zap.Logger
	Now        NowFunc
}

// LoginResult is a signed access token for an authenticated user.
type LoginResult struct {
	User      *domain.UserProfile `json:"user"`
	Token     string              `json:"access_token"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		store:      deps.Store,
		tokens:     deps.Tokens,
		audit:      deps.Audit,
		bcryptCost: deps.BcryptCost,
		logger:     loggerOrNop(deps.Logger),
		now:        nowOrDefault(deps.Now),
	}
}

// Login authenticates by email and password. Unknown emails, wrong passwords
// and deactivated accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	user, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		s.logger.Info("login rejected for inactive user", zap.String("user_id", user.ID))
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	if !actor.IsActive {
		return apperrors.NewForbidden("user is inactive")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "new_password", Message: err.Error()})
		}
		return apperrors.NewInternalError(err)
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return storeError(err, "user", map[string]any{"id": actor.ID})
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		before := *user
		user.PasswordHash = hash
		user.UpdatedAt = s.now()
		if err := repos.Users.Update(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"id": actor.ID})
		}
		return s.audit.Record(ctx, repos.Audit, actor.ID, tableUsers, user.ID, domain.AuditActionUpdate, before, user)
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
