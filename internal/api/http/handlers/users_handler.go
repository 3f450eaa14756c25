package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/logistics-ticketing/internal/api/dto"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// UsersHandler exposes login and user administration endpoints.
type UsersHandler struct {
	authService *service.AuthService
	users       *service.UserService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(authService *service.AuthService, users *service.UserService) *UsersHandler {
	return &UsersHandler{authService: authService, users: users}
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": result.User,
			"auth": dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), actor, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// ChangePassword handles POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateUser handles POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), actor, service.CreateUserInput{
		Email:          req.Email,
		FullName:       req.FullName,
		Password:       req.Password,
		Role:           req.Role,
		DepartmentCode: req.DepartmentCode,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": user})
}

// GetUser handles GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// SetActive handles PUT /users/:id/active.
func (h *UsersHandler) SetActive(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.IsActive == nil {
		return apperrors.NewFieldValidationError(apperrors.FieldError{Field: "is_active", Message: "required"})
	}
	user, err := h.users.SetActive(c.UserContext(), actor, c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// ChangeRole handles PUT /users/:id/role.
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.ChangeRole(c.UserContext(), actor, c.Params("id"), req.Role, req.DepartmentCode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// ListRoles handles GET /roles.
func (h *UsersHandler) ListRoles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.users.ListRoles()})
}

// ListDepartments handles GET /departments.
func (h *UsersHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.users.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departments})
}
