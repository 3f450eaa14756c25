package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parseWindow(c *fiber.Ctx) (service.Window, error) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return service.Window{}, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "from", Message: "must be RFC3339"})
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return service.Window{}, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "to", Message: "must be RFC3339"})
	}
	var window service.Window
	if from != nil {
		window.From = *from
	}
	if to != nil {
		window.To = *to
	}
	return window, nil
}

func parseDirection(c *fiber.Ctx) *domain.ResponseDirection {
	raw := strings.TrimSpace(c.Query("direction"))
	if raw == "" {
		return nil
	}
	direction := domain.ResponseDirection(raw)
	return &direction
}
