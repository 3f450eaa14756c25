package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireCapability rejects callers whose role lacks the capability before
// the handler runs. Resource-level rules are still evaluated by services.
func RequireCapability(catalog *RoleCatalog, capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		actor := principal.Actor()
		if !actor.IsActive {
			return apperrors.NewForbidden("user is inactive")
		}
		if class, known := catalog.Classification(actor.Role); known && class == domain.ClassificationAdmin {
			return c.Next()
		}
		if !catalog.HasCapability(actor.Role, capability) {
			return apperrors.NewForbidden("missing capability " + string(capability))
		}
		return c.Next()
	}
}
