package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/remediation-review/internal/domain"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. Admins pass
// every role check.
func RequireRole(allowed ...domain.ReviewerRole) fiber.Handler {
	allowedSet := make(map[domain.ReviewerRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 || principal.Role == domain.RoleAdmin {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
