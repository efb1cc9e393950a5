package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/services"
)

const callerKey = "caller"

// Authenticate resolves a bearer token to the caller on every request. A
// missing or rejected token leaves the request anonymous.
func Authenticate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			return c.Next()
		}
		caller, err := auth.CurrentCaller(c.UserContext(), strings.TrimSpace(tok))
		if err != nil {
			applog.Security(c, "auth.token.reject", map[string]any{"reason": err.Error()})
			return c.Next()
		}
		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// CallerFrom returns the authenticated caller or nil.
func CallerFrom(c *fiber.Ctx) *domain.Caller {
	u, _ := c.Locals(callerKey).(*domain.Caller)
	return u
}

// RequireRole admits only callers holding role. Everyone else, anonymous
// callers included, gets 403 before the handler runs and is counted as a
// denied "access.<role>" operation.
func RequireRole(role string, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CallerFrom(c).HasRole(role) {
			m.Op("access."+role, "denied")
			c.Status(fiber.StatusForbidden)
			applog.Security(c, "access.denied", map[string]any{"required_role": role})
			return c.JSON(fiber.Map{"error": domain.ErrUnauthorized.Error()})
		}
		return c.Next()
	}
}
