package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/services"
	"marketadmin/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

type loginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginInput
	if err := bind(c, &in); err != nil {
		return fail(c, h.Metrics, "auth.login", err)
	}
	v := validate.Errors{}
	email := v.Required("email", in.Email, validate.MaxString)
	if in.Password == "" {
		v.Add("password", "The password field is required.")
	}
	if err := v.Err(); err != nil {
		return fail(c, h.Metrics, "auth.login", err)
	}

	tok, u, err := h.Auth.Login(c.UserContext(), email, in.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": email})
		return fail(c, h.Metrics, "auth.login", err)
	}
	applog.Audit(c, "auth.login.success", map[string]any{"user_id": u.ID})
	h.Metrics.Op("auth.login", "ok")
	return c.JSON(fiber.Map{"token": tok, "token_type": "Bearer", "user": u})
}
