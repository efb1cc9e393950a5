package handlers

import (
	"github.com/gofiber/fiber/v2"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/services"
)

// AdminHandler serves the user directory: users, agents and email
// verification.
type AdminHandler struct {
	Users   *services.UserService
	Metrics *metrics.Metrics
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Users.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, h.Metrics, "admin.users.list", err)
	}
	h.Metrics.Op("admin.users.list", "ok")
	return c.JSON(fiber.Map{"users": users})
}

// GET /api/admin/agents
func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.Users.ListAgents(c.UserContext())
	if err != nil {
		return fail(c, h.Metrics, "admin.agents.list", err)
	}
	h.Metrics.Op("admin.agents.list", "ok")
	return c.JSON(fiber.Map{"agents": agents})
}

// POST /api/admin/agents
func (h *AdminHandler) RegisterAgent(c *fiber.Ctx) error {
	var in services.RegisterAgentInput
	if err := bind(c, &in); err != nil {
		return fail(c, h.Metrics, "admin.agents.register", err)
	}
	u, err := h.Users.RegisterAgent(c.UserContext(), in)
	if err != nil {
		return fail(c, h.Metrics, "admin.agents.register", err)
	}
	applog.Audit(c, "admin.agents.register", map[string]any{
		"admin_id": CallerFrom(c).ID,
		"user_id":  u.ID,
	})
	h.Metrics.Op("admin.agents.register", "ok")
	return c.JSON(fiber.Map{"message": "Verification Request Sent!"})
}

// DELETE /api/admin/users/:id
// Admin accounts cannot be deleted through this endpoint.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrUserNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.users.delete", err)
	}
	roles, err := h.Users.DeleteUser(c.UserContext(), id)
	if err != nil {
		return fail(c, h.Metrics, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{
		"admin_id": CallerFrom(c).ID,
		"user_id":  id,
		"roles":    roles,
		"msg":      "User deleted successfully",
	})
	h.Metrics.Op("admin.users.delete", "ok")
	return c.JSON(fiber.Map{
		"message":            "User deleted successfully",
		"deleted_user_roles": roles,
	})
}

type verifyInput struct {
	Email string `json:"email" form:"email" query:"email"`
}

// GET|POST /api/verify-email
// The email may come from the body or the query string.
func (h *AdminHandler) VerifyEmail(c *fiber.Ctx) error {
	var in verifyInput
	if err := bind(c, &in); err != nil {
		return fail(c, h.Metrics, "users.verify", err)
	}
	if in.Email == "" {
		in.Email = c.Query("email")
	}
	out, err := h.Users.VerifyEmail(c.UserContext(), in.Email)
	if err != nil {
		return fail(c, h.Metrics, "users.verify", err)
	}
	if out == services.AlreadyVerified {
		h.Metrics.Op("users.verify", "noop")
		return c.JSON(fiber.Map{"message": "Email already verified"})
	}
	applog.Audit(c, "users.verify", map[string]any{"email": in.Email})
	h.Metrics.Op("users.verify", "ok")
	return c.JSON(fiber.Map{"message": "Email verified successfully"})
}
