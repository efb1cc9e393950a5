package handlers

import (
	"github.com/gofiber/fiber/v2"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/services"
)

type ListingHandler struct {
	Listings *services.ListingService
	Metrics  *metrics.Metrics
}

func (h *ListingHandler) input(c *fiber.Ctx) (services.ListingInput, error) {
	var in services.ListingInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	in.FeaturedImage = formFile(c, "featured_image")
	in.BannerImage = formFile(c, "banner_image")
	return in, nil
}

// POST /api/admin/agent-services
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	in, err := h.input(c)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.create", err)
	}
	a, err := h.Listings.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.create", err)
	}
	applog.Audit(c, "admin.listings.create", map[string]any{"listing_id": a.ID, "user_id": a.UserID})
	h.Metrics.Op("admin.listings.create", "ok")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Agent service created successfully", "agent_service": a})
}

// GET /api/admin/agent-services?user_id=
func (h *ListingHandler) List(c *fiber.Ctx) error {
	list, err := h.Listings.List(c.UserContext(), c.Query("user_id"))
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.list", err)
	}
	h.Metrics.Op("admin.listings.list", "ok")
	return c.JSON(fiber.Map{"agent_services": list})
}

func (h *ListingHandler) View(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrAgentServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.view", err)
	}
	a, err := h.Listings.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.view", err)
	}
	h.Metrics.Op("admin.listings.view", "ok")
	return c.JSON(fiber.Map{"agent_service": a})
}

func (h *ListingHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrAgentServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.update", err)
	}
	in, err := h.input(c)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.update", err)
	}
	a, err := h.Listings.Update(c.UserContext(), id, in)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.update", err)
	}
	applog.Audit(c, "admin.listings.update", map[string]any{"listing_id": a.ID})
	h.Metrics.Op("admin.listings.update", "ok")
	return c.JSON(fiber.Map{"message": "Agent service updated successfully", "agent_service": a})
}

func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrAgentServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.listings.delete", err)
	}
	if err := h.Listings.Delete(c.UserContext(), id); err != nil {
		return fail(c, h.Metrics, "admin.listings.delete", err)
	}
	applog.Audit(c, "admin.listings.delete", map[string]any{"listing_id": id})
	h.Metrics.Op("admin.listings.delete", "ok")
	return c.JSON(fiber.Map{"message": "Agent service deleted successfully"})
}
