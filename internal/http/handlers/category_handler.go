package handlers

import (
	"github.com/gofiber/fiber/v2"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/services"
)

// CategoryHandler serves the service catalog.
type CategoryHandler struct {
	Catalog *services.CatalogService
	Metrics *metrics.Metrics
}

func (h *CategoryHandler) input(c *fiber.Ctx) (services.ServiceInput, error) {
	var in services.ServiceInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	in.Image = formFile(c, "image")
	return in, nil
}

// POST /api/admin/services
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	in, err := h.input(c)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.create", err)
	}
	svc, err := h.Catalog.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.create", err)
	}
	applog.Audit(c, "admin.services.create", map[string]any{
		"service_id":    svc.ID,
		"category_name": svc.CategoryName,
	})
	h.Metrics.Op("admin.services.create", "ok")
	return c.JSON(fiber.Map{"message": "Service created successfully", "service": svc})
}

// GET /api/services/category/:categoryType?
func (h *CategoryHandler) ListByCategory(c *fiber.Ctx) error {
	raw := c.Params("categoryType")
	if raw == "" {
		raw = c.Query("category_type")
	}
	list, ok, err := h.Catalog.ListByCategory(c.UserContext(), raw)
	if err != nil {
		return fail(c, h.Metrics, "services.list", err)
	}
	if !ok {
		h.Metrics.Op("services.list", "invalid")
		return c.JSON(fiber.Map{"message": "Invalid or no category type provided."})
	}
	h.Metrics.Op("services.list", "ok")
	return c.JSON(fiber.Map{"services": list})
}

// GET /api/admin/services/:id
func (h *CategoryHandler) View(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.view", err)
	}
	svc, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.view", err)
	}
	h.Metrics.Op("admin.services.view", "ok")
	return c.JSON(fiber.Map{"service": svc})
}

// PUT|POST /api/admin/services/:id
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.update", err)
	}
	in, err := h.input(c)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.update", err)
	}
	svc, err := h.Catalog.Update(c.UserContext(), id, in)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.update", err)
	}
	applog.Audit(c, "admin.services.update", map[string]any{"service_id": svc.ID})
	h.Metrics.Op("admin.services.update", "ok")
	return c.JSON(fiber.Map{"message": "Service updated successfully", "service": svc})
}

// DELETE /api/admin/services/:id
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, domain.ErrServiceNotFound)
	if err != nil {
		return fail(c, h.Metrics, "admin.services.delete", err)
	}
	if err := h.Catalog.Delete(c.UserContext(), id); err != nil {
		return fail(c, h.Metrics, "admin.services.delete", err)
	}
	applog.Audit(c, "admin.services.delete", map[string]any{"service_id": id})
	h.Metrics.Op("admin.services.delete", "ok")
	return c.JSON(fiber.Map{"message": "Service deleted successfully"})
}
