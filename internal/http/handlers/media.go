package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "marketadmin/internal/log"
	"marketadmin/internal/storage"
)

// Media serves files written by a local store at /media/*. Traversal
// attempts get a plain 404.
func Media(files *storage.Local) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref := c.Params("*")
		full, err := files.Path(ref)
		if err != nil {
			applog.Security(c, "media.traversal.block", map[string]any{"path": ref})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(full, true)
	}
}
