package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/validate"
)

const msgServerError = "Something went wrong. Please try again."

const errBadBody = errors.ConstError("Malformed request body")

var statuses = []struct {
	target  error
	status  int
	outcome string
}{
	{domain.ErrUnauthorized, fiber.StatusForbidden, "denied"},
	{domain.ErrUserNotDeletable, fiber.StatusForbidden, "denied"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "denied"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrServiceNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrAgentServiceNotFound, fiber.StatusNotFound, "not_found"},
	{errBadBody, fiber.StatusBadRequest, "invalid"},
}

// fail writes the JSON error response for err and records the outcome of op.
func fail(c *fiber.Ctx, m *metrics.Metrics, op string, err error) error {
	var ve validate.Errors
	if errors.As(err, &ve) {
		m.Op(op, "invalid")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": ve.Error(), "errors": ve})
	}
	for _, s := range statuses {
		if errors.Is(err, s.target) {
			m.Op(op, s.outcome)
			return c.Status(s.status).JSON(fiber.Map{"error": s.target.Error()})
		}
	}

	m.Op(op, "error")
	c.Status(fiber.StatusInternalServerError)
	applog.Error(c, op+".fail", err, nil)
	msg := msgServerError
	if errors.Is(err, domain.ErrVerificationFailed) {
		msg = domain.ErrVerificationFailed.Error()
	}
	return c.JSON(fiber.Map{"error": msg})
}

// ErrorHandler is the app-wide fallback. It never echoes internal error text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgServerError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	}
	c.Status(code)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	return c.JSON(fiber.Map{"error": msg})
}

// bind decodes a JSON, urlencoded or multipart body into out. An empty body
// leaves out untouched.
func bind(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		applog.Security(c, "request.body.reject", map[string]any{"reason": err.Error()})
		return errBadBody
	}
	return nil
}

// pathID returns the :id route parameter. A malformed id cannot name any
// record, so it is reported as notFound.
func pathID(c *fiber.Ctx, notFound error) (string, error) {
	raw := c.Params("id")
	id, ok := validate.ID(raw)
	if !ok {
		applog.Security(c, "request.id.reject", map[string]any{"id": utils.CopyString(raw)})
		return "", notFound
	}
	return utils.CopyString(id), nil
}

// formFile returns the first uploaded file for field, or nil.
func formFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	if files := form.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}
