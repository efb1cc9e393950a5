package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"marketadmin/internal/metrics"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := metrics.New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Handler())

	for i := 0; i < 2; i++ {
		if _, err := app.Test(httptest.NewRequest("GET", "/ping", nil)); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/ping", "200")); got != 2 {
		t.Fatalf("requests = %v", got)
	}

	m.Op("services.create", "ok")
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `marketadmin_admin_operations_total{operation="services.create",outcome="ok"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}

func TestMiddlewareLabelsSurviveLaterRequests(t *testing.T) {
	m := metrics.New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Delete("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, method := range []string{"GET", "DELETE", "GET"} {
		if _, err := app.Test(httptest.NewRequest(method, "/items/1", nil)); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/items/:id", "200")); got != 2 {
		t.Fatalf("GET requests = %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("DELETE", "/items/:id", "200")); got != 1 {
		t.Fatalf("DELETE requests = %v", got)
	}
	if n := testutil.CollectAndCount(m.Requests); n != 2 {
		t.Fatalf("expected 2 label sets, got %d", n)
	}
}

func TestOpIsNilSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Op("access.admin", "denied")
}
