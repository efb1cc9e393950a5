package metrics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many apps as they
// like without duplicate registration panics.
type Metrics struct {
	Registry *prometheus.Registry
	Requests *prometheus.CounterVec
	AdminOps *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketadmin",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		AdminOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketadmin",
			Name:      "admin_operations_total",
			Help:      "Admin operations by name and outcome.",
		}, []string{"operation", "outcome"}),
	}
	m.Registry.MustRegister(m.Requests, m.AdminOps)
	return m
}

// Middleware counts every request once the handler chain has finished.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		// fiber reuses the request buffers; labels outlive the request.
		m.Requests.WithLabelValues(utils.CopyString(c.Method()), utils.CopyString(c.Route().Path), strconv.Itoa(status)).Inc()
		return err
	}
}

// Op records the outcome ("ok", "denied", "not_found", "invalid", "error")
// of an admin operation.
func (m *Metrics) Op(operation, outcome string) {
	if m == nil {
		return
	}
	m.AdminOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
