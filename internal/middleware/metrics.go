package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the Prometheus exposition is served.
const MetricsPath = "/metrics"

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the Prometheus request instrumentation for the named service.
// The collectors live in the default registry, so every caller shares one instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request counts and latencies. Scrapes of the
// metrics endpoint itself are skipped.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == MetricsPath {
			return c.Next()
		}
		return p.Middleware(c)
	}
}

// MetricsHandler serves the default registry in the text exposition format.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
