package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voltmesh/voltmesh/internal/observability/telemetry"
)

// Metrics records request latency per route and status. The route pattern is
// used rather than the raw path to keep label cardinality bounded.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
		}
		telemetry.HTTPRequestDuration.
			WithLabelValues(path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		return err
	}
}
