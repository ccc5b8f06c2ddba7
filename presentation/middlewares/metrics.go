package middlewares

import (
	"strconv"
	"time"

	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency labelled by route
// template, so path parameters do not explode label cardinality.
func MetricsMiddleware(m metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		ctx := c.Request.Context()

		m.IncrementCounter(ctx, metrics.HTTPRequestsTotal,
			"method", c.Request.Method, "route", route, "status", status)
		m.RecordHistogram(ctx, metrics.HTTPRequestDuration, time.Since(start).Seconds(),
			"method", c.Request.Method, "route", route)
	}
}
