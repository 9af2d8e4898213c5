package middleware

import (
	"strconv"
	"time"

	"service-cryptorates/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latencies per route. The route
// template is used as the path label so parameterized paths do not blow
// up label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
