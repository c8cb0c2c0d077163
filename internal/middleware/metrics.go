package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-surveillance-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request by route template. Requests that match no
// route share one label so random paths cannot blow up series cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
