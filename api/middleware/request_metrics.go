package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"autoblog/metrics"
)

// RequestMetrics counts requests by route template so ids do not explode
// label cardinality.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
