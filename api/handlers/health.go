package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is any dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports 503 when the post store is unreachable. Optional
// dependencies are reported but never fail the check.
func HealthHandler(store Pinger, optional map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down", "error": err.Error()})
			return
		}

		resp := gin.H{"status": "ok", "database": "up"}
		for name, p := range optional {
			if err := p.Ping(ctx); err != nil {
				resp[name] = "down"
			} else {
				resp[name] = "up"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
