package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/telemetry"
)

// Logging emits one structured line per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		actor := ActorFromContext(c)
		verdict, _ := c.Get("verdict")
		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"actor_id":    actor.ID,
			"owner_id":    c.Param("ownerId"),
			"category":    c.Param("category"),
			"verdict":     verdict,
			"client_ip":   c.ClientIP(),
		})
	}
}
