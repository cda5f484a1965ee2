package respond

import (
	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/telemetry"
)

// ErrorResponse is the failure envelope shared by every endpoint.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Mensaje string `json:"mensaje"`
	Code    string `json:"code,omitempty"`
}

// Error logs and aborts with {ok:false, mensaje, code}.
func Error(c *gin.Context, status int, code, message string) {
	telemetry.Error("http.error", map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
		"owner_id":   c.Param("ownerId"),
	})

	c.AbortWithStatusJSON(status, ErrorResponse{OK: false, Mensaje: message, Code: code})
}
