package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Auth(nil, "dev"), Logging())
	router.POST("/api/v1/owners/:ownerId/validations/:category/run", func(c *gin.Context) {
		c.Set("verdict", "OK")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/owner-3/validations/income/run", nil)
	req.Header.Set("X-Actor-Id", "admin-1")
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	want := map[string]any{
		"msg":        "request.complete",
		"request_id": "req-42",
		"actor_id":   "admin-1",
		"owner_id":   "owner-3",
		"category":   "income",
		"verdict":    "OK",
	}
	for key, val := range want {
		if payload[key] != val {
			t.Fatalf("log field %s: expected %v, got %v", key, val, payload[key])
		}
	}
	if _, ok := payload["duration_ms"]; !ok {
		t.Fatalf("missing duration_ms")
	}
}
