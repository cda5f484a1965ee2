package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/documents"
	"tenant-validation/internal/health"
	"tenant-validation/internal/owners"
	"tenant-validation/internal/shared/config"
	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/server/middleware"
	"tenant-validation/internal/shared/server/respond"
	"tenant-validation/internal/validation"
)

// RouterDeps holds the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	Verifier          middleware.TokenVerifier
	Health            *health.Service
	DocumentsHandler  *documents.Handler
	OwnersHandler     *owners.Handler
	ValidationHandler *validation.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Verifier, deps.Config.Env),
		middleware.RateLimit(middleware.NewLimiter(nil), quotas(deps.Config), middleware.ExternalGroup),
	)
	api.GET("/health", func(c *gin.Context) {
		ok, checks := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	})

	registerMeRoutes(api)

	if deps.OwnersHandler != nil {
		deps.OwnersHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.ValidationHandler != nil {
		deps.ValidationHandler.RegisterRoutes(api)
	}
	return r
}

func quotas(cfg config.Config) map[string]middleware.Quota {
	return map[string]middleware.Quota{
		middleware.GroupDefault:  {Rate: cfg.RateLimitDefaultRPS, Burst: cfg.RateLimitDefaultBurst},
		middleware.GroupExternal: {Rate: cfg.RateLimitExternalRPS, Burst: cfg.RateLimitExternalBurst},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
