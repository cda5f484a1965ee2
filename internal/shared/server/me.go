package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/server/middleware"
	"tenant-validation/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor.ID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "identidad requerida")
		return
	}
	respond.OK(c, actor)
}
