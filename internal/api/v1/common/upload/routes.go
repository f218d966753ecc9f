package upload

import (
	"github.com/gin-gonic/gin"

	"witweb-studio/internal/middleware"
)

func RegisterRoutes(router gin.IRouter, h *Handler, secret string) {
	group := router.Group("/api/video/upload")
	group.Use(middleware.AuthMiddleware(secret))
	{
		group.GET("/token", h.GetOSSToken)
	}
}
