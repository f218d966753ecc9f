package video

import (
	"github.com/gin-gonic/gin"

	"witweb-studio/internal/middleware"
)

func RegisterRoutes(router gin.IRouter, h *Handler, secret string) {
	video := router.Group("/api/video")
	video.Use(middleware.AuthMiddleware(secret))
	{
		video.POST("/generate", h.GenerateVideo)
		video.POST("/upload-character", h.UploadCharacter)
		video.POST("/create-character", h.CreateCharacter)
		video.GET("/tasks", h.ListTasks)
		video.GET("/tasks/:id", h.GetTask)
		video.GET("/characters", h.ListCharacters)
	}
}
