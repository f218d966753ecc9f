package studio

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router gin.IRouter, h *Handler) {
	router.POST("/generate", h.Generate)
	router.POST("/generate/start", h.StartGenerate)
	router.POST("/generate/finalize", h.Finalize)
	router.POST("/result", h.Result)

	character := router.Group("/character")
	{
		character.POST("/upload", h.UploadCharacter)
		character.POST("/upload/start", h.StartUploadCharacter)
		character.POST("/create", h.CreateCharacter)
		character.POST("/create/start", h.StartCreateCharacter)
	}

	tasks := router.Group("/tasks/active")
	{
		tasks.GET("", h.ActiveTasks)
		tasks.POST("/remove", h.RemoveActiveTask)
	}

	router.GET("/history", h.History)
	router.GET("/videos", h.Videos)
	router.POST("/videos/delete", h.DeleteVideo)

	cfg := router.Group("/config")
	{
		cfg.GET("", h.GetConfig)
		cfg.POST("/api-key", h.SetAPIKey)
		cfg.POST("/token", h.SetToken)
		cfg.POST("/query-defaults", h.SetQueryDefaults)
		cfg.POST("/host-mode", h.SetHostMode)
	}

	router.GET("/credits", h.SavedCredits)
	router.POST("/openapi/credits", h.Credits)
	router.POST("/openapi/api-key-credits", h.APIKeyCredits)
	router.POST("/openapi/create-api-key", h.CreateAPIKey)
	router.POST("/model-status", h.ModelStatus)
}
