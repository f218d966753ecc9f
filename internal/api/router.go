package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"witweb-studio/config"
	_ "witweb-studio/docs"
	"witweb-studio/internal/api/v1/common/upload"
	"witweb-studio/internal/api/v1/studio"
	"witweb-studio/internal/api/v1/video"
	"witweb-studio/internal/middleware"
	"witweb-studio/internal/services"
)

// NewRouter mounts the studio surface at the root and the owner-scoped video
// API under /api/video.
func NewRouter(cfg *config.Config, engine *services.Engine) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	}))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.Static("/downloads", engine.Store.Dir())

	studio.RegisterRoutes(router, studio.NewHandler(engine))
	video.RegisterRoutes(router, video.NewHandler(engine), cfg.JWTSecret)

	if cfg.OSSEnabled {
		upload.RegisterRoutes(router, upload.NewHandler(services.OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			Region:          cfg.OSSRegion,
			BucketName:      cfg.OSSBucketName,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			RoleArn:         cfg.OSSRoleArn,
		}), cfg.JWTSecret)
	}

	return router
}
