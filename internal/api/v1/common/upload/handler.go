package upload

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
)

// Handler issues temporary OSS credentials so clients can upload character
// source videos directly to the bucket.
type Handler struct {
	cfg   services.OSSConfig
	issue func(services.OSSConfig) (*services.STSCredentials, error)
}

func NewHandler(cfg services.OSSConfig) *Handler {
	return &Handler{cfg: cfg, issue: services.GetOSSTSToken}
}

// GetOSSToken godoc
// @Summary Get OSS STS Token
// @Description Get STS token for uploading files to Alibaba Cloud OSS
// @Tags upload
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.STSCredentials}
// @Failure 500 {object} utils.Response
// @Router /api/video/upload/token [get]
func (h *Handler) GetOSSToken(c *gin.Context) {
	token, err := h.issue(h.cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to get OSS token: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("OSS token retrieved successfully", token))
}
