package studio

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/api/v1/common"
	"witweb-studio/internal/utils"
)

// GetConfig godoc
// @Summary Read the provider settings
// @Tags config
// @Produce json
// @Success 200 {object} services.ConfigView
// @Router /config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	view, err := h.engine.Config.Get(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetAPIKey godoc
// @Summary Replace the provider API key
// @Tags config
// @Accept json
// @Produce json
// @Param request body APIKeyRequest true "API key"
// @Success 200 {object} OKResponse
// @Router /config/api-key [post]
func (h *Handler) SetAPIKey(c *gin.Context) {
	var req APIKeyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.respondOK(c, h.engine.Config.SetAPIKey(c.Request.Context(), req.APIKey))
}

// SetToken godoc
// @Summary Replace the account token used for credit queries
// @Tags config
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Account token"
// @Success 200 {object} OKResponse
// @Router /config/token [post]
func (h *Handler) SetToken(c *gin.Context) {
	var req TokenRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.respondOK(c, h.engine.Config.SetToken(c.Request.Context(), req.Token))
}

// SetQueryDefaults godoc
// @Summary Merge saved query defaults
// @Tags config
// @Accept json
// @Produce json
// @Param request body QueryDefaultsRequest true "Defaults to merge"
// @Success 200 {object} OKResponse
// @Router /config/query-defaults [post]
func (h *Handler) SetQueryDefaults(c *gin.Context) {
	var req QueryDefaultsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.respondOK(c, h.engine.Config.SetQueryDefaults(c.Request.Context(), req.Data))
}

// SetHostMode godoc
// @Summary Choose which provider hosts are tried
// @Tags config
// @Accept json
// @Produce json
// @Param request body HostModeRequest true "auto, domestic or overseas"
// @Success 200 {object} OKResponse
// @Failure 400 {object} utils.Response
// @Router /config/host-mode [post]
func (h *Handler) SetHostMode(c *gin.Context) {
	var req HostModeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.respondOK(c, h.engine.Config.SetHostMode(c.Request.Context(), req.HostMode))
}

func (h *Handler) respondOK(c *gin.Context, err error) {
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
