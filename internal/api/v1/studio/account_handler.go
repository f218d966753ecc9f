package studio

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/api/v1/common"
	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
)

func writeRaw(c *gin.Context, data json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// SavedCredits godoc
// @Summary Credits of the saved account token
// @Description Never fails; errors are reported as {credits:null,error}
// @Tags account
// @Produce json
// @Success 200 {object} object
// @Router /credits [get]
func (h *Handler) SavedCredits(c *gin.Context) {
	writeRaw(c, h.engine.Account.SavedCredits(c.Request.Context()))
}

// Credits godoc
// @Summary Credits of an account token
// @Tags account
// @Accept json
// @Produce json
// @Param request body CreditsRequest true "Account token"
// @Success 200 {object} object
// @Failure 502 {object} utils.Response
// @Router /openapi/credits [post]
func (h *Handler) Credits(c *gin.Context) {
	var req CreditsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	data, err := h.engine.Account.Credits(c.Request.Context(), req.Token)
	h.respondRaw(c, data, err)
}

// APIKeyCredits godoc
// @Summary Credits of an API key
// @Tags account
// @Accept json
// @Produce json
// @Param request body APIKeyCreditsRequest true "API key"
// @Success 200 {object} object
// @Failure 502 {object} utils.Response
// @Router /openapi/api-key-credits [post]
func (h *Handler) APIKeyCredits(c *gin.Context) {
	var req APIKeyCreditsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	data, err := h.engine.Account.APIKeyCredits(c.Request.Context(), req.APIKey)
	h.respondRaw(c, data, err)
}

// CreateAPIKey godoc
// @Summary Create a provider API key
// @Tags account
// @Accept json
// @Produce json
// @Param request body services.CreateAPIKeyRequest true "Key parameters"
// @Success 200 {object} object
// @Failure 502 {object} utils.Response
// @Router /openapi/create-api-key [post]
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req services.CreateAPIKeyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	data, err := h.engine.Account.CreateAPIKey(c.Request.Context(), req)
	h.respondRaw(c, data, err)
}

// ModelStatus godoc
// @Summary Availability of a provider model
// @Tags account
// @Accept json
// @Produce json
// @Param request body ModelStatusRequest true "Model name"
// @Success 200 {object} object
// @Failure 502 {object} utils.Response
// @Router /model-status [post]
func (h *Handler) ModelStatus(c *gin.Context) {
	var req ModelStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	data, err := h.engine.Account.ModelStatus(c.Request.Context(), req.Model)
	h.respondRaw(c, data, err)
}

func (h *Handler) respondRaw(c *gin.Context, data json.RawMessage, err error) {
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	writeRaw(c, data)
}
