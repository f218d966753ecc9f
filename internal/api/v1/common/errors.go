package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/provider"
	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
)

// StatusFor maps a service error to the HTTP status returned for it
func StatusFor(err error) int {
	var exhausted *provider.ExhaustedError
	var failed *services.TaskFailedError
	switch {
	case errors.Is(err, services.ErrInvalidHostMode),
		errors.Is(err, services.ErrInvalidVideoName),
		errors.Is(err, services.ErrMissingToken):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrFinalizeInProgress):
		return http.StatusConflict
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted),
		errors.Is(err, services.ErrMissingTaskID),
		errors.Is(err, services.ErrEmptyResult):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// AbortWithError writes err in the response envelope and records it on the context
func AbortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	c.Error(err)
	c.AbortWithStatusJSON(status, utils.NewErrorResponse(status, err.Error()))
}

// AbortWithTask is AbortWithError for submissions that may have created a
// remote job before failing. A non-empty id is returned in the envelope data.
func AbortWithTask(c *gin.Context, id string, err error) {
	if id == "" {
		AbortWithError(c, err)
		return
	}
	status := StatusFor(err)
	c.Error(err)
	c.AbortWithStatusJSON(status, utils.NewResponse(status, err.Error(), gin.H{"id": id}))
}
