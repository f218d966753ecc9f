package utils

import "github.com/gin-gonic/gin"

// Response is the envelope used for errors and for endpoints that wrap their
// payload. Data is always present and null when there is nothing to return.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func NewResponse(status int, message string, data interface{}) Response {
	return Response{Status: status, Message: message, Data: data}
}

// NewSuccessResponse wraps data with status 200
func NewSuccessResponse(message string, data interface{}) Response {
	return NewResponse(200, message, data)
}

func NewErrorResponse(status int, message string) Response {
	return NewResponse(status, message, nil)
}

// Abort writes an error envelope and stops the handler chain
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(status, message))
}
