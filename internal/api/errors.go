package api

import (
	"github.com/gin-gonic/gin"
)

// Error codes returned in the error field of failed responses
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeImageTooLarge = "IMAGE_TOO_LARGE"
	CodeRateLimited   = "RATE_LIMITED"
	CodeQueueFull     = "QUEUE_FULL"
	CodeTaskNotFound  = "TASK_NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

const (
	headerUserID = "x-user-id"
	ctxUserID    = "user_id"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}
