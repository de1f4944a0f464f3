// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const DefaultMessage = "API Executed Successfully"

// Envelope wraps every response body.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func New(success bool, message string, data any) Envelope {
	if message == "" && success {
		message = DefaultMessage
	}
	return Envelope{
		Success:   success,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, New(true, message, data))
}

func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, DefaultMessage, data)
}

func Created(c *gin.Context, data any) {
	JSON(c, http.StatusCreated, DefaultMessage, data)
}

// Error aborts the request with a failed envelope.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, New(false, message, nil))
}
