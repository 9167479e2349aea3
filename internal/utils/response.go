package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint answers with. Code is set on
// failures only and names the error kind ("validation", "not_found", ...).
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func SendCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
}

// SendNoContent answers deletions; 204 carries no envelope.
func SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func SendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{Message: message, Code: code})
}

func SendValidationError(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, "validation", message)
}

// AbortUnauthorized stops the handler chain. Used by the auth middleware.
func AbortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, APIResponse{Message: message, Code: "unauthorized"})
}
