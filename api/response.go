package api

import (
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

func respondValidation(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message, Details: validationDetails(err)})
}
