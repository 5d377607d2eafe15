package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/services"
)

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrSessionExpired),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidLogin):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error envelope and aborts the chain.
// Unclassified errors are logged and hidden behind a generic message.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// RespondOK writes a success envelope merged with the given fields.
func RespondOK(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}
