// Package apierr turns service errors into JSON error responses
package apierr

import (
	"bitwise74/dropgate/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Status maps a service error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

var messages = map[int]string{
	http.StatusNotFound:     "File not found",
	http.StatusGone:         "File expired",
	http.StatusUnauthorized: "Invalid credentials",
	http.StatusForbidden:    "Forbidden",
}

// Abort writes the error response for err and stops the handler chain.
// Server side errors are logged and their details never reach the client.
func Abort(c *gin.Context, err error, msg string) {
	requestID := c.GetString("requestID")
	code := Status(err)

	switch {
	case code == http.StatusBadRequest:
		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
	case code >= http.StatusInternalServerError:
		c.AbortWithStatusJSON(code, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
	default:
		c.AbortWithStatusJSON(code, gin.H{
			"error":     messages[code],
			"requestID": requestID,
		})
	}
}
