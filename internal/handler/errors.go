package handler

import (
	"errors"
	"net/http"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error category to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Storage and other unexpected failures are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.ContextRequestID)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string, err error) {
	logger.Log.Warn("Request parsing failed",
		zap.String("path", c.FullPath()),
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
