package middleware

import (
	"time"

	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestLogger tags each request with an id and logs one line when it completes.
// An incoming X-Request-ID is kept so ids can be followed across services.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		}
		if employeeID := c.GetString(ContextEmployeeID); employeeID != "" {
			fields = append(fields, zap.String("employee_id", employeeID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Log.Error("Request failed", fields...)
		case status >= 400:
			logger.Log.Warn("Request rejected", fields...)
		default:
			logger.Log.Info("Request handled", fields...)
		}
	}
}
