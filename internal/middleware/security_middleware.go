package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Stop browsers from guessing content types
		c.Header("X-Content-Type-Options", "nosniff")

		// The API is never framed
		c.Header("X-Frame-Options", "DENY")

		// Legacy browsers only, CSP covers modern ones
		c.Header("X-XSS-Protection", "1; mode=block")

		// JSON API: nothing to load except the dashboard's own websocket feed
		c.Header("Content-Security-Policy",
			"default-src 'none'; "+
				"connect-src 'self' ws: wss:; "+
				"frame-ancestors 'none';",
		)

		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Header("Permissions-Policy",
			"camera=(), microphone=(), geolocation=(), payment=()",
		)

		c.Next()
	}
}

// HSTSMiddleware enforces HTTPS (only for production)
func HSTSMiddleware(isProduction bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProduction {
			// max-age: 1 year
			c.Header("Strict-Transport-Security",
				"max-age=31536000; includeSubDomains; preload",
			)
		}
		c.Next()
	}
}
