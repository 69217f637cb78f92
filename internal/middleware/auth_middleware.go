package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
	ContextEmployeeID = "employee_id"
	ContextRole       = "user_role"
	ContextClaims     = "claims"

	// TokenCookie is the cookie login sets for browser clients.
	TokenCookie = "token"
)

// tokenFromRequest looks at the Authorization header, then the token cookie, then the
// token query parameter (browsers cannot set headers on WebSocket upgrades).
func tokenFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return "", false
		}
		return tokenString, true
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	if query := c.Query("token"); query != "" {
		return query, true
	}
	return "", true
}

func AuthMiddleware(tokens utils.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, wellFormed := tokenFromRequest(c)
		if !wellFormed {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format. Use: Bearer <token>",
			})
			c.Abort()
			return
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, tokens)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextEmployeeID, claims.EmployeeID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextClaims, claims)
}

// OptionalAuth stores the claims of a valid token and lets every request through,
// for public routes that behave differently for signed-in callers.
func OptionalAuth(tokens utils.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := tokenFromRequest(c); ok && tokenString != "" {
			if claims, err := utils.ValidateToken(tokenString, tokens); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}

// RequireRole lets through only the given roles. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			c.Abort()
			return
		}

		if r, ok := role.(models.Role); !ok || !slices.Contains(roles, r) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AccountLookup loads the stored account behind a token.
type AccountLookup interface {
	Get(ctx context.Context, employeeID string) (*models.Person, error)
}

// RequireAccountRole checks the stored account instead of the token claims, so a
// deactivated or demoted account loses access before its token expires. It must run
// after AuthMiddleware.
func RequireAccountRole(accounts AccountLookup, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID := c.GetString(ContextEmployeeID)
		if employeeID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			c.Abort()
			return
		}

		person, err := accounts.Get(c.Request.Context(), employeeID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrValidation) {
			logger.Log.Error("Failed to load account for role check",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
			c.Abort()
			return
		}
		if person == nil || !person.IsActive() {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Account is not active",
			})
			c.Abort()
			return
		}

		if !slices.Contains(roles, person.Role) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Set(ContextRole, person.Role)
		c.Next()
	}
}
