package handler

import (
	"net/http"
	"time"

	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	personService *service.PersonService
}

func NewAuthHandler(personService *service.PersonService) *AuthHandler {
	return &AuthHandler{
		personService: personService,
	}
}

type RegisterRequest struct {
	EmployeeID string `json:"employeeId" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Role       string `json:"role"`
}

type LoginRequest struct {
	EmployeeID string `json:"employeeId" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// PersonResponse is the public view of an account; the password hash never leaves the server.
type PersonResponse struct {
	EmployeeID string      `json:"employeeId"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	IsActive   bool        `json:"isActive"`
	CreatedOn  time.Time   `json:"createdOn"`
	ModifiedOn time.Time   `json:"modifiedOn"`
}

func toPersonResponse(p *models.Person) PersonResponse {
	return PersonResponse{
		EmployeeID: p.EmployeeID,
		Name:       p.Name,
		Email:      p.Email,
		Role:       p.Role,
		IsActive:   p.IsActive(),
		CreatedOn:  p.CreatedAt,
		ModifiedOn: p.UpdatedAt,
	}
}

// Register handles POST /api/auth/register. Anyone may create an Employee account;
// a Manager account needs a signed-in manager.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	logger.Log.Info("Registration attempt",
		zap.String("employee_id", req.EmployeeID),
		zap.String("ip", c.ClientIP()),
	)

	if role, err := models.ParseRole(req.Role); err == nil && role == models.RoleManager && !h.callerIsManager(c) {
		logger.Log.Warn("Manager registration refused",
			zap.String("employee_id", req.EmployeeID),
			zap.String("ip", c.ClientIP()),
		)
		c.JSON(http.StatusForbidden, gin.H{"error": "only a manager can register a manager account"})
		return
	}

	outcome, person, err := h.personService.Register(c.Request.Context(), service.RegisterInput{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if outcome == service.OutcomeReactivated {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"message": outcome.Message(),
		"person":  toPersonResponse(person),
	})
}

// callerIsManager checks the stored account of the signed-in caller, if any.
func (h *AuthHandler) callerIsManager(c *gin.Context) bool {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return false
	}
	person, err := h.personService.Get(c.Request.Context(), claims.EmployeeID)
	if err != nil {
		return false
	}
	return person.IsActive() && person.Role == models.RoleManager
}

// Login handles POST /api/auth/login. The token goes into an HTTP-only cookie for the
// dashboard and into the body for API clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	person, token, err := h.personService.Login(c.Request.Context(), req.EmployeeID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode) // CSRF protection
	c.SetCookie(
		middleware.TokenCookie,
		token,
		int(h.personService.TokenTTL().Seconds()),
		"/",
		"",                             // domain (empty = current domain)
		h.personService.IsProduction(), // secure (HTTPS-only in production)
		true,                           // httpOnly (JavaScript cannot access)
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"person":  toPersonResponse(person),
	})
}

// Logout handles POST /api/auth/logout by expiring the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.personService.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
