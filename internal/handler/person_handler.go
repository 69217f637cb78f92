package handler

import (
	"net/http"
	"strconv"

	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PersonHandler serves the manager-only account administration endpoints.
type PersonHandler struct {
	personService *service.PersonService
}

func NewPersonHandler(personService *service.PersonService) *PersonHandler {
	return &PersonHandler{
		personService: personService,
	}
}

type UpdatePersonRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// List handles GET /api/people?role=&active=
func (h *PersonHandler) List(c *gin.Context) {
	var role *models.Role
	if raw := c.Query("role"); raw != "" {
		parsed, err := models.ParseRole(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		role = &parsed
	}

	var active *bool
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "active must be true or false", err)
			return
		}
		active = &parsed
	}

	people, err := h.personService.List(c.Request.Context(), role, active)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PersonResponse, 0, len(people))
	for i := range people {
		out = append(out, toPersonResponse(&people[i]))
	}
	c.JSON(http.StatusOK, gin.H{"people": out})
}

// Get handles GET /api/people/:employeeId
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.personService.Get(c.Request.Context(), c.Param("employeeId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"person": toPersonResponse(person)})
}

// Update handles PUT /api/people/:employeeId
func (h *PersonHandler) Update(c *gin.Context) {
	var req UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	person, err := h.personService.Update(c.Request.Context(), c.Param("employeeId"), service.PersonUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"person": toPersonResponse(person)})
}

// Delete handles DELETE /api/people/:employeeId (soft delete)
func (h *PersonHandler) Delete(c *gin.Context) {
	employeeID := c.Param("employeeId")

	logger.Log.Info("Manager deactivating account",
		zap.String("manager_id", c.GetString(middleware.ContextEmployeeID)),
		zap.String("employee_id", employeeID),
	)

	if err := h.personService.Delete(c.Request.Context(), employeeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Person deactivated"})
}
