package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/gin-gonic/gin"
)

type ChartHandler struct {
	chartService *service.ChartService
}

func NewChartHandler(chartService *service.ChartService) *ChartHandler {
	return &ChartHandler{
		chartService: chartService,
	}
}

// Daily handles GET /api/charts/daily?days=
func (h *ChartHandler) Daily(c *gin.Context) {
	days := service.DefaultChartDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "days must be a number", err)
			return
		}
		days = parsed
	}

	points, err := h.chartService.DailyEmissions(c.Request.Context(), days, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// Distribution handles GET /api/charts/distribution
func (h *ChartHandler) Distribution(c *gin.Context) {
	shares, err := h.chartService.WasteDistribution(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares})
}

// Facilities handles GET /api/charts/facilities
func (h *ChartHandler) Facilities(c *gin.Context) {
	chart, err := h.chartService.FacilityAmounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}
