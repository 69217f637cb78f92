package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// ReportRequest is the body of POST and PUT /api/wastereports. wasteDate accepts RFC 3339
// or a zone-less local time such as 2024-05-01T10:23.
type ReportRequest struct {
	WasteType               string   `json:"wasteType" binding:"required"`
	WasteProcessingFacility string   `json:"wasteProcessingFacility" binding:"required"`
	WasteAmount             *float64 `json:"wasteAmount" binding:"required"`
	WasteDate               string   `json:"wasteDate" binding:"required"`
	WasteCollectorID        *int     `json:"wasteCollectorId"`
	IsActive                *bool    `json:"isActive"`
}

func (r ReportRequest) toInput() (service.ReportInput, error) {
	date, err := models.ParseWasteDate(r.WasteDate)
	if err != nil {
		return service.ReportInput{}, err
	}
	return service.ReportInput{
		WasteType:               r.WasteType,
		WasteProcessingFacility: r.WasteProcessingFacility,
		WasteAmount:             *r.WasteAmount,
		WasteDate:               date,
		WasteCollectorID:        r.WasteCollectorID,
		IsActive:                r.IsActive,
	}, nil
}

func reportID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, "invalid report id", err)
		return 0, false
	}
	return id, true
}

// List handles GET /api/wastereports[?type=]. Only active reports are returned.
func (h *ReportHandler) List(c *gin.Context) {
	var (
		reports []models.WasteReport
		err     error
	)
	if wasteType := c.Query("type"); wasteType != "" {
		reports, err = h.reportService.ListByType(c.Request.Context(), wasteType)
	} else {
		reports, err = h.reportService.ListActive(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Get handles GET /api/wastereports/:id, including soft-deleted reports.
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	report, err := h.reportService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Create handles POST /api/wastereports
func (h *ReportHandler) Create(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reportService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// Update handles PUT /api/wastereports/:id
func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reportService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Delete handles DELETE /api/wastereports/:id (soft delete)
func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	if err := h.reportService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Waste report deleted"})
}

func parseDayQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	day, err := models.ParseWasteDate(raw)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// TotalEmission handles GET /api/wastereports/co2emission?startDate&endDate&userId&type
func (h *ReportHandler) TotalEmission(c *gin.Context) {
	start, err := parseDayQuery(c, "startDate")
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := parseDayQuery(c, "endDate")
	if err != nil {
		respondError(c, err)
		return
	}

	query := service.EmissionQuery{
		Start:     start,
		End:       end,
		WasteType: c.Query("type"),
	}
	if raw := c.Query("userId"); raw != "" {
		collector, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "userId must be a number", err)
			return
		}
		query.CollectorID = &collector
	}

	total, err := h.reportService.TotalEmission(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"co2Emission": total})
}

// EmissionForReport handles GET /api/wastereports/co2emission/:id
func (h *ReportHandler) EmissionForReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	kg, err := h.reportService.EmissionForReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "co2Emission": kg})
}

// Facilities handles GET /api/wastereports/facilities?type=
func (h *ReportHandler) Facilities(c *gin.Context) {
	wasteType := c.Query("type")
	facilities, err := h.reportService.Facilities(wasteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wasteType": wasteType, "facilities": facilities})
}

// WasteTypes handles GET /api/wastereports/types
func (h *ReportHandler) WasteTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"wasteTypes": models.WasteTypes()})
}
