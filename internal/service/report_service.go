package service

import (
	"context"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/broker"
	"github.com/Baaaki/wastetrack/internal/emission"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrReportNotFound      = apperr.NotFound("waste report not found")
	ErrNegativeWasteAmount = apperr.Validation("waste amount must not be negative")
	ErrMissingWasteDate    = apperr.Validation("waste date is required")
	ErrReportReactivation  = apperr.Validation("an inactive waste report cannot be reactivated")
	ErrInvalidDateRange    = apperr.Validation("start date must not be after end date")
)

// FactorSource resolves emission factors and lists the facilities allowed per waste type.
type FactorSource interface {
	emission.FactorResolver
	Facilities(wasteType string) ([]string, error)
}

// ReportInput carries the mutable fields of a waste report.
// IsActive is only honoured by Update; nil keeps the current state.
type ReportInput struct {
	WasteType               string
	WasteProcessingFacility string
	WasteAmount             float64
	WasteDate               time.Time
	WasteCollectorID        *int
	IsActive                *bool
}

// EmissionQuery selects reports for an emission total. Start and End are compared by
// local calendar day, both inclusive. A nil End means today.
type EmissionQuery struct {
	Start       *time.Time
	End         *time.Time
	CollectorID *int
	WasteType   string
}

type ReportService struct {
	reports    repository.ReportRepository
	factors    FactorSource
	calculator *emission.Calculator
	events     broker.EventBroker // nil disables the live feed
	now        func() time.Time
}

func NewReportService(reports repository.ReportRepository, factors FactorSource, events broker.EventBroker) *ReportService {
	return &ReportService{
		reports:    reports,
		factors:    factors,
		calculator: emission.NewCalculator(factors),
		events:     events,
		now:        time.Now,
	}
}

func (s *ReportService) validateInput(input ReportInput) (models.WasteType, error) {
	// Type is checked before any emission lookup happens.
	wasteType, err := models.ParseWasteType(input.WasteType)
	if err != nil {
		return "", err
	}
	if input.WasteAmount < 0 {
		return "", ErrNegativeWasteAmount
	}
	if input.WasteDate.IsZero() {
		return "", ErrMissingWasteDate
	}
	return wasteType, nil
}

func (s *ReportService) Create(ctx context.Context, input ReportInput) (*models.WasteReport, error) {
	start := time.Now()

	logger.Log.Debug("Creating waste report",
		zap.String("waste_type", input.WasteType),
		zap.String("facility", input.WasteProcessingFacility),
		zap.Float64("amount", input.WasteAmount),
	)

	wasteType, err := s.validateInput(input)
	if err != nil {
		logger.Log.Warn("Waste report rejected",
			zap.String("waste_type", input.WasteType),
			zap.Error(err),
		)
		return nil, err
	}

	co2, err := s.calculator.ComputeEmission(string(wasteType), input.WasteProcessingFacility, input.WasteAmount)
	if err != nil {
		logger.Log.Warn("Emission lookup failed",
			zap.String("waste_type", input.WasteType),
			zap.String("facility", input.WasteProcessingFacility),
			zap.Error(err),
		)
		return nil, apperr.AsValidation(err)
	}

	report := &models.WasteReport{
		WasteType:               wasteType,
		WasteProcessingFacility: input.WasteProcessingFacility,
		WasteAmount:             input.WasteAmount,
		WasteCollectorID:        input.WasteCollectorID,
		Status:                  models.StatusActive,
	}
	report.SetWasteDate(input.WasteDate)
	if err := report.AssignEmission(co2); err != nil {
		return nil, err
	}

	now := s.now()
	report.CreatedAt = now
	report.UpdatedAt = now

	if err := s.reports.Create(ctx, report); err != nil {
		logger.Log.Error("Failed to store waste report",
			zap.String("waste_type", input.WasteType),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(ctx, broker.EventReportCreated, report)

	logger.Log.Info("Waste report created",
		zap.Int("report_id", report.ID),
		zap.String("waste_type", string(report.WasteType)),
		zap.Float64("co2_emission", co2),
		zap.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// GetByID returns the report whatever its status.
func (s *ReportService) GetByID(ctx context.Context, id int) (*models.WasteReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to load waste report",
			zap.Int("report_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func (s *ReportService) ListActive(ctx context.Context) ([]models.WasteReport, error) {
	return s.reports.List(ctx, repository.ReportFilter{ActiveOnly: true})
}

// ListByType matches the type exactly; "plastic" does not find "Plastic" reports.
func (s *ReportService) ListByType(ctx context.Context, wasteType string) ([]models.WasteReport, error) {
	return s.reports.List(ctx, repository.ReportFilter{ActiveOnly: true, WasteType: wasteType})
}

// Update replaces every mutable field and recomputes the emission from the new values.
func (s *ReportService) Update(ctx context.Context, id int, input ReportInput) (*models.WasteReport, error) {
	start := time.Now()

	logger.Log.Debug("Updating waste report",
		zap.Int("report_id", id),
	)

	report, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasteType, err := s.validateInput(input)
	if err != nil {
		logger.Log.Warn("Waste report update rejected",
			zap.Int("report_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	status := report.Status
	if input.IsActive != nil {
		if *input.IsActive && !report.IsActive() {
			logger.Log.Warn("Refusing to reactivate waste report",
				zap.Int("report_id", id),
			)
			return nil, ErrReportReactivation
		}
		status = models.StatusFromActive(*input.IsActive)
	}

	co2, err := s.calculator.ComputeEmission(string(wasteType), input.WasteProcessingFacility, input.WasteAmount)
	if err != nil {
		logger.Log.Warn("Emission lookup failed",
			zap.Int("report_id", id),
			zap.String("waste_type", input.WasteType),
			zap.String("facility", input.WasteProcessingFacility),
			zap.Error(err),
		)
		return nil, apperr.AsValidation(err)
	}

	report.WasteType = wasteType
	report.WasteProcessingFacility = input.WasteProcessingFacility
	report.WasteAmount = input.WasteAmount
	report.SetWasteDate(input.WasteDate)
	report.WasteCollectorID = input.WasteCollectorID
	report.Status = status
	report.RecomputeEmission(co2)
	report.UpdatedAt = s.now()

	if err := s.reports.Save(ctx, report); err != nil {
		logger.Log.Error("Failed to save waste report",
			zap.Int("report_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(ctx, broker.EventReportUpdated, report)

	logger.Log.Info("Waste report updated",
		zap.Int("report_id", id),
		zap.Float64("co2_emission", co2),
		zap.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// Delete marks the report inactive. It stays readable by id.
func (s *ReportService) Delete(ctx context.Context, id int) error {
	report, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	report.Status = models.StatusInactive
	report.UpdatedAt = s.now()

	if err := s.reports.Save(ctx, report); err != nil {
		logger.Log.Error("Failed to soft delete waste report",
			zap.Int("report_id", id),
			zap.Error(err),
		)
		return err
	}

	s.publish(ctx, broker.EventReportDeleted, report)

	logger.Log.Info("Waste report deleted",
		zap.Int("report_id", id),
	)

	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TotalEmission sums the emission of active reports matching q.
func (s *ReportService) TotalEmission(ctx context.Context, q EmissionQuery) (float64, error) {
	end := s.now()
	if q.End != nil {
		end = *q.End
	}
	to := startOfDay(end.In(time.Local)).AddDate(0, 0, 1)

	filter := repository.ReportFilter{
		ActiveOnly:  true,
		WasteType:   q.WasteType,
		CollectorID: q.CollectorID,
		To:          &to,
	}
	if q.Start != nil {
		from := startOfDay(q.Start.In(time.Local))
		if !from.Before(to) {
			return 0, ErrInvalidDateRange
		}
		filter.From = &from
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		logger.Log.Error("Failed to list reports for emission total",
			zap.Error(err),
		)
		return 0, err
	}

	var total float64
	for _, r := range reports {
		if r.Co2Emission != nil {
			total += *r.Co2Emission
		}
	}

	logger.Log.Debug("Computed emission total",
		zap.Int("reports", len(reports)),
		zap.Float64("total", total),
	)

	return total, nil
}

// EmissionForReport returns 0 when the report has no recorded emission.
func (s *ReportService) EmissionForReport(ctx context.Context, id int) (float64, error) {
	report, err := s.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if report.Co2Emission == nil {
		return 0, nil
	}
	return *report.Co2Emission, nil
}

// Facilities lists the processing facilities that accept wasteType.
func (s *ReportService) Facilities(wasteType string) ([]string, error) {
	if _, err := models.ParseWasteType(wasteType); err != nil {
		return nil, err
	}
	return s.factors.Facilities(wasteType)
}

// publish is best effort: a broker outage never fails the write that triggered it.
func (s *ReportService) publish(ctx context.Context, t broker.EventType, report *models.WasteReport) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, broker.NewReportEvent(t, report)); err != nil {
		logger.Log.Warn("Failed to publish report event",
			zap.String("event", string(t)),
			zap.Int("report_id", report.ID),
			zap.Error(err),
		)
	}
}
