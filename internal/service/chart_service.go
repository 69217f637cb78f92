package service

import (
	"context"
	"slices"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
)

const (
	// ChartDateLayout renders day labels as dd-MM-yyyy.
	ChartDateLayout = "02-01-2006"

	DefaultChartDays = 7
	MaxChartDays     = 366
)

var ErrInvalidChartDays = apperr.Validation("days must be between 1 and 366")

type DailyEmission struct {
	Label       string  `json:"label"`
	Co2Emission float64 `json:"co2Emission"`
}

type WasteShare struct {
	WasteType   models.WasteType `json:"wasteType"`
	WasteAmount float64          `json:"wasteAmount"`
}

// FacilityBreakdown is the waste amount per facility for one waste type.
type FacilityBreakdown struct {
	WasteType models.WasteType `json:"wasteType"`
	Amounts   []float64        `json:"amounts"`
}

type FacilityChart struct {
	Facilities []string            `json:"facilities"`
	Series     []FacilityBreakdown `json:"series"`
}

// ChartService shapes active reports into chart series for the dashboard.
type ChartService struct {
	reports repository.ReportRepository
}

func NewChartService(reports repository.ReportRepository) *ChartService {
	return &ChartService{reports: reports}
}

// DailyEmissions sums emission per calendar day for the last days days ending with now's
// day, oldest first. Days without reports are reported as zero.
func (s *ChartService) DailyEmissions(ctx context.Context, days int, now time.Time) ([]DailyEmission, error) {
	if days < 1 || days > MaxChartDays {
		return nil, ErrInvalidChartDays
	}

	to := startOfDay(now).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	reports, err := s.reports.List(ctx, repository.ReportFilter{ActiveOnly: true, From: &from, To: &to})
	if err != nil {
		logger.Log.Error("Failed to list reports for daily chart", zap.Error(err))
		return nil, err
	}

	totals := make(map[string]float64, days)
	for _, r := range reports {
		if r.Co2Emission == nil {
			continue
		}
		day := r.WasteDate.In(now.Location()).Format(ChartDateLayout)
		totals[day] += *r.Co2Emission
	}

	out := make([]DailyEmission, 0, days)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		label := d.Format(ChartDateLayout)
		out = append(out, DailyEmission{Label: label, Co2Emission: totals[label]})
	}
	return out, nil
}

// WasteDistribution sums waste amounts per type, in the fixed type order. Types without
// reports are omitted.
func (s *ChartService) WasteDistribution(ctx context.Context) ([]WasteShare, error) {
	reports, err := s.reports.List(ctx, repository.ReportFilter{ActiveOnly: true})
	if err != nil {
		logger.Log.Error("Failed to list reports for distribution chart", zap.Error(err))
		return nil, err
	}

	totals := make(map[models.WasteType]float64)
	for _, r := range reports {
		totals[r.WasteType] += r.WasteAmount
	}

	out := []WasteShare{}
	for _, t := range models.WasteTypes() {
		if amount, ok := totals[t]; ok {
			out = append(out, WasteShare{WasteType: t, WasteAmount: amount})
		}
	}
	return out, nil
}

// FacilityAmounts builds one series per waste type over every facility seen in active reports.
func (s *ChartService) FacilityAmounts(ctx context.Context) (*FacilityChart, error) {
	reports, err := s.reports.List(ctx, repository.ReportFilter{ActiveOnly: true})
	if err != nil {
		logger.Log.Error("Failed to list reports for facility chart", zap.Error(err))
		return nil, err
	}

	chart := &FacilityChart{Facilities: []string{}, Series: []FacilityBreakdown{}}
	seen := make(map[string]bool)
	sums := make(map[models.WasteType]map[string]float64)
	for _, r := range reports {
		if !seen[r.WasteProcessingFacility] {
			seen[r.WasteProcessingFacility] = true
			chart.Facilities = append(chart.Facilities, r.WasteProcessingFacility)
		}
		if sums[r.WasteType] == nil {
			sums[r.WasteType] = make(map[string]float64)
		}
		sums[r.WasteType][r.WasteProcessingFacility] += r.WasteAmount
	}
	slices.Sort(chart.Facilities)

	for _, t := range models.WasteTypes() {
		byFacility, ok := sums[t]
		if !ok {
			continue
		}
		amounts := make([]float64, len(chart.Facilities))
		for i, f := range chart.Facilities {
			amounts[i] = byFacility[f]
		}
		chart.Series = append(chart.Series, FacilityBreakdown{WasteType: t, Amounts: amounts})
	}
	return chart, nil
}
