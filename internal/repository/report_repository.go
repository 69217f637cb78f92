package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/wastetrack/internal/models"
	"gorm.io/gorm"
)

type GormReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// Create assigns the next id above the current maximum (1 for an empty table) inside
// the same transaction as the insert.
func (r *GormReportRepository) Create(ctx context.Context, report *models.WasteReport) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID int
		err := tx.Model(&models.WasteReport{}).
			Select("COALESCE(MAX(id), 0)").
			Scan(&maxID).Error
		if err != nil {
			return err
		}

		report.ID = maxID + 1
		return tx.Create(report).Error
	})
	report.WasteDate = report.WasteDate.In(time.Local)
	return err
}

func (r *GormReportRepository) GetByID(ctx context.Context, id int) (*models.WasteReport, error) {
	var report models.WasteReport
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *GormReportRepository) List(ctx context.Context, filter ReportFilter) ([]models.WasteReport, error) {
	query := r.db.WithContext(ctx).Model(&models.WasteReport{})

	if filter.ActiveOnly {
		query = query.Where("status = ?", models.StatusActive)
	}
	if filter.WasteType != "" {
		query = query.Where("waste_type = ?", filter.WasteType)
	}
	if filter.CollectorID != nil {
		query = query.Where("waste_collector_id = ?", *filter.CollectorID)
	}
	if filter.From != nil {
		query = query.Where("waste_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("waste_date < ?", filter.To.UTC())
	}

	reports := []models.WasteReport{}
	err := query.Order("id ASC").Find(&reports).Error
	return reports, err
}

// Save updates the row, or inserts it when the id is not taken yet.
func (r *GormReportRepository) Save(ctx context.Context, report *models.WasteReport) error {
	err := r.db.WithContext(ctx).Save(report).Error
	report.WasteDate = report.WasteDate.In(time.Local)
	return err
}
