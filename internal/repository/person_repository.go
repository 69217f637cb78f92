package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/wastetrack/internal/models"
	"gorm.io/gorm"
)

type GormPersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *GormPersonRepository {
	return &GormPersonRepository{db: db}
}

// Create relies on gorm.Config.TranslateError to recognise primary key collisions.
func (r *GormPersonRepository) Create(ctx context.Context, person *models.Person) error {
	err := r.db.WithContext(ctx).Create(person).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *GormPersonRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&person).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &person, nil
}

func (r *GormPersonRepository) List(ctx context.Context, filter PersonFilter) ([]models.Person, error) {
	query := r.db.WithContext(ctx).Model(&models.Person{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Active != nil {
		query = query.Where("status = ?", models.StatusFromActive(*filter.Active))
	}

	people := []models.Person{}
	err := query.Order("employee_id ASC").Find(&people).Error
	return people, err
}

func (r *GormPersonRepository) Save(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Save(person).Error
}
