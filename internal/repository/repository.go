package repository

import (
	"context"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/models"
)

// ErrDuplicate is returned by Create when the primary key is taken.
var ErrDuplicate = apperr.Conflict("record already exists")

// ReportFilter narrows report listings. Zero values mean "no constraint".
type ReportFilter struct {
	ActiveOnly  bool
	WasteType   string // exact, case-sensitive
	CollectorID *int
	From        *time.Time // inclusive
	To          *time.Time // exclusive
}

type PersonFilter struct {
	Role   *models.Role
	Active *bool
}

// ReportRepository persists waste reports. GetByID returns (nil, nil) for a missing id
// and does not look at the active flag.
type ReportRepository interface {
	Create(ctx context.Context, report *models.WasteReport) error
	GetByID(ctx context.Context, id int) (*models.WasteReport, error)
	List(ctx context.Context, filter ReportFilter) ([]models.WasteReport, error)
	Save(ctx context.Context, report *models.WasteReport) error
}

// PersonRepository persists accounts keyed by employee id. GetByEmployeeID returns
// (nil, nil) for a missing id, active or not.
type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) error
	GetByEmployeeID(ctx context.Context, employeeID string) (*models.Person, error)
	List(ctx context.Context, filter PersonFilter) ([]models.Person, error)
	Save(ctx context.Context, person *models.Person) error
}

// Matches applies the filter in memory, for stores that cannot push it into a query.
func (f ReportFilter) Matches(r *models.WasteReport) bool {
	if f.ActiveOnly && !r.IsActive() {
		return false
	}
	if f.WasteType != "" && string(r.WasteType) != f.WasteType {
		return false
	}
	if f.CollectorID != nil && (r.WasteCollectorID == nil || *r.WasteCollectorID != *f.CollectorID) {
		return false
	}
	if f.From != nil && r.WasteDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.WasteDate.Before(*f.To) {
		return false
	}
	return true
}

func (f PersonFilter) Matches(p *models.Person) bool {
	if f.Role != nil && p.Role != *f.Role {
		return false
	}
	if f.Active != nil && p.IsActive() != *f.Active {
		return false
	}
	return true
}
