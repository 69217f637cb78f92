package filestore

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
)

const (
	reportsFile = "WasteReport.json"
	peopleFile  = "People.json"
)

// Store bundles the report and person tables kept under one directory.
type Store struct {
	reports *ReportRepository
	people  *PersonRepository
}

// Open loads both tables from dir. An empty dir gives a purely in-memory store.
func Open(dir string) (*Store, error) {
	reportsPath, peoplePath := "", ""
	if dir != "" {
		reportsPath = filepath.Join(dir, reportsFile)
		peoplePath = filepath.Join(dir, peopleFile)
	}

	reports, err := OpenReportRepository(reportsPath)
	if err != nil {
		return nil, err
	}
	people, err := OpenPersonRepository(peoplePath)
	if err != nil {
		return nil, err
	}

	return &Store{reports: reports, people: people}, nil
}

// NewMemoryStore never touches disk.
func NewMemoryStore() *Store {
	s, _ := Open("")
	return s
}

func (s *Store) Reports() *ReportRepository { return s.reports }

func (s *Store) People() *PersonRepository { return s.people }

type ReportRepository struct {
	table *Table[int, models.WasteReport]
}

var _ repository.ReportRepository = (*ReportRepository)(nil)

func OpenReportRepository(path string) (*ReportRepository, error) {
	table, err := OpenTable(path, func(r *models.WasteReport) int { return r.ID })
	if err != nil {
		return nil, err
	}
	return &ReportRepository{table: table}, nil
}

func cloneReport(r models.WasteReport) *models.WasteReport {
	if r.Co2Emission != nil {
		v := *r.Co2Emission
		r.Co2Emission = &v
	}
	if r.WasteCollectorID != nil {
		v := *r.WasteCollectorID
		r.WasteCollectorID = &v
	}
	return &r
}

func (r *ReportRepository) Create(ctx context.Context, report *models.WasteReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The caller's value only changes once the write is on disk.
	created := *cloneReport(*report)
	err := r.table.Mutate(func(rows map[int]models.WasteReport) error {
		maxID := 0
		for id := range rows {
			maxID = max(maxID, id)
		}

		now := time.Now()
		created.ID = maxID + 1
		created.WasteDate = models.TruncateToMinute(created.WasteDate)
		if created.Status == "" {
			created.Status = models.StatusActive
		}
		if created.CreatedAt.IsZero() {
			created.CreatedAt = now
		}
		created.UpdatedAt = now

		rows[created.ID] = *cloneReport(created)
		return nil
	})
	if err != nil {
		return err
	}
	*report = created
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int) (*models.WasteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, ok := r.table.Get(id)
	if !ok {
		return nil, nil
	}
	return cloneReport(report), nil
}

func (r *ReportRepository) List(ctx context.Context, filter repository.ReportFilter) ([]models.WasteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []models.WasteReport{}
	for _, report := range r.table.Values() {
		if filter.Matches(&report) {
			out = append(out, *cloneReport(report))
		}
	}
	return out, nil
}

// Save overwrites an existing report, or inserts one carrying an explicit id.
func (r *ReportRepository) Save(ctx context.Context, report *models.WasteReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	saved := *cloneReport(*report)
	err := r.table.Mutate(func(rows map[int]models.WasteReport) error {
		now := time.Now()
		saved.WasteDate = models.TruncateToMinute(saved.WasteDate)
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		saved.UpdatedAt = now

		rows[saved.ID] = *cloneReport(saved)
		return nil
	})
	if err != nil {
		return err
	}
	*report = saved
	return nil
}

type PersonRepository struct {
	table *Table[string, models.Person]
}

var _ repository.PersonRepository = (*PersonRepository)(nil)

func OpenPersonRepository(path string) (*PersonRepository, error) {
	table, err := OpenTable(path, func(p *models.Person) string { return p.EmployeeID })
	if err != nil {
		return nil, err
	}
	return &PersonRepository{table: table}, nil
}

func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := models.ValidateEmployeeID(person.EmployeeID); err != nil {
		return err
	}

	created := *person
	err := r.table.Mutate(func(rows map[string]models.Person) error {
		if _, exists := rows[created.EmployeeID]; exists {
			return ErrDuplicateKey
		}

		now := time.Now()
		if created.Status == "" {
			created.Status = models.StatusActive
		}
		if created.CreatedAt.IsZero() {
			created.CreatedAt = now
		}
		created.UpdatedAt = now

		rows[created.EmployeeID] = created
		return nil
	})
	if err != nil {
		return err
	}
	*person = created
	return nil
}

func (r *PersonRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*models.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	person, ok := r.table.Get(employeeID)
	if !ok {
		return nil, nil
	}
	return &person, nil
}

func (r *PersonRepository) List(ctx context.Context, filter repository.PersonFilter) ([]models.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []models.Person{}
	for _, person := range r.table.Values() {
		if filter.Matches(&person) {
			out = append(out, person)
		}
	}
	return out, nil
}

func (r *PersonRepository) Save(ctx context.Context, person *models.Person) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := models.ValidateEmployeeID(person.EmployeeID); err != nil {
		return err
	}

	saved := *person
	err := r.table.Mutate(func(rows map[string]models.Person) error {
		now := time.Now()
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		saved.UpdatedAt = now

		rows[saved.EmployeeID] = saved
		return nil
	})
	if err != nil {
		return err
	}
	*person = saved
	return nil
}
