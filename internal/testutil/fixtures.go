package testutil

import (
	"time"

	"github.com/Baaaki/wastetrack/internal/emission"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/utils"
)

// Default credentials used by fixtures
const (
	EmployeeID       = "100001"
	EmployeePassword = "Employee123"
	ManagerID        = "900001"
	ManagerPassword  = "Manager123"
)

func factor(v float64) *float64 { return &v }

// FactorTable returns a small emission factor table covering every waste type.
// Metal at Landfill is deliberately null (a mismatch).
func FactorTable() *emission.FactorTable {
	return emission.NewFactorTable(map[string]map[string]*float64{
		"Organic":      {"Composting Facility": factor(0.1), "Landfill": factor(0.5)},
		"Plastic":      {"Recycling Center": factor(0.2), "Landfill": factor(0.04)},
		"Metal":        {"Recycling Center": factor(0.6), "Landfill": nil},
		"Wood":         {"Recycling Center": factor(0.3), "Landfill": factor(0.7)},
		"Paper":        {"Recycling Center": factor(0.25), "Landfill": factor(1.0)},
		"Electronic":   {"E-Waste Processor": factor(1.5)},
		"Incineration": {"Incineration Plant": factor(2.0)},
	})
}

// CreateTestPerson creates an active person with a hashed password
func CreateTestPerson(employeeID, name, email, password string, role models.Role) (*models.Person, error) {
	person, err := models.NewPerson(employeeID, name, email, role)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	person.PasswordHash = hashedPassword

	return person, nil
}

// DefaultTestEmployee returns a default employee
func DefaultTestEmployee() (*models.Person, error) {
	return CreateTestPerson(EmployeeID, "Test Employee", "employee@example.com", EmployeePassword, models.RoleEmployee)
}

// DefaultTestManager returns a default manager
func DefaultTestManager() (*models.Person, error) {
	return CreateTestPerson(ManagerID, "Test Manager", "manager@example.com", ManagerPassword, models.RoleManager)
}

// CreateTestReport builds an active report without an id; the repository assigns one.
func CreateTestReport(wasteType models.WasteType, facility string, amount float64, date time.Time) *models.WasteReport {
	report := &models.WasteReport{
		WasteType:               wasteType,
		WasteProcessingFacility: facility,
		WasteAmount:             amount,
		Status:                  models.StatusActive,
	}
	report.SetWasteDate(date)
	return report
}
