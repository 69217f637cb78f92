package models

import (
	"encoding/json"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmployeeID   = apperr.Validation("invalid employee id")
	ErrEmployeeIDImmutable = apperr.Validation("employee id cannot be changed")
)

// ValidateEmployeeID accepts exactly six ASCII digits.
func ValidateEmployeeID(id string) error {
	if len(id) != 6 {
		return ErrInvalidEmployeeID
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return ErrInvalidEmployeeID
		}
	}
	return nil
}

type Person struct {
	EmployeeID   string    `gorm:"type:varchar(6);primaryKey" json:"employeeId"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Email        string    `gorm:"type:varchar(100);not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"password"`
	Role         Role      `gorm:"type:varchar(16);not null;index" json:"role"`
	Status       Status    `gorm:"type:varchar(16);not null;default:'active';index" json:"-"`
	CreatedAt    time.Time `json:"createdOn"`
	UpdatedAt    time.Time `json:"modifiedOn"`
}

func (Person) TableName() string {
	return "people"
}

// NewPerson validates the employee id before anything else is set.
func NewPerson(employeeID, name, email string, role Role) (*Person, error) {
	p := &Person{}
	if err := p.SetEmployeeID(employeeID); err != nil {
		return nil, err
	}
	p.Name = name
	p.Email = email
	p.Role = role
	p.Status = StatusActive
	return p, nil
}

// SetEmployeeID validates on every assignment. Once a valid id is held it cannot change.
func (p *Person) SetEmployeeID(id string) error {
	if err := ValidateEmployeeID(id); err != nil {
		return err
	}
	if p.EmployeeID != "" && p.EmployeeID != id && ValidateEmployeeID(p.EmployeeID) == nil {
		return ErrEmployeeIDImmutable
	}
	p.EmployeeID = id
	return nil
}

func (p *Person) IsActive() bool {
	return p.Status == StatusActive
}

// BeforeSave keeps invalid ids out of the database even if the field was written directly.
func (p *Person) BeforeSave(tx *gorm.DB) error {
	if err := ValidateEmployeeID(p.EmployeeID); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	return nil
}

type personAlias Person

type personJSON struct {
	*personAlias
	IsActive *bool `json:"isActive"`
}

func (p Person) MarshalJSON() ([]byte, error) {
	active := p.IsActive()
	return json.Marshal(personJSON{personAlias: (*personAlias)(&p), IsActive: &active})
}

// UnmarshalJSON validates the employee id; a missing isActive means active.
func (p *Person) UnmarshalJSON(data []byte) error {
	var decoded Person
	aux := personJSON{personAlias: (*personAlias)(&decoded)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if err := ValidateEmployeeID(decoded.EmployeeID); err != nil {
		return err
	}
	decoded.Status = StatusFromActive(aux.IsActive == nil || *aux.IsActive)
	*p = decoded
	return nil
}
