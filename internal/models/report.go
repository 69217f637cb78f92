package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"gorm.io/gorm"
)

var (
	ErrEmissionAlreadySet = errors.New("co2 emission already set")
	ErrInvalidWasteDate   = apperr.Validation("invalid waste date")
)

// wasteDateLayouts are tried in order; zone-less layouts are read as local time.
var wasteDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseWasteDate parses the date formats the dashboard and legacy exports use and
// truncates the result to the minute. Inputs with an offset are converted to local time.
func ParseWasteDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wasteDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return TruncateToMinute(t).In(time.Local), nil
		}
	}
	return time.Time{}, ErrInvalidWasteDate
}

type WasteReport struct {
	ID                      int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	WasteType               WasteType `gorm:"type:varchar(32);not null;index" json:"wasteType"`
	WasteProcessingFacility string    `gorm:"type:varchar(100);not null" json:"wasteProcessingFacility"`
	WasteAmount             float64   `gorm:"not null" json:"wasteAmount"`
	WasteDate               time.Time `gorm:"not null;index" json:"wasteDate"`
	WasteCollectorID        *int      `gorm:"index" json:"wasteCollectorId"`
	Status                  Status    `gorm:"type:varchar(16);not null;default:'active';index" json:"-"`
	Co2Emission             *float64  `json:"co2Emission"`
	CreatedAt               time.Time `json:"createdOn"`
	UpdatedAt               time.Time `json:"modifiedOn"`
}

// TruncateToMinute drops seconds and sub-second precision.
func TruncateToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// SetWasteDate stores the date at minute granularity.
func (r *WasteReport) SetWasteDate(t time.Time) {
	r.WasteDate = TruncateToMinute(t)
}

func (r *WasteReport) IsActive() bool {
	return r.Status == StatusActive
}

// AssignEmission sets the emission value once. A second call fails; recalculation on
// update goes through RecomputeEmission.
func (r *WasteReport) AssignEmission(kg float64) error {
	if r.Co2Emission != nil {
		return ErrEmissionAlreadySet
	}
	r.Co2Emission = &kg
	return nil
}

// RecomputeEmission replaces the emission value. Only the report update path calls it.
func (r *WasteReport) RecomputeEmission(kg float64) {
	r.Co2Emission = &kg
}

// BeforeSave stores the date in UTC. SQLite compares the stored text, so every row and
// every bound must carry the same offset.
func (r *WasteReport) BeforeSave(tx *gorm.DB) error {
	r.WasteDate = TruncateToMinute(r.WasteDate).UTC()
	if r.Status == "" {
		r.Status = StatusActive
	}
	return nil
}

// AfterFind hands dates back in local time.
func (r *WasteReport) AfterFind(tx *gorm.DB) error {
	r.WasteDate = r.WasteDate.In(time.Local)
	return nil
}

type reportAlias WasteReport

type reportJSON struct {
	*reportAlias
	IsActive *bool `json:"isActive"`
}

type reportDecodeJSON struct {
	*reportAlias
	WasteDate string `json:"wasteDate"`
	IsActive  *bool  `json:"isActive"`
}

func (r WasteReport) MarshalJSON() ([]byte, error) {
	active := r.IsActive()
	return json.Marshal(reportJSON{reportAlias: (*reportAlias)(&r), IsActive: &active})
}

// UnmarshalJSON accepts zone-less dates, truncates them and treats a missing isActive
// as active.
func (r *WasteReport) UnmarshalJSON(data []byte) error {
	var decoded WasteReport
	aux := reportDecodeJSON{reportAlias: (*reportAlias)(&decoded)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.WasteDate != "" {
		date, err := ParseWasteDate(aux.WasteDate)
		if err != nil {
			return err
		}
		decoded.WasteDate = date
	}
	decoded.Status = StatusFromActive(aux.IsActive == nil || *aux.IsActive)
	*r = decoded
	return nil
}
