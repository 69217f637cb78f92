package models

import (
	"strings"

	"github.com/Baaaki/wastetrack/internal/apperr"
)

type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
)

var ErrInvalidRole = apperr.Validation("invalid role: must be Employee or Manager")

// ParseRole accepts any casing and returns the canonical role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee, nil
	case "manager":
		return RoleManager, nil
	}
	return "", ErrInvalidRole
}

// Status is the soft-delete state of a record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func StatusFromActive(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusInactive
}

type WasteType string

const (
	WasteOrganic      WasteType = "Organic"
	WastePlastic      WasteType = "Plastic"
	WasteMetal        WasteType = "Metal"
	WasteWood         WasteType = "Wood"
	WastePaper        WasteType = "Paper"
	WasteElectronic   WasteType = "Electronic"
	WasteIncineration WasteType = "Incineration"
)

var wasteTypes = []WasteType{
	WasteOrganic,
	WastePlastic,
	WasteMetal,
	WasteWood,
	WastePaper,
	WasteElectronic,
	WasteIncineration,
}

var ErrInvalidWasteType = apperr.Validation("invalid waste type")

// WasteTypes returns the allowed waste types in display order.
func WasteTypes() []WasteType {
	out := make([]WasteType, len(wasteTypes))
	copy(out, wasteTypes)
	return out
}

// ParseWasteType is case-sensitive: "plastic" is rejected.
func ParseWasteType(s string) (WasteType, error) {
	for _, t := range wasteTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidWasteType
}
