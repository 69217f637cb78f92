// Package emission resolves per-(waste type, facility) CO2 emission factors and turns
// waste amounts into emission values.
package emission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"gopkg.in/yaml.v3"
)

var (
	ErrWasteTypeNotFound = apperr.NotFound("waste type not found")
	ErrFacilityNotFound  = apperr.NotFound("processing facility not found for waste type")
	ErrFacilityMismatch  = apperr.Validation("waste type and processing facility mismatch")
)

// facilityEntry keeps the original spelling next to the factor. A nil factor is a
// recorded but disallowed combination.
type facilityEntry struct {
	name   string
	factor *float64
}

type typeEntry struct {
	name       string
	facilities map[string]facilityEntry // keyed by lower-cased facility name
}

// FactorTable is an immutable two-level mapping waste type -> facility -> factor.
// Lookups are case-insensitive on both levels.
type FactorTable struct {
	types map[string]typeEntry
}

// NewFactorTable builds a table from the nested mapping. Later keys that differ only
// by case overwrite earlier ones.
func NewFactorTable(raw map[string]map[string]*float64) *FactorTable {
	t := &FactorTable{types: make(map[string]typeEntry, len(raw))}
	for wasteType, facilities := range raw {
		t.merge(wasteType, facilities)
	}
	return t
}

func (t *FactorTable) merge(wasteType string, facilities map[string]*float64) {
	key := strings.ToLower(wasteType)
	entry, ok := t.types[key]
	if !ok {
		entry = typeEntry{name: wasteType, facilities: make(map[string]facilityEntry)}
	}
	for name, factor := range facilities {
		entry.facilities[strings.ToLower(name)] = facilityEntry{name: name, factor: factor}
	}
	t.types[key] = entry
}

// ResolveFactor returns the emission factor for the pair. Absence is always an error.
func (t *FactorTable) ResolveFactor(wasteType, facility string) (float64, error) {
	entry, ok := t.types[strings.ToLower(wasteType)]
	if !ok {
		return 0, ErrWasteTypeNotFound
	}

	f, ok := entry.facilities[strings.ToLower(facility)]
	if !ok {
		return 0, ErrFacilityNotFound
	}
	if f.factor == nil {
		return 0, ErrFacilityMismatch
	}

	return *f.factor, nil
}

// Facilities lists the facilities that accept the waste type, sorted by name.
func (t *FactorTable) Facilities(wasteType string) ([]string, error) {
	entry, ok := t.types[strings.ToLower(wasteType)]
	if !ok {
		return nil, ErrWasteTypeNotFound
	}

	names := make([]string, 0, len(entry.facilities))
	for _, f := range entry.facilities {
		if f.factor != nil {
			names = append(names, f.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadFactorTable reads a factor table from a .json, .yaml or .yml file.
func LoadFactorTable(path string) (*FactorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emission factors: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON accepts either a single mapping or an array of mappings (merged in order).
func ParseJSON(data []byte) (*FactorTable, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return NewFactorTable(nil), nil
	}

	if trimmed[0] == '[' {
		var parts []map[string]map[string]*float64
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return nil, fmt.Errorf("parse emission factors: %w", err)
		}
		t := NewFactorTable(nil)
		for _, part := range parts {
			for wasteType, facilities := range part {
				t.merge(wasteType, facilities)
			}
		}
		return t, nil
	}

	var raw map[string]map[string]*float64
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("parse emission factors: %w", err)
	}
	return NewFactorTable(raw), nil
}

// ParseYAML reads the same nested mapping from YAML; `~` or `null` marks a disallowed pair.
func ParseYAML(data []byte) (*FactorTable, error) {
	var raw map[string]map[string]*float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse emission factors: %w", err)
	}
	return NewFactorTable(raw), nil
}
