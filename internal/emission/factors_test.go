package emission

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func testTable() *FactorTable {
	return NewFactorTable(map[string]map[string]*float64{
		"Plastic": {
			"Recycling Center":   ptr(1.5),
			"Incineration Plant": ptr(2.7),
			"Composting":         nil,
		},
		"Metal": {
			"Recycling Center": ptr(0.6),
		},
	})
}

func TestResolveFactor_Found(t *testing.T) {
	table := testTable()

	factor, err := table.ResolveFactor("Plastic", "Recycling Center")

	require.NoError(t, err)
	assert.Equal(t, 1.5, factor)
}

func TestResolveFactor_CaseInsensitive(t *testing.T) {
	table := testTable()

	factor, err := table.ResolveFactor("pLaStIc", "incineration PLANT")

	require.NoError(t, err)
	assert.Equal(t, 2.7, factor)
}

func TestResolveFactor_UnknownType(t *testing.T) {
	table := testTable()

	_, err := table.ResolveFactor("Glass", "Recycling Center")

	assert.ErrorIs(t, err, ErrWasteTypeNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "waste type not found", err.Error())
}

func TestResolveFactor_UnknownFacility(t *testing.T) {
	table := testTable()

	_, err := table.ResolveFactor("Metal", "Incineration Plant")

	assert.ErrorIs(t, err, ErrFacilityNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveFactor_NullFactorIsMismatch(t *testing.T) {
	table := testTable()

	factor, err := table.ResolveFactor("Plastic", "Composting")

	assert.ErrorIs(t, err, ErrFacilityMismatch)
	assert.Equal(t, "waste type and processing facility mismatch", err.Error())
	assert.Zero(t, factor)
}

func TestFacilities_SkipsDisallowed(t *testing.T) {
	table := testTable()

	names, err := table.Facilities("plastic")

	require.NoError(t, err)
	assert.Equal(t, []string{"Incineration Plant", "Recycling Center"}, names)

	_, err = table.Facilities("Glass")
	assert.True(t, errors.Is(err, ErrWasteTypeNotFound))
}

func TestParseJSON_ObjectAndArray(t *testing.T) {
	object := []byte(`{"Paper": {"Landfill": 1.0, "Composting": null}}`)
	array := []byte(`[{"Paper": {"Landfill": 1.0}}, {"Paper": {"Composting": null}}]`)

	for name, data := range map[string][]byte{"object": object, "array": array} {
		t.Run(name, func(t *testing.T) {
			table, err := ParseJSON(data)
			require.NoError(t, err)

			factor, err := table.ResolveFactor("paper", "landfill")
			require.NoError(t, err)
			assert.Equal(t, 1.0, factor)

			_, err = table.ResolveFactor("paper", "composting")
			assert.ErrorIs(t, err, ErrFacilityMismatch)
		})
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"Paper": 3}`))
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	data := []byte("Wood:\n  Landfill: 0.9\n  Recycling Center: ~\n")

	table, err := ParseYAML(data)
	require.NoError(t, err)

	factor, err := table.ResolveFactor("Wood", "Landfill")
	require.NoError(t, err)
	assert.Equal(t, 0.9, factor)

	_, err = table.ResolveFactor("Wood", "Recycling Center")
	assert.ErrorIs(t, err, ErrFacilityMismatch)
}

func TestLoadFactorTable_ByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "factors.json")
	yamlPath := filepath.Join(dir, "factors.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"Metal": {"Recycling Center": 0.6}}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("Metal:\n  Recycling Center: 0.6\n"), 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		table, err := LoadFactorTable(path)
		require.NoError(t, err, path)

		factor, err := table.ResolveFactor("Metal", "Recycling Center")
		require.NoError(t, err)
		assert.Equal(t, 0.6, factor)
	}

	_, err := LoadFactorTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadFactorTable_ShippedFile(t *testing.T) {
	table, err := LoadFactorTable(filepath.Join("..", "..", "config", "emission_factors.json"))
	require.NoError(t, err)

	for _, wasteType := range []string{"Organic", "Plastic", "Metal", "Wood", "Paper", "Electronic", "Incineration"} {
		names, err := table.Facilities(wasteType)
		require.NoError(t, err, wasteType)
		assert.NotEmpty(t, names, wasteType)
	}
}
