package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qartod/qartod"
)

func strPtr(s string) *string {
	return &s
}

func testTable() *Table {
	return NewTable([]Row{
		{StationID: "*", Variable: "sea_water_temperature", Units: strPtr("degree_Celsius"), Params: map[string]float64{
			"gross_range.sensor_min": -5, "gross_range.sensor_max": 40,
		}},
		{StationID: "leorgn", Variable: "sea_water_temperature", Units: strPtr("degree_Celsius"), Params: map[string]float64{
			"gross_range.sensor_min": 0, "gross_range.sensor_max": 30,
		}},
		{StationID: "leorgn", Variable: "blue_green_algae", Params: map[string]float64{
			"gross_range.sensor_min": -1, "gross_range.sensor_max": 10,
		}},
		{StationID: "*", Variable: "blue_green_algae", Params: map[string]float64{}},
		{StationID: "*", Variable: "chlorophyll", Params: map[string]float64{"spike.low_threshold": 1}},
		{StationID: "45165", Variable: "wind_speed", Params: map[string]float64{}},
	})
}

func TestResolve(t *testing.T) {
	type testCase struct {
		tag       string
		station   string
		variable  string
		sensorMin float64
		fails     bool
	}

	cases := []testCase{
		{tag: "exact row after wildcard row", station: "leorgn", variable: "sea_water_temperature", sensorMin: 0},
		{tag: "exact row before wildcard row", station: "leorgn", variable: "blue_green_algae", sensorMin: -1},
		{tag: "wildcard fallback", station: "tollsps", variable: "sea_water_temperature", sensorMin: -5},
		{tag: "no configuration", station: "tollsps", variable: "wind_speed", fails: true},
	}

	table := testTable()
	for _, c := range cases {
		t.Log(c.tag)

		row, err := table.Resolve(c.station, c.variable)
		if c.fails {
			var notFound *ConfigNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("expected ConfigNotFoundError, got %v", err)
			}
			if notFound.Station != c.station || notFound.Variable != c.variable {
				t.Errorf("Got %+v", notFound)
			}
			continue
		}

		if err != nil {
			t.Fatal(err)
		}
		if row.StationID != c.station {
			t.Errorf("Got station %s, wanted %s", row.StationID, c.station)
		}
		if got, _ := row.Param("gross_range.sensor_min"); got != c.sensorMin {
			t.Errorf("Got sensor_min %v, wanted %v", got, c.sensorMin)
		}
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	table := testTable()

	row, err := table.Resolve("other", "sea_water_temperature")
	require.NoError(t, err)
	row.Params["gross_range.sensor_min"] = 100

	again, err := table.Resolve("other", "sea_water_temperature")
	require.NoError(t, err)
	assert.Equal(t, -5.0, again.Params["gross_range.sensor_min"])
	assert.Equal(t, WILDCARD, table.Rows()[0].StationID)
}

func TestVariables(t *testing.T) {
	table := testTable()

	assert.Equal(t,
		[]string{"sea_water_temperature", "blue_green_algae", "chlorophyll"},
		table.Variables("leorgn"),
	)
	assert.Equal(t,
		[]string{"wind_speed", "sea_water_temperature", "blue_green_algae", "chlorophyll"},
		table.Variables("45165"),
	)
}

func TestTestParams(t *testing.T) {
	type testCase struct {
		tag      string
		params   map[string]float64
		expected TestParams
	}

	low, high, eps := 3, 5, qartod.DEFAULT_EPSILON
	customEps := 0.01
	spikeLow := 0.5

	cases := []testCase{
		{tag: "nothing configured", params: map[string]float64{}, expected: TestParams{}},
		{
			tag:      "gross range requires both ends",
			params:   map[string]float64{"gross_range.sensor_min": -1, "gross_range.user_min": 0, "gross_range.user_max": 5},
			expected: TestParams{GrossRange: &qartod.GrossRangeParams{UserSpan: &qartod.Span{Min: 0, Max: 5}}},
		},
		{
			tag:      "flat line default epsilon",
			params:   map[string]float64{"flat_line.low_reps": 3, "flat_line.high_reps": 5},
			expected: TestParams{FlatLine: &qartod.FlatLineParams{LowReps: &low, HighReps: &high, Eps: eps}},
		},
		{
			tag:      "flat line custom epsilon",
			params:   map[string]float64{"flat_line.epsilon": customEps},
			expected: TestParams{FlatLine: &qartod.FlatLineParams{Eps: customEps}},
		},
		{
			tag:      "spike thresholds are independent",
			params:   map[string]float64{"spike.low_threshold": spikeLow},
			expected: TestParams{Spike: &qartod.SpikeParams{LowThreshold: &spikeLow}},
		},
		{
			tag:      "rate of change",
			params:   map[string]float64{"rate_of_change.threshold": 2},
			expected: TestParams{RateOfChange: &RateOfChange{Threshold: 2}},
		},
	}

	for _, c := range cases {
		t.Log(c.tag)
		row := Row{StationID: "leorgn", Variable: "x", Params: c.params}
		assert.Equal(t, c.expected, row.TestParams(), c.tag)
	}
}

func TestRowTests(t *testing.T) {
	row := Row{Params: map[string]float64{
		"spike.low_threshold":      1,
		"spike.high_threshold":     2,
		"gross_range.sensor_min":   0,
		"rate_of_change.threshold": 3,
	}}
	assert.Equal(t, []string{"gross_range", "rate_of_change", "spike"}, row.Tests())
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GLOS-Climatologies.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		CONFIG_SHEET: {
			{"station_id", "variable", "units", "gross_range.sensor_min", "gross_range.sensor_max", "spike.low_threshold"},
			{"leorgn", "blue_green_algae", "", -1, 10},
			{"*", "sea_water_temperature", "degree_Celsius", -5, 40, 2.5},
		},
		MAPPINGS_SHEET: {
			{"var_name", "var_dir"},
			{"blue_green_algae", "bga"},
		},
	})

	table, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	row, err := table.Resolve("leorgn", "blue_green_algae")
	require.NoError(t, err)
	assert.Nil(t, row.Units)
	assert.Equal(t, &qartod.Span{Min: -1, Max: 10}, row.TestParams().GrossRange.SensorSpan)
	assert.Nil(t, row.TestParams().Spike)

	row, err = table.Resolve("leorgn", "sea_water_temperature")
	require.NoError(t, err)
	require.NotNil(t, row.Units)
	assert.Equal(t, "degree_Celsius", *row.Units)
	assert.Equal(t, 2.5, *row.TestParams().Spike.LowThreshold)

	mappings, err := LoadMappings(path)
	require.NoError(t, err)
	assert.Equal(t, "bga", mappings.Dir("blue_green_algae"))
	assert.Equal(t, "sea_water_temperature", mappings.Dir("sea_water_temperature"))
}

func TestLoadXLSXFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"Sheet1": {
			{"station_id", "variable", "units"},
			{"leorgn", "blue_green_algae"},
		},
	})

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue_green_algae"}, table.Variables("leorgn"))

	mappings, err := LoadMappingsXLSX(path)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.csv")
	content := "station_id,variable,units,rate_of_change.threshold,flat_line.low_reps,flat_line.high_reps\n" +
		"leorgn,blue_green_algae,,0.5,,\n" +
		"*,sea_water_temperature,degree_Celsius,,3,5\n" +
		",,,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	row, err := table.Resolve("leorgn", "blue_green_algae")
	require.NoError(t, err)
	assert.Equal(t, &RateOfChange{Threshold: 0.5}, row.TestParams().RateOfChange)
	assert.Nil(t, row.TestParams().FlatLine)

	row, err = table.Resolve("leorgn", "sea_water_temperature")
	require.NoError(t, err)
	assert.Equal(t, 3, *row.TestParams().FlatLine.LowReps)

	mappingsPath := filepath.Join(dir, "mappings.csv")
	require.NoError(t, os.WriteFile(mappingsPath, []byte("var_name,var_dir\nwind_speed,winds\n"), 0o644))
	mappings, err := LoadMappings(mappingsPath)
	require.NoError(t, err)
	assert.Equal(t, "winds", mappings.Dir("wind_speed"))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing_units.csv")
	require.NoError(t, os.WriteFile(missing, []byte("station_id,variable\nleorgn,x\n"), 0o644))
	_, err := Load(missing)
	assert.ErrorContains(t, err, "units")

	invalid := filepath.Join(dir, "invalid.csv")
	require.NoError(t, os.WriteFile(invalid, []byte("station_id,variable,units,spike.low_threshold\nleorgn,x,,abc\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "line 2")

	_, err = Load(filepath.Join(dir, "config.json"))
	assert.Error(t, err)
}

func TestPressureEnabled(t *testing.T) {
	row := Row{Params: map[string]float64{"pressure.enabled": 1}}
	assert.True(t, row.TestParams().Has(PRESSURE))
	assert.False(t, row.TestParams().Has(SPIKE))

	row = Row{Params: map[string]float64{}}
	assert.False(t, row.TestParams().Has(PRESSURE))
}

func TestCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	require.NoError(t, os.WriteFile(path, []byte("station_id,variable,units\nleorgn,x,\n"), 0o644))

	cache := NewCache()
	first, err := cache.Get(path)
	require.NoError(t, err)

	// Changes on disk are not seen once loaded
	require.NoError(t, os.WriteFile(path, []byte("station_id,variable,units\n"), 0o644))
	second, err := cache.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = cache.Get(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
