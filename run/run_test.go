package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "qartod/config"
	"qartod/netcdf"
)

func writeDataset(t *testing.T, path string) {
	t.Helper()

	ds := netcdf.NewMemory()
	ds.SetAttribute("platform", "station")
	station := ds.AddOpaque("station", nil, int32(0))
	station.SetAttribute("ioos_code", "urn:ioos:station:glos:leorgn")

	tv, err := ds.AddVariable("time", netcdf.Float64, "time", []float64{0, 600, 1200})
	require.NoError(t, err)
	tv.SetAttribute("units", "seconds since 2016-06-01T00:00:00Z")

	temp, err := ds.AddVariable("sea_water_temperature", netcdf.Float32, "time", []float64{10, 12, 50})
	require.NoError(t, err)
	temp.SetAttribute("standard_name", "sea_water_temperature")
	temp.SetAttribute("units", "degree_Celsius")
	require.NoError(t, ds.Save(path))
}

func writeConfig(t *testing.T, path string) {
	t.Helper()
	content := "station_id,variable,units,gross_range.sensor_min,gross_range.sensor_max\n" +
		"*,sea_water_temperature,degree_Celsius,-5,40\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "leorgn.nc")
	configPath := filepath.Join(dir, "config.csv")
	reportPath := filepath.Join(dir, "report.csv")
	writeDataset(t, data)
	writeConfig(t, configPath)

	config := Config{Config: configPath, Files: []string{data}, Report: reportPath, RateInterval: "PT1H"}
	require.NoError(t, config.Execute())

	file, err := os.Open(reportPath)
	require.NoError(t, err)
	defer file.Close()

	var rows []ReportRow
	require.NoError(t, gocsv.UnmarshalFile(file, &rows))
	assert.Equal(t, []ReportRow{{
		File:     data,
		Variable: "sea_water_temperature",
		Test:     "gross_range",
		Total:    3,
		Bad:      1,
	}}, rows)

	// The lock file is kept but released
	_, err = os.Stat(data + LOCK_SUFFIX)
	require.NoError(t, err)

	lock := flock.New(data + LOCK_SUFFIX)
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	require.NoError(t, lock.Unlock())

	// A second run reuses the existing lock file
	require.NoError(t, config.Execute())
}

func TestExecuteFailures(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.csv")
	writeConfig(t, configPath)

	config := Config{Config: configPath, Files: []string{filepath.Join(dir, "missing.nc")}, RateInterval: "PT1H"}
	assert.ErrorContains(t, config.Execute(), "1/1")

	config.RateInterval = "one hour"
	assert.Error(t, config.Execute())
}

func TestProcessFileLocked(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "leorgn.nc")
	writeDataset(t, data)

	lock := flock.New(data + LOCK_SUFFIX)
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer lock.Unlock()

	table := cfg.NewTable([]cfg.Row{
		{StationID: "*", Variable: "sea_water_temperature", Params: map[string]float64{"gross_range.sensor_min": -5, "gross_range.sensor_max": 40}},
	})
	rows, err := ProcessFile(data, table)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, []ReportRow{{File: data, Error: ErrLocked.Error()}}, rows)

	// Skipped files don't fail the run
	configPath := filepath.Join(dir, "config.csv")
	writeConfig(t, configPath)
	config := Config{Config: configPath, Files: []string{data}, RateInterval: "PT1H"}
	assert.NoError(t, config.Execute())

	file, err := netcdf.OpenReadOnly(data)
	require.NoError(t, err)
	assert.False(t, file.HasVariable("qartod_sea_water_temperature_gross_range_flag"))
}
