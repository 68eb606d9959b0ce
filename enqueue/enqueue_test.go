package enqueue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qartod/netcdf"
	"qartod/utils"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	m := netcdf.NewMemory()
	_, err := m.AddVariable("time", netcdf.Float64, "time", []float64{0})
	require.NoError(t, err)
	require.NoError(t, m.Save(path))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "data")

	configPath := filepath.Join(dir, "config.csv")
	content := "station_id,variable,units,spike.low_threshold\n" +
		"leorgn,blue_green_algae,,1\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	mappingsPath := filepath.Join(dir, "mappings.csv")
	require.NoError(t, os.WriteFile(mappingsPath, []byte("var_name,var_dir\nblue_green_algae,bga\n"), 0o644))

	old := filepath.Join(root, "bga", "leorgn", "old.nc")
	recent := filepath.Join(root, "bga", "leorgn", "recent.nc")
	writeFile(t, old)
	writeFile(t, recent)
	writeFile(t, filepath.Join(root, "blue_green_algae", "leorgn", "unmapped.nc"))

	past := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(old, past, past))

	config := Config{Config: configPath, Root: root, Mappings: mappingsPath}
	files, err := config.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{old, recent}, files)

	var since utils.Timestamp
	require.NoError(t, since.UnmarshalText([]byte("2016-01-01")))
	config.Since = &since
	files, err = config.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{recent}, files)
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.csv")
	require.NoError(t, os.WriteFile(configPath, []byte("station_id,variable,units\n"), 0o644))

	// No connection is made
	config := Config{Config: configPath, Root: dir, DryRun: true}
	assert.NoError(t, config.Execute())
}
