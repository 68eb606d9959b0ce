package netcdf

import (
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()

	m := NewMemory()
	m.SetAttribute("platform", "station")

	station := m.AddOpaque("station", nil, int32(0))
	station.SetAttribute("ioos_code", "urn:ioos:station:glos:leorgn")

	tv, err := m.AddVariable("time", Float64, "time", []float64{0, 600, 1200, 1800})
	require.NoError(t, err)
	tv.SetAttribute("units", "seconds since 1970-01-01T00:00:00Z")

	temp, err := m.AddVariable("temperature", Float32, "time", []float64{10, -9999, 11, math.NaN()})
	require.NoError(t, err)
	temp.SetAttribute("_FillValue", float32(-9999))
	temp.SetAttribute("standard_name", "sea_water_temperature")
	return m
}

func TestReadMask(t *testing.T) {
	m := newTestMemory(t)

	v, err := m.Variable("temperature")
	require.NoError(t, err)

	array, err := v.Read()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true}, array.Mask)
	assert.Equal(t, []float64{10, 11}, array.Compressed())
}

func TestWriteMaskedUsesFill(t *testing.T) {
	m := newTestMemory(t)
	v, err := m.Variable("temperature")
	require.NoError(t, err)

	err = v.Write(MaskedArray{
		Data: []float64{1, 2, 3, 4},
		Mask: []bool{false, false, true, false},
	})
	require.NoError(t, err)

	array, err := v.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, -9999, 4}, array.Data)
	assert.Equal(t, []bool{false, false, true, false}, array.Mask)

	err = v.Write(MaskedArray{Data: []float64{1}})
	assert.Error(t, err)
}

func TestCreateVariable(t *testing.T) {
	m := newTestMemory(t)

	v, err := m.CreateVariable("qartod_temperature_primary_flag", Int8, []string{"time"}, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, Int8, v.Type())

	fill, ok := AttributeFloat(v, "_FillValue")
	assert.True(t, ok)
	assert.Equal(t, 9.0, fill)

	array, err := v.Read()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true}, array.Mask)

	_, err = m.CreateVariable("qartod_temperature_primary_flag", Int8, []string{"time"}, 9)
	assert.Error(t, err)
	_, err = m.CreateVariable("other", Int8, []string{"depth"}, 9)
	assert.Error(t, err)
}

func TestVariableLookup(t *testing.T) {
	m := newTestMemory(t)

	_, err := m.Variable("salinity")
	assert.True(t, errors.Is(err, ErrNotFound))

	found := m.VariablesByAttribute("standard_name", "sea_water_temperature")
	require.Len(t, found, 1)
	assert.Equal(t, "temperature", found[0].Name())

	station, err := m.Variable("station")
	require.NoError(t, err)
	_, err = station.Read()
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestAttributeOrder(t *testing.T) {
	m := NewMemory()
	m.SetAttribute("b", "1")
	m.SetAttribute("a", "2")
	m.SetAttribute("b", "3")

	assert.Equal(t, []string{"b", "a"}, m.AttributeNames())
	assert.Equal(t, "3", AttributeString(m, "b"))
	assert.True(t, m.Modified())
}

func TestSaveAndOpen(t *testing.T) {
	m := newTestMemory(t)
	path := filepath.Join(t.TempDir(), "leorgn.nc")
	require.NoError(t, m.Save(path))

	f, err := Open(path)
	require.NoError(t, err)
	assert.False(t, f.Modified())
	assert.Equal(t, "station", AttributeString(f, "platform"))

	temp, err := f.Variable("temperature")
	require.NoError(t, err)
	assert.Equal(t, Float32, temp.Type())
	assert.Equal(t, "sea_water_temperature", AttributeString(temp, "standard_name"))

	array, err := temp.Read()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true}, array.Mask)

	flag, err := f.CreateVariable("qartod_temperature_primary_flag", Int8, []string{"time"}, 9)
	require.NoError(t, err)
	require.NoError(t, flag.Write(MaskedArray{Data: []float64{1, 2, 3, 4}}))
	require.NoError(t, f.Close())

	reopened, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer reopened.Close()

	flag, err = reopened.Variable("qartod_temperature_primary_flag")
	require.NoError(t, err)
	array, err = flag.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, array.Data)
	assert.True(t, slices.Contains(reopened.Variables(), "time"))
}

func TestNum2Date(t *testing.T) {
	type testCase struct {
		units    string
		values   []float64
		expected []time.Time
		fails    bool
	}

	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []testCase{
		{
			units:    "seconds since 1970-01-01T00:00:00Z",
			values:   []float64{0, 1.5},
			expected: []time.Time{epoch, epoch.Add(1500 * time.Millisecond)},
		},
		{
			units:    "days since 1970-01-01 00:00:00 UTC",
			values:   []float64{1},
			expected: []time.Time{epoch.Add(24 * time.Hour)},
		},
		{
			units:    "hours since 2016-06-01",
			values:   []float64{2},
			expected: []time.Time{time.Date(2016, 6, 1, 2, 0, 0, 0, time.UTC)},
		},
		{
			units:    "seconds since 1970-01-01T00:00:00Z",
			values:   []float64{-1.5},
			expected: []time.Time{epoch.Add(-1500 * time.Millisecond)},
		},
		{
			units:    "days since 0001-01-01 00:00:00",
			values:   []float64{736115, 736115.5},
			expected: []time.Time{time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2016, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
		{
			units:    "seconds since 1800-01-01",
			values:   []float64{6_795_100_800},
			expected: []time.Time{time.Date(2015, 5, 1, 0, 0, 0, 0, time.UTC)},
		},
		{units: "days since 1970-01-01", values: []float64{1e300}, fails: true},
		{units: "fortnights since 1970-01-01", values: []float64{1}, fails: true},
		{units: "seconds", values: []float64{1}, fails: true},
	}

	for _, c := range cases {
		t.Log(c.units)
		dates, err := Num2Date(c.values, c.units)
		if c.fails {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		for i := range dates {
			assert.True(t, dates[i].Equal(c.expected[i]), "got %v, wanted %v", dates[i], c.expected[i])
		}
	}
}
