// Package config holds the QC configuration table: one row per station and variable,
// with the thresholds of each test stored in dotted `test.parameter` columns.
//
// A row whose station is "*" applies to every station that doesn't have a row of
// its own for the same variable.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Station ID matching any station
const WILDCARD string = "*"

// Columns required in every configuration table
var REQUIRED_COLUMNS = []string{"station_id", "variable", "units"}

type Row struct {
	StationID string
	Variable  string
	// Target units of the variable. Nil means no unit conversion
	Units *string
	// Non-null dotted `test.parameter` fields
	Params map[string]float64
}

func (r *Row) Param(key string) (float64, bool) {
	v, ok := r.Params[key]
	return v, ok
}

// Tests returns the sorted names of the tests that have at least one parameter set
func (r *Row) Tests() []string {
	var tests []string
	for key := range r.Params {
		test, _, _ := strings.Cut(key, ".")
		if !slices.Contains(tests, test) {
			tests = append(tests, test)
		}
	}
	slices.Sort(tests)
	return tests
}

func (r *Row) IsWildcard() bool {
	return r.StationID == WILDCARD
}

func (r Row) clone() Row {
	params := make(map[string]float64, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	r.Params = params
	if r.Units != nil {
		units := *r.Units
		r.Units = &units
	}
	return r
}

// Table is immutable after loading and can be shared between goroutines
type Table struct {
	rows []Row
}

func NewTable(rows []Row) *Table {
	return &Table{rows: rows}
}

// Load reads a table from a spreadsheet (.xlsx) or a CSV file, based on the extension
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	}
	return nil, fmt.Errorf("unsupported configuration format: %s", path)
}

// Rows returns a copy of the table rows in file order
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		rows[i] = row.clone()
	}
	return rows
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Resolve returns the configuration of a variable for a station.
// A row for the station itself takes priority over a wildcard row; when several rows
// have the same priority the first one in the table is used.
// The StationID of the returned row is always set to stationID.
func (t *Table) Resolve(stationID, variable string) (*Row, error) {
	var wildcard *Row
	for i := range t.rows {
		row := &t.rows[i]
		if row.Variable != variable {
			continue
		}

		if row.StationID == stationID {
			resolved := row.clone()
			return &resolved, nil
		}
		if row.IsWildcard() && wildcard == nil {
			wildcard = row
		}
	}

	if wildcard == nil {
		return nil, &ConfigNotFoundError{Station: stationID, Variable: variable}
	}
	resolved := wildcard.clone()
	resolved.StationID = stationID
	return &resolved, nil
}

// Variables returns the variables configured for a station: the ones with a
// station specific row plus the wildcard ones not already covered, in table order
func (t *Table) Variables(stationID string) []string {
	var local, universal []string
	for _, row := range t.rows {
		switch {
		case row.StationID == stationID:
			if !slices.Contains(local, row.Variable) {
				local = append(local, row.Variable)
			}
		case row.IsWildcard():
			if !slices.Contains(universal, row.Variable) {
				universal = append(universal, row.Variable)
			}
		}
	}

	for _, variable := range universal {
		if !slices.Contains(local, variable) {
			local = append(local, variable)
		}
	}
	return local
}

// Builds a table from string records keyed by column name.
// Line numbers in errors are 1-based and include the header.
func fromRecords(header []string, records []map[string]string) (*Table, error) {
	for _, column := range REQUIRED_COLUMNS {
		if !slices.Contains(header, column) {
			return nil, fmt.Errorf("configuration is missing required column %q", column)
		}
	}

	rows := make([]Row, 0, len(records))
	for i, record := range records {
		row, err := rowFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if row == nil {
			continue
		}
		rows = append(rows, *row)
	}
	return NewTable(rows), nil
}

// Returns nil for blank lines
func rowFromRecord(record map[string]string) (*Row, error) {
	station := cell(record, "station_id")
	variable := cell(record, "variable")
	if station == "" && variable == "" {
		return nil, nil
	}
	if station == "" || variable == "" {
		return nil, fmt.Errorf("both station_id and variable are required, got %q and %q", station, variable)
	}

	row := &Row{StationID: station, Variable: variable, Params: make(map[string]float64)}
	if units := cell(record, "units"); units != "" {
		row.Units = &units
	}

	for key := range record {
		if !strings.Contains(key, ".") {
			continue
		}
		raw := cell(record, key)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
		}
		row.Params[key] = value
	}
	return row, nil
}

// Returns the trimmed cell, treating spreadsheet nulls as empty
func cell(record map[string]string, key string) string {
	value := strings.TrimSpace(record[key])
	switch strings.ToLower(value) {
	case "nan", "null", "none", "#n/a":
		return ""
	}
	return value
}
