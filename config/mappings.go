package config

import (
	"path/filepath"
	"strings"
)

// Maps variable names to the directory their files are stored in,
// for variables whose directory is named differently
type Mappings map[string]string

func (m Mappings) add(variable, dir string) {
	if variable == "" || dir == "" {
		return
	}
	m[variable] = dir
}

// Dir returns the directory of a variable, defaulting to the variable name
func (m Mappings) Dir(variable string) string {
	if dir, ok := m[variable]; ok {
		return dir
	}
	return variable
}

// LoadMappings reads the mappings from the "Mappings" sheet of a workbook, or from a CSV file
func LoadMappings(path string) (Mappings, error) {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return LoadMappingsCSV(path)
	}
	return LoadMappingsXLSX(path)
}
