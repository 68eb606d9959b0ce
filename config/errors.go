package config

import "fmt"

// Returned when no row matches a station and variable, not even a wildcard one
type ConfigNotFoundError struct {
	Station  string
	Variable string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no configuration found for %s and %s", e.Station, e.Variable)
}
