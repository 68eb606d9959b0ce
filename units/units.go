// Package units maps CF unit strings onto go-units.
//
// Compound units such as "ug L-1", "mg/L" or "m s-1" are normalised so that
// different spellings of the same unit compare equal. They cannot be converted
// to another unit, Convert returns ErrCompoundUnit for them.
package units

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	u "github.com/bcicen/go-units"
)

// Unit string used by CF for dimensionless quantities
const DIMENSIONLESS string = "1"

var ErrCompoundUnit = errors.New("compound units cannot be converted")

// Returned when values cannot be converted between two unit strings
type UnitConversionError struct {
	From string
	To   string
	Err  error
}

func (e *UnitConversionError) Error() string {
	return fmt.Sprintf("cannot convert from %q to %q: %v", e.From, e.To, e.Err)
}

func (e *UnitConversionError) Unwrap() error {
	return e.Err
}

// UDUNITS spellings commonly found in CF attributes, mapped to the names known by go-units
var ALIASES = map[string]string{
	"degree_celsius":     "celsius",
	"degrees_celsius":    "celsius",
	"degree_c":           "celsius",
	"degrees_c":          "celsius",
	"degc":               "celsius",
	"deg_c":              "celsius",
	"celsius":            "celsius",
	"c":                  "celsius",
	"degree_fahrenheit":  "fahrenheit",
	"degrees_fahrenheit": "fahrenheit",
	"degree_f":           "fahrenheit",
	"degrees_f":          "fahrenheit",
	"degf":               "fahrenheit",
	"deg_f":              "fahrenheit",
	"fahrenheit":         "fahrenheit",
	"f":                  "fahrenheit",
	"k":                  "kelvin",
	"kelvin":             "kelvin",
	"m":                  "meter",
	"meter":              "meter",
	"meters":             "meter",
	"metre":              "meter",
	"metres":             "meter",
	"cm":                 "centimeter",
	"mm":                 "millimeter",
	"km":                 "kilometer",
	"ft":                 "foot",
	"feet":               "foot",
	"foot":               "foot",
	"in":                 "inch",
	"inch":               "inch",
	"inches":             "inch",
	"pa":                 "pascal",
	"hpa":                "hectopascal",
	"kpa":                "kilopascal",
	"bar":                "bar",
	"mbar":               "millibar",
	"psi":                "psi",
	"l":                  "liter",
	"ml":                 "milliliter",
	"s":                  "second",
	"min":                "minute",
	"h":                  "hour",
	"hr":                 "hour",
}

// Canonical returns the go-units name for a CF unit string, or the trimmed
// input if no alias is known. Compound units are returned as space separated
// factors with their exponents, e.g. "liter-1 microgram" for "ug/L".
func Canonical(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if name, ok := ALIASES[strings.ToLower(trimmed)]; ok {
		return name
	}
	if factors, ok := compound(trimmed); ok {
		return factors
	}
	return trimmed
}

// Factor names used only inside compound units
var FACTOR_ALIASES = map[string]string{
	"ug":   "microgram",
	"µg":   "microgram",
	"μg":   "microgram",
	"mg":   "milligram",
	"g":    "gram",
	"kg":   "kilogram",
	"umol": "micromole",
	"µmol": "micromole",
	"μmol": "micromole",
	"mmol": "millimole",
	"mol":  "mole",
}

// Splits a UDUNITS product like "m s-1", "m/s" or "kg.m^-3" into sorted factors.
// Reports false for single units.
func compound(unit string) (string, bool) {
	if !strings.ContainsAny(unit, " /.*^") {
		return "", false
	}

	unit = strings.ReplaceAll(unit, "**", "^")
	unit = strings.NewReplacer("/", " / ", ".", " ", "*", " ").Replace(unit)

	var factors []string
	divide := false
	for _, token := range strings.Fields(unit) {
		if token == "/" {
			divide = true
			continue
		}

		base, exp := splitExponent(token)
		if divide {
			exp = -exp
			divide = false
		}

		name := strings.ToLower(base)
		if alias, ok := FACTOR_ALIASES[name]; ok {
			name = alias
		} else if alias, ok := ALIASES[name]; ok {
			name = alias
		}
		if exp != 1 {
			name += strconv.Itoa(exp)
		}
		factors = append(factors, name)
	}

	if len(factors) < 2 {
		return "", false
	}
	slices.Sort(factors)
	return strings.Join(factors, " "), true
}

// Splits "s-1", "m2" or "m^2" into base and exponent
func splitExponent(token string) (string, int) {
	i := len(token)
	for i > 0 && token[i-1] >= '0' && token[i-1] <= '9' {
		i--
	}
	if i == len(token) {
		return token, 1
	}
	if i > 0 && (token[i-1] == '-' || token[i-1] == '+') {
		i--
	}

	base := strings.TrimSuffix(token[:i], "^")
	exp, err := strconv.Atoi(token[i:])
	if base == "" || err != nil {
		return token, 1
	}
	return base, exp
}

// Equivalent reports if two unit strings name the same unit
func Equivalent(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Convert converts values from one unit to another.
// The input slice is never modified.
func Convert(values []float64, from, to string) ([]float64, error) {
	out := make([]float64, len(values))
	if Equivalent(from, to) {
		copy(out, values)
		return out, nil
	}

	if _, ok := compound(strings.TrimSpace(from)); ok {
		return nil, &UnitConversionError{From: from, To: to, Err: ErrCompoundUnit}
	}
	if _, ok := compound(strings.TrimSpace(to)); ok {
		return nil, &UnitConversionError{From: from, To: to, Err: ErrCompoundUnit}
	}

	fromUnit, err := u.Find(Canonical(from))
	if err != nil {
		return nil, &UnitConversionError{From: from, To: to, Err: err}
	}
	toUnit, err := u.Find(Canonical(to))
	if err != nil {
		return nil, &UnitConversionError{From: from, To: to, Err: err}
	}

	for i, v := range values {
		converted, err := u.ConvertFloat(v, fromUnit, toUnit)
		if err != nil {
			return nil, &UnitConversionError{From: from, To: to, Err: err}
		}
		out[i] = converted.Float()
	}
	return out, nil
}
