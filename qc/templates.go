package qc

import (
	"fmt"
	"time"

	"qartod/config"
	"qartod/qartod"
)

const (
	REFERENCES string = "http://gliders.ioos.us/static/pdf/Manual-for-QC-of-Glider-Data_05_09_16.pdf"
	// Suffix appended to the parent standard_name
	STATUS_FLAG string = " status_flag"
	// Name of the flag of the pressure test, there is a single one per dataset
	PRESSURE_FLAG          string = "qartod_monotonic_pressure_flag"
	PRESSURE_STANDARD_NAME string = "sea_water_pressure"
)

// Inputs of a single test invocation. Times are only decoded for the tests that need them.
type invocation struct {
	params config.TestParams
	// Rate of change threshold per second
	rate   float64
	times  []time.Time
	values []float64
}

// One kind of flag variable
type testKind struct {
	// Value of the `qartod_test` attribute, empty for the primary flag
	test string
	// Variable name, "%s" is replaced by the parent name
	pattern string
	// "%s" is replaced by the parent standard_name
	longName string
	// Nil for the primary flag, which is computed by ApplyPrimaryQC
	run       func(in invocation) ([]qartod.Flag, error)
	needTimes bool
}

func (k testKind) name(parent string) string {
	if k.test == config.PRESSURE {
		return PRESSURE_FLAG
	}
	return fmt.Sprintf(k.pattern, parent)
}

// The pressure flag only exists for pressure variables
func (k testKind) applies(standardName string) bool {
	return k.test != config.PRESSURE || standardName == PRESSURE_STANDARD_NAME
}

// Flag variables in creation order. The primary flag is last.
var templates = []testKind{
	{
		test:     config.FLAT_LINE,
		pattern:  "qartod_%s_flat_line_flag",
		longName: "QARTOD Flat Line Test for %s",
		run: func(in invocation) ([]qartod.Flag, error) {
			return qartod.FlatLine(in.values, *in.params.FlatLine)
		},
	},
	{
		test:     config.GROSS_RANGE,
		pattern:  "qartod_%s_gross_range_flag",
		longName: "QARTOD Gross Range Test for %s",
		run: func(in invocation) ([]qartod.Flag, error) {
			return qartod.GrossRange(in.values, *in.params.GrossRange)
		},
	},
	{
		test:     config.RATE_OF_CHANGE,
		pattern:  "qartod_%s_rate_of_change_flag",
		longName: "QARTOD Rate of Change Test for %s",
		run: func(in invocation) ([]qartod.Flag, error) {
			return qartod.RateOfChange(in.times, in.values, qartod.RateOfChangeParams{Threshold: in.rate})
		},
		needTimes: true,
	},
	{
		test:     config.SPIKE,
		pattern:  "qartod_%s_spike_flag",
		longName: "QARTOD Spike Test for %s",
		run: func(in invocation) ([]qartod.Flag, error) {
			return qartod.Spike(in.values, *in.params.Spike)
		},
		needTimes: true,
	},
	{
		test:     config.PRESSURE,
		longName: "QARTOD Pressure Test for %s",
		run: func(in invocation) ([]qartod.Flag, error) {
			return qartod.Pressure(in.values), nil
		},
	},
	{
		pattern:  "qartod_%s_primary_flag",
		longName: "QARTOD Primary Flag for %s",
	},
}

func kindOf(test string) (testKind, bool) {
	for _, k := range templates {
		if k.test != "" && k.test == test {
			return k, true
		}
	}
	return testKind{}, false
}

func primaryName(parent string) string {
	return fmt.Sprintf(templates[len(templates)-1].pattern, parent)
}

// FlagName returns the name of the flag variable of a test applied to a variable
func FlagName(variable, test string) string {
	if kind, ok := kindOf(test); ok {
		return kind.name(variable)
	}
	return fmt.Sprintf("qartod_%s_%s_flag", variable, test)
}
