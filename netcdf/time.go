package netcdf

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Layouts accepted for the reference date of CF time units
var REFERENCE_LAYOUTS = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// Parses CF time units of the form "<unit> since <reference date>",
// e.g. "seconds since 1970-01-01T00:00:00Z". Only the standard calendar is supported.
func ParseTimeUnits(units string) (step time.Duration, epoch time.Time, err error) {
	unit, reference, found := strings.Cut(strings.TrimSpace(units), " since ")
	if !found {
		return 0, epoch, fmt.Errorf("invalid time units %q: expected '<unit> since <date>'", units)
	}

	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "milliseconds", "millisecond", "msec", "msecs", "ms":
		step = time.Millisecond
	case "seconds", "second", "sec", "secs", "s":
		step = time.Second
	case "minutes", "minute", "min", "mins":
		step = time.Minute
	case "hours", "hour", "hr", "hrs", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, epoch, fmt.Errorf("unsupported time unit %q in %q", unit, units)
	}

	epoch, err = parseReference(reference)
	if err != nil {
		return 0, epoch, fmt.Errorf("invalid reference date in time units %q: %w", units, err)
	}
	return step, epoch, nil
}

func parseReference(reference string) (time.Time, error) {
	reference = strings.TrimSpace(reference)
	reference = strings.TrimSuffix(reference, " UTC")
	reference = strings.TrimSuffix(reference, " utc")

	for _, layout := range REFERENCE_LAYOUTS {
		if t, err := time.Parse(layout, reference); err == nil {
			return t.UTC(), nil
		}
	}

	// Trailing "Z" without a full RFC3339 timestamp, e.g. "1970-01-01 00:00:00Z"
	if trimmed := strings.TrimSuffix(reference, "Z"); trimmed != reference {
		return parseReference(trimmed)
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", reference)
}

// Offsets beyond this many seconds from the reference date are rejected
const MAX_OFFSET_SECONDS float64 = 1 << 62

// Num2Date converts numeric time values to timestamps using CF time units.
// Timestamps are truncated to millisecond precision.
func Num2Date(values []float64, units string) ([]time.Time, error) {
	step, epoch, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot convert non-finite time value at index %d", i)
		}

		// Whole seconds and the millisecond remainder are kept apart,
		// a single time.Duration overflows after ~292 years
		total := v * step.Seconds()
		if math.Abs(total) >= MAX_OFFSET_SECONDS {
			return nil, fmt.Errorf("time value %v at index %d is out of range for units %q", v, i, units)
		}
		secs := math.Floor(total)
		millis := int64(math.Round((total - secs) * 1e3))
		if millis == 1000 {
			secs++
			millis = 0
		}

		nsec := int64(epoch.Nanosecond()) + millis*int64(time.Millisecond)
		out[i] = time.Unix(epoch.Unix()+int64(secs), nsec).UTC()
	}
	return out, nil
}
