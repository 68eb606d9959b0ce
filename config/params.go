package config

import (
	"slices"

	"qartod/qartod"
)

// Test identifiers, also used as prefix of the dotted configuration columns
const (
	FLAT_LINE      string = "flat_line"
	GROSS_RANGE    string = "gross_range"
	RATE_OF_CHANGE string = "rate_of_change"
	SPIKE          string = "spike"
	PRESSURE       string = "pressure"
)

// Parameters of the tests configured for a variable. Nil means the test is not configured.
type TestParams struct {
	GrossRange   *qartod.GrossRangeParams
	RateOfChange *RateOfChange
	Spike        *qartod.SpikeParams
	FlatLine     *qartod.FlatLineParams
	// The pressure test has no thresholds, any `pressure.*` column enables it
	Pressure bool
}

// Rate of change threshold as found in the configuration, i.e. before it is
// scaled to a rate per second
type RateOfChange struct {
	Threshold float64
}

// Has reports if the named test is configured
func (p TestParams) Has(test string) bool {
	switch test {
	case GROSS_RANGE:
		return p.GrossRange != nil
	case RATE_OF_CHANGE:
		return p.RateOfChange != nil
	case SPIKE:
		return p.Spike != nil
	case FLAT_LINE:
		return p.FlatLine != nil
	case PRESSURE:
		return p.Pressure
	}
	return false
}

func (r *Row) TestParams() TestParams {
	return TestParams{
		GrossRange:   r.grossRange(),
		RateOfChange: r.rateOfChange(),
		Spike:        r.spike(),
		FlatLine:     r.flatLine(),
		Pressure:     slices.Contains(r.Tests(), PRESSURE),
	}
}

// Returns the span only if both ends are set
func (r *Row) span(minKey, maxKey string) *qartod.Span {
	lo, okMin := r.Param(minKey)
	hi, okMax := r.Param(maxKey)
	if !okMin || !okMax {
		return nil
	}
	return &qartod.Span{Min: lo, Max: hi}
}

func (r *Row) grossRange() *qartod.GrossRangeParams {
	params := qartod.GrossRangeParams{
		SensorSpan: r.span("gross_range.sensor_min", "gross_range.sensor_max"),
		UserSpan:   r.span("gross_range.user_min", "gross_range.user_max"),
	}
	if params.SensorSpan == nil && params.UserSpan == nil {
		return nil
	}
	return &params
}

func (r *Row) rateOfChange() *RateOfChange {
	threshold, ok := r.Param("rate_of_change.threshold")
	if !ok {
		return nil
	}
	return &RateOfChange{Threshold: threshold}
}

func (r *Row) spike() *qartod.SpikeParams {
	var params qartod.SpikeParams
	if low, ok := r.Param("spike.low_threshold"); ok {
		params.LowThreshold = &low
	}
	if high, ok := r.Param("spike.high_threshold"); ok {
		params.HighThreshold = &high
	}
	if params.LowThreshold == nil && params.HighThreshold == nil {
		return nil
	}
	return &params
}

func (r *Row) flatLine() *qartod.FlatLineParams {
	var params qartod.FlatLineParams
	var found bool

	if low, ok := r.Param("flat_line.low_reps"); ok {
		reps := int(low)
		params.LowReps = &reps
		found = true
	}
	if high, ok := r.Param("flat_line.high_reps"); ok {
		reps := int(high)
		params.HighReps = &reps
		found = true
	}
	if eps, ok := r.Param("flat_line.epsilon"); ok {
		params.Eps = eps
		found = true
	} else {
		params.Eps = qartod.DEFAULT_EPSILON
	}

	if !found {
		return nil
	}
	return &params
}
