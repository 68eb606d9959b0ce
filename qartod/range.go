package qartod

import (
	"fmt"
	"math"
)

// Closed interval of valid values
type Span struct {
	Min float64
	Max float64
}

func (s Span) contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}

type GrossRangeParams struct {
	// Values outside this span are flagged BAD
	SensorSpan *Span
	// Values outside this span (but inside SensorSpan) are flagged SUSPECT
	UserSpan *Span
}

func (p GrossRangeParams) validate() error {
	if s := p.SensorSpan; s != nil && s.Min >= s.Max {
		return fmt.Errorf("gross range: sensor min %v must be less than sensor max %v", s.Min, s.Max)
	}
	if u := p.UserSpan; u != nil {
		if u.Min >= u.Max {
			return fmt.Errorf("gross range: user min %v must be less than user max %v", u.Min, u.Max)
		}
		if s := p.SensorSpan; s != nil && (u.Min < s.Min || u.Max > s.Max) {
			return fmt.Errorf("gross range: user span [%v, %v] must lie within sensor span [%v, %v]", u.Min, u.Max, s.Min, s.Max)
		}
	}
	return nil
}

// GrossRange flags values that fall outside the user span as SUSPECT and values
// outside the sensor span as BAD. NaN values are flagged MISSING.
func GrossRange(arr []float64, params GrossRangeParams) ([]Flag, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	flags := filled(len(arr), GOOD)
	for i, v := range arr {
		switch {
		case math.IsNaN(v):
			flags[i] = MISSING
		case params.SensorSpan != nil && !params.SensorSpan.contains(v):
			flags[i] = BAD
		case params.UserSpan != nil && !params.UserSpan.contains(v):
			flags[i] = SUSPECT
		}
	}
	return flags, nil
}
