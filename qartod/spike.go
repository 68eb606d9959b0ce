package qartod

import (
	"errors"
	"fmt"
	"math"
)

type SpikeParams struct {
	LowThreshold  *float64
	HighThreshold *float64
}

// Fills in the missing threshold:
// with only a low threshold nothing is ever BAD, with only a high threshold nothing is SUSPECT
func (p SpikeParams) thresholds() (float64, float64, error) {
	switch {
	case p.LowThreshold == nil && p.HighThreshold == nil:
		return 0, 0, errors.New("spike: at least one threshold is required")
	case p.HighThreshold == nil:
		return *p.LowThreshold, math.Inf(1), nil
	case p.LowThreshold == nil:
		return *p.HighThreshold, *p.HighThreshold, nil
	}

	low, high := *p.LowThreshold, *p.HighThreshold
	if low >= high {
		return 0, 0, fmt.Errorf("spike: low threshold %v must be less than high threshold %v", low, high)
	}
	return low, high, nil
}

// Spike determines if a sample is a spike by taking the absolute difference between
// the sample and the midpoint of its two neighbours. Differences below the low
// threshold are GOOD, between the thresholds SUSPECT and above the high threshold BAD.
// The first and last samples cannot be evaluated and are considered GOOD.
func Spike(arr []float64, params SpikeParams) ([]Flag, error) {
	low, high, err := params.thresholds()
	if err != nil {
		return nil, err
	}

	flags := filled(len(arr), GOOD)
	for i := range arr {
		if math.IsNaN(arr[i]) {
			flags[i] = MISSING
			continue
		}
		if i == 0 || i == len(arr)-1 {
			continue
		}

		diff := math.Abs(arr[i] - (arr[i-1]+arr[i+1])/2)
		switch {
		case diff >= high:
			flags[i] = BAD
		case diff >= low:
			flags[i] = SUSPECT
		}
	}
	return flags, nil
}
