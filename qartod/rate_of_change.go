package qartod

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type RateOfChangeParams struct {
	// Maximum allowed rate of change, in data units per second
	Threshold float64
}

// RateOfChange computes the first order difference between consecutive samples
// divided by the elapsed time, and flags as SUSPECT the samples that exceed the threshold.
// The first sample is always GOOD. NaN values are flagged MISSING.
func RateOfChange(times []time.Time, arr []float64, params RateOfChangeParams) ([]Flag, error) {
	if len(times) != len(arr) {
		return nil, fmt.Errorf("rate of change: got %d times for %d values", len(times), len(arr))
	}
	if params.Threshold < 0 || math.IsNaN(params.Threshold) {
		return nil, errors.New("rate of change: threshold must be a non-negative number")
	}

	flags := filled(len(arr), GOOD)
	for i := range arr {
		if math.IsNaN(arr[i]) {
			flags[i] = MISSING
			continue
		}
		if i == 0 {
			continue
		}

		elapsed := times[i].Sub(times[i-1]).Seconds()
		rate := math.Abs((arr[i] - arr[i-1]) / elapsed)
		// Zero elapsed time gives +Inf (or NaN for no change), only +Inf exceeds
		if rate > params.Threshold {
			flags[i] = SUSPECT
		}
	}
	return flags, nil
}
