package qartod

import (
	"errors"
	"fmt"
	"math"
)

// Default tolerance used when the flat line epsilon is not configured (float32 machine epsilon)
const DEFAULT_EPSILON float64 = 1.1920929e-07

type FlatLineParams struct {
	// Number of identical preceding values that make a sample SUSPECT
	LowReps *int
	// Number of identical preceding values that make a sample BAD
	HighReps *int
	// Tolerance used to decide if two values are identical
	Eps float64
}

func (p FlatLineParams) validate() error {
	if p.LowReps == nil || p.HighReps == nil {
		return errors.New("flat line: both low and high repetitions are required")
	}
	if *p.LowReps >= *p.HighReps {
		return fmt.Errorf("flat line: low reps %d must be less than high reps %d", *p.LowReps, *p.HighReps)
	}
	if *p.LowReps < 1 {
		return fmt.Errorf("flat line: low reps must be positive, got %d", *p.LowReps)
	}
	return nil
}

// FlatLine checks for consecutively repeated values within a tolerance.
// A sample is SUSPECT when the LowReps values preceding it are all within Eps of it,
// and BAD when the HighReps preceding values are.
// Arrays not longer than LowReps cannot be evaluated.
func FlatLine(arr []float64, params FlatLineParams) ([]Flag, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	low, high := *params.LowReps, *params.HighReps

	flags := make([]Flag, len(arr))
	if low >= len(arr) {
		for idx := range flags {
			flags[idx] = NOT_EVALUATED
		}
		return flags, nil
	}

	for idx, elem := range arr {
		if math.IsNaN(elem) {
			flags[idx] = MISSING
			continue
		}

		flag := GOOD
		if idx >= low && allWithin(arr[idx-low:idx], elem, params.Eps) {
			flag = SUSPECT
			if idx >= high && allWithin(arr[idx-high:idx-low], elem, params.Eps) {
				flag = BAD
			}
		}
		flags[idx] = flag
	}
	return flags, nil
}

func allWithin(window []float64, ref, eps float64) bool {
	for _, v := range window {
		// NaN comparisons are always false, so missing values break the line
		if !(math.Abs(v-ref) < eps) {
			return false
		}
	}
	return true
}
