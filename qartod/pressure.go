package qartod

import "math"

// Pressure checks that a pressure series is monotonic: a sample that does not
// change with respect to the previous one is flagged SUSPECT.
// Changes of direction are allowed, since profilers go both up and down.
func Pressure(pressure []float64) []Flag {
	flags := filled(len(pressure), GOOD)
	for i := range pressure {
		if math.IsNaN(pressure[i]) {
			flags[i] = MISSING
			continue
		}
		if i > 0 && pressure[i] == pressure[i-1] {
			flags[i] = SUSPECT
		}
	}
	return flags
}
