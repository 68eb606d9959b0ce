package qartod

// QARTOD flags are single byte codes attached to each sample of a timeseries:
//
//	1 - GOOD           Check passed
//	2 - NOT_EVALUATED  Check was not run, or could not be run, on this sample
//	3 - SUSPECT        Check failed softly, the value is probably wrong
//	4 - BAD            Check failed, the value is wrong
//	9 - MISSING        The sample is missing (fill value, NaN, masked time)
//
// Every test in this package returns one flag per input sample.
type Flag int8

const (
	GOOD          Flag = 1
	NOT_EVALUATED Flag = 2
	SUSPECT       Flag = 3
	BAD           Flag = 4
	MISSING       Flag = 9
)

// Values and meanings stored as `flag_values` and `flag_meanings` attributes
var FLAG_VALUES = []int8{int8(GOOD), int8(NOT_EVALUATED), int8(SUSPECT), int8(BAD), int8(MISSING)}

const FLAG_MEANINGS = "GOOD NOT_EVALUATED SUSPECT BAD MISSING"

func (f Flag) String() string {
	switch f {
	case GOOD:
		return "GOOD"
	case NOT_EVALUATED:
		return "NOT_EVALUATED"
	case SUSPECT:
		return "SUSPECT"
	case BAD:
		return "BAD"
	case MISSING:
		return "MISSING"
	}
	return "UNKNOWN"
}

// Ordering used when flags are combined. MISSING is handled separately by Compare.
func (f Flag) severity() int {
	switch f {
	case NOT_EVALUATED:
		return 1
	case GOOD:
		return 2
	case SUSPECT:
		return 3
	case BAD:
		return 4
	}
	return 0
}

// Count returns how many flags in the slice are equal to f
func Count(flags []Flag, f Flag) int {
	var n int
	for _, flag := range flags {
		if flag == f {
			n++
		}
	}
	return n
}

func filled(size int, f Flag) []Flag {
	flags := make([]Flag, size)
	for i := range flags {
		flags[i] = f
	}
	return flags
}
