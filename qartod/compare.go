package qartod

import "fmt"

// Compare aggregates the results of multiple tests into a single flag per sample.
// For each sample the most severe flag wins (NOT_EVALUATED < GOOD < SUSPECT < BAD).
// MISSING is only returned when every input is MISSING at that sample.
func Compare(vectors [][]Flag) ([]Flag, error) {
	if len(vectors) == 0 {
		return nil, nil
	}

	size := len(vectors[0])
	for i, v := range vectors {
		if len(v) != size {
			return nil, fmt.Errorf("compare: vector %d has length %d, expected %d", i, len(v), size)
		}
	}

	flags := filled(size, MISSING)
	for _, v := range vectors {
		for i, f := range v {
			if f.severity() > flags[i].severity() {
				flags[i] = f
			}
		}
	}
	return flags, nil
}
