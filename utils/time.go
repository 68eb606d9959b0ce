package utils

import (
	"fmt"
	"time"
)

// Date passed on the command line, "YYYY-MM-DD" or "now"
type Timestamp struct {
	t time.Time
}

func (ts *Timestamp) UnmarshalText(b []byte) error {
	if string(b) == "now" {
		ts.t = time.Now().UTC()
		return nil
	}

	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("Only the date-only format (\"YYYY-MM-DD\") is allowed. Got %s", b)
	}
	ts.t = t
	return nil
}

func (ts *Timestamp) Time() time.Time {
	return ts.t
}

func (ts *Timestamp) Before(t time.Time) bool {
	return ts.t.Before(t)
}
