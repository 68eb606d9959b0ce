package qc

import "fmt"

// Returned when the station of a dataset cannot be determined from its
// `platform` global attribute and the `ioos_code` of the platform variable
type StationIdentityError struct {
	Platform string
	Reason   string
}

func (e *StationIdentityError) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("cannot identify station: %s", e.Reason)
	}
	return fmt.Sprintf("cannot identify station from platform %q: %s", e.Platform, e.Reason)
}
