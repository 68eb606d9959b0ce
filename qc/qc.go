// Package qc applies QARTOD tests to the geophysical variables of a dataset and
// stores the results as flag variables next to them.
//
// A DatasetQC must be the only writer of its dataset while it runs: callers are
// expected to hold a lock on the underlying file (see the run and work commands).
package qc

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rickb777/period"

	"qartod/config"
	"qartod/netcdf"
)

// Name of the variable holding the sample times
const TIME_VARIABLE string = "time"

// Period the configured rate of change thresholds refer to
const DEFAULT_RATE_INTERVAL string = "PT1H"

type DatasetQC struct {
	ds     netcdf.Dataset
	table  *config.Table
	logger *slog.Logger
	// Converts rate of change thresholds to a rate per second
	rateInterval period.Period

	// Cached after the first successful lookup
	station string
}

type Option func(*DatasetQC)

func WithLogger(logger *slog.Logger) Option {
	return func(q *DatasetQC) {
		q.logger = logger
	}
}

func WithRateInterval(p period.Period) Option {
	return func(q *DatasetQC) {
		q.rateInterval = p
	}
}

func New(ds netcdf.Dataset, table *config.Table, opts ...Option) *DatasetQC {
	q := &DatasetQC{
		ds:           ds,
		table:        table,
		logger:       slog.Default(),
		rateInterval: period.MustParse(DEFAULT_RATE_INTERVAL),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Returns the length of the rate interval in seconds, measured from the Unix epoch
func (q *DatasetQC) rateSeconds() (float64, error) {
	ref := time.Unix(0, 0).UTC()
	end, ok := q.rateInterval.AddTo(ref)
	if !ok {
		return 0, fmt.Errorf("could not add rate interval %s", q.rateInterval)
	}
	seconds := end.Sub(ref).Seconds()
	if seconds <= 0 {
		return 0, fmt.Errorf("rate interval %s must be positive", q.rateInterval)
	}
	return seconds, nil
}

// StationID returns the last colon separated segment of the `ioos_code`
// attribute of the platform variable, e.g. "leorgn" for "urn:ioos:station:glos:leorgn"
func (q *DatasetQC) StationID() (string, error) {
	if q.station != "" {
		return q.station, nil
	}

	platform := netcdf.AttributeString(q.ds, "platform")
	if platform == "" {
		return "", &StationIdentityError{Reason: "missing global attribute platform"}
	}

	v, err := q.ds.Variable(platform)
	if err != nil {
		return "", &StationIdentityError{Platform: platform, Reason: "no variable matches this name"}
	}

	code := netcdf.AttributeString(v, "ioos_code")
	if code == "" {
		return "", &StationIdentityError{Platform: platform, Reason: "missing attribute ioos_code"}
	}

	segments := strings.Split(code, ":")
	q.station = strings.TrimSpace(segments[len(segments)-1])
	if q.station == "" {
		return "", &StationIdentityError{Platform: platform, Reason: fmt.Sprintf("invalid ioos_code %q", code)}
	}
	return q.station, nil
}

// FindGeophysicalVariables returns the sorted names of the dataset variables that
// are configured for the station of the dataset
func (q *DatasetQC) FindGeophysicalVariables() ([]string, error) {
	station, err := q.StationID()
	if err != nil {
		return nil, err
	}
	q.logger.Info("Station ID", "station", station)

	configured := q.table.Variables(station)
	q.logger.Info("Configured variables", "variables", strings.Join(configured, ", "))

	var variables []string
	for _, name := range configured {
		if q.ds.HasVariable(name) {
			variables = append(variables, name)
		}
	}
	slices.Sort(variables)
	return variables, nil
}

// Resolves the configuration row of a variable for the dataset station
func (q *DatasetQC) rowFor(variable string) (*config.Row, error) {
	station, err := q.StationID()
	if err != nil {
		return nil, err
	}
	return q.table.Resolve(station, variable)
}

// FindAncillaryVariables returns the variables listed in the `ancillary_variables`
// attribute of v that exist in the dataset. The legacy `<name>_qc` variable is skipped.
func (q *DatasetQC) FindAncillaryVariables(v netcdf.Variable) []string {
	legacy := v.Name() + "_qc"

	var names []string
	for _, name := range netcdf.SplitList(netcdf.AttributeString(v, "ancillary_variables")) {
		if name == legacy || !q.ds.HasVariable(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// NeedsQC reports if the variable has no flag variables yet
func (q *DatasetQC) NeedsQC(v netcdf.Variable) bool {
	return len(q.FindAncillaryVariables(v)) == 0
}
