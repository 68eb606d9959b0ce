package qc

import (
	"errors"
	"log/slog"

	"qartod/config"
	"qartod/netcdf"
)

// RunFile loads a netCDF file, runs QC on it and writes it back.
// The file is saved even if some variables failed, their errors are returned
// along with the results of the others.
func RunFile(path string, table *config.Table, opts ...Option) ([]Result, error) {
	file, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithLogger(slog.Default().With("file", path))}, opts...)
	results, runErr := New(file, table, opts...).Run()

	var identityErr *StationIdentityError
	if errors.As(runErr, &identityErr) {
		return nil, runErr
	}
	return results, errors.Join(runErr, file.Close())
}
