package qc

import (
	"errors"
	"fmt"

	"qartod/netcdf"
	"qartod/units"
)

// Values of a variable ready to be tested
type Extracted struct {
	// Raw time values of every sample, masked or not
	Times netcdf.MaskedArray
	// Values at the unmasked positions, converted to the configured units
	Values []float64
	// Units of Values
	Units string
	// True where either the time or the value is missing
	Mask []bool
}

// Unmasked reads a variable along with the sample times and removes the samples
// where either one is missing. Values are converted to the units of the configuration
// when both the file and the configuration declare one. Failed conversions are logged
// and the values are returned unconverted.
func (q *DatasetQC) Unmasked(v netcdf.Variable) (Extracted, error) {
	timeVar, err := q.ds.Variable(TIME_VARIABLE)
	if err != nil {
		return Extracted{}, err
	}
	times, err := timeVar.Read()
	if err != nil {
		return Extracted{}, err
	}
	values, err := v.Read()
	if err != nil {
		return Extracted{}, err
	}
	if values.Len() != times.Len() {
		return Extracted{}, fmt.Errorf("%s has %d samples, %s has %d", v.Name(), values.Len(), TIME_VARIABLE, times.Len())
	}

	mask := make([]bool, times.Len())
	for i := range mask {
		mask[i] = times.Mask[i] || values.Mask[i]
	}
	clean := netcdf.MaskedArray{Data: values.Data, Mask: mask}.Compressed()

	row, err := q.rowFor(v.Name())
	if err != nil {
		return Extracted{}, err
	}

	out := Extracted{Times: times, Values: clean, Units: units.DIMENSIONLESS, Mask: mask}
	from := netcdf.AttributeString(v, "units")
	if from == "" || row.Units == nil || *row.Units == "" {
		return out, nil
	}

	out.Units = from
	if units.Equivalent(from, *row.Units) {
		return out, nil
	}

	converted, err := units.Convert(clean, from, *row.Units)
	var conversionErr *units.UnitConversionError
	if errors.As(err, &conversionErr) {
		q.logger.Warn("Caught exception while converting units", "variable", v.Name(), "error", err)
		return out, nil
	}
	if err != nil {
		return Extracted{}, err
	}

	out.Values = converted
	out.Units = *row.Units
	return out, nil
}
