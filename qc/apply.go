package qc

import (
	"errors"
	"fmt"
	"time"

	"qartod/config"
	"qartod/netcdf"
	"qartod/qartod"
)

// Summary of a test applied to a variable
type Result struct {
	Variable string
	Test     string
	// Number of evaluated samples
	Total   int
	Flagged int
	Suspect int
}

// ApplyQC runs the test named by the `qartod_test` attribute of a flag variable
// on its parent and stores the flags at the positions where both the value and the
// time are present. The other positions are left unchanged.
//
// Returns nil without error when the flag variable is not a test flag (i.e. the primary
// flag) or when the test is not configured for the parent.
func (q *DatasetQC) ApplyQC(flagVariable string) (*Result, error) {
	flagVar, err := q.ds.Variable(flagVariable)
	if err != nil {
		return nil, err
	}

	test := netcdf.AttributeString(flagVar, "qartod_test")
	if test == "" {
		return nil, nil
	}
	kind, ok := kindOf(test)
	if !ok {
		return nil, fmt.Errorf("%s: unknown test %q", flagVariable, test)
	}

	parent, err := q.parentOf(flagVar)
	if err != nil {
		return nil, err
	}

	row, err := q.rowFor(parent.Name())
	if err != nil {
		return nil, err
	}
	params := row.TestParams()
	if !params.Has(test) {
		q.logger.Debug("Test not configured", "variable", parent.Name(), "test", test)
		return nil, nil
	}

	in := invocation{params: params}
	if test == config.RATE_OF_CHANGE {
		seconds, err := q.rateSeconds()
		if err != nil {
			return nil, err
		}
		in.rate = params.RateOfChange.Threshold / seconds
	}

	extracted, err := q.Unmasked(parent)
	if err != nil {
		return nil, err
	}
	in.values = extracted.Values

	if kind.needTimes {
		in.times, err = q.unmaskedTimes(extracted)
		if err != nil {
			return nil, err
		}
	}

	flags := []qartod.Flag{}
	if len(in.values) > 0 {
		flags, err = kind.run(in)
		if err != nil {
			return nil, fmt.Errorf("%s test on %s: %w", test, parent.Name(), err)
		}
	}

	if err := writeUnmasked(flagVar, flags, extracted.Mask); err != nil {
		return nil, err
	}

	result := &Result{
		Variable: parent.Name(),
		Test:     test,
		Total:    len(in.values),
		Flagged:  qartod.Count(flags, qartod.BAD),
		Suspect:  qartod.Count(flags, qartod.SUSPECT),
	}
	q.logger.Info("Flagged", "variable", parent.Name(), "test", test, "bad", result.Flagged, "total", result.Total)
	return result, nil
}

// The parent is the first variable with the standard_name of the flag, without the status_flag suffix
func (q *DatasetQC) parentOf(flagVar netcdf.Variable) (netcdf.Variable, error) {
	tokens := netcdf.SplitList(netcdf.AttributeString(flagVar, "standard_name"))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%s: missing standard_name", flagVar.Name())
	}

	candidates := q.ds.VariablesByAttribute("standard_name", tokens[0])
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no variable with standard_name %s for %s", netcdf.ErrNotFound, tokens[0], flagVar.Name())
	}
	return candidates[0], nil
}

// Decodes the times of the unmasked samples
func (q *DatasetQC) unmaskedTimes(e Extracted) ([]time.Time, error) {
	raw := netcdf.MaskedArray{Data: e.Times.Data, Mask: e.Mask}.Compressed()
	if len(raw) == 0 {
		return []time.Time{}, nil
	}

	timeVar, err := q.ds.Variable(TIME_VARIABLE)
	if err != nil {
		return nil, err
	}
	return netcdf.Num2Date(raw, netcdf.AttributeString(timeVar, "units"))
}

// Writes the flags at the unmasked positions, keeping the previous values elsewhere
func writeUnmasked(v netcdf.Variable, flags []qartod.Flag, mask []bool) error {
	current, err := v.Read()
	if err != nil {
		return err
	}
	if current.Len() != len(mask) {
		return fmt.Errorf("%s has %d samples, expected %d", v.Name(), current.Len(), len(mask))
	}

	data := current.Data
	j := 0
	for i, masked := range mask {
		if masked {
			if current.Mask[i] {
				data[i] = float64(qartod.MISSING)
			}
			continue
		}
		if j >= len(flags) {
			return fmt.Errorf("%s: got %d flags for more unmasked samples", v.Name(), len(flags))
		}
		data[i] = float64(flags[j])
		j++
	}
	if j != len(flags) {
		return fmt.Errorf("%s: got %d flags for %d unmasked samples", v.Name(), len(flags), j)
	}
	return v.Write(netcdf.MaskedArray{Data: data})
}

// Reads a flag variable, masked samples are MISSING
func readFlags(v netcdf.Variable) ([]qartod.Flag, error) {
	array, err := v.Read()
	if err != nil {
		return nil, err
	}
	flags := make([]qartod.Flag, array.Len())
	for i, x := range array.Data {
		if array.Mask[i] {
			flags[i] = qartod.MISSING
			continue
		}
		flags[i] = qartod.Flag(x)
	}
	return flags, nil
}

// ApplyPrimaryQC combines the flags of every other flag variable linked to the
// variable into its primary flag. Does nothing if the primary flag does not exist.
func (q *DatasetQC) ApplyPrimaryQC(variable string) error {
	parent, err := q.ds.Variable(variable)
	if err != nil {
		return err
	}

	name := primaryName(parent.Name())
	if !q.ds.HasVariable(name) {
		return nil
	}
	primary, err := q.ds.Variable(name)
	if err != nil {
		return err
	}

	var vectors [][]qartod.Flag
	for _, ancillary := range q.FindAncillaryVariables(parent) {
		if ancillary == name {
			continue
		}
		v, err := q.ds.Variable(ancillary)
		if err != nil {
			return err
		}
		flags, err := readFlags(v)
		if err != nil {
			return fmt.Errorf("%s: %w", ancillary, err)
		}
		vectors = append(vectors, flags)
	}

	flags, err := qartod.Compare(vectors)
	if err != nil {
		return fmt.Errorf("primary flag of %s: %w", parent.Name(), err)
	}
	if flags == nil {
		return nil
	}

	data := make([]float64, len(flags))
	for i, f := range flags {
		data[i] = float64(f)
	}
	return primary.Write(netcdf.MaskedArray{Data: data})
}

// Run applies every configured test and the primary flag to each geophysical
// variable of the dataset. A failing variable doesn't stop the others, the
// errors are joined. Only station identification errors abort the run.
func (q *DatasetQC) Run() ([]Result, error) {
	variables, err := q.FindGeophysicalVariables()
	if err != nil {
		return nil, err
	}

	var results []Result
	var errs []error
	for _, variable := range variables {
		logger := q.logger.With("variable", variable)
		logger.Info("Applying QC")

		variableResults, err := q.runVariable(variable)
		results = append(results, variableResults...)
		if err != nil {
			logger.Error(err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", variable, err))
		}
	}
	return results, errors.Join(errs...)
}

func (q *DatasetQC) runVariable(variable string) ([]Result, error) {
	names, err := q.CreateQCVariables(variable)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, name := range names {
		q.logger.Debug("Applying test", "flag", name)
		result, err := q.ApplyQC(name)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	q.logger.Info("Primary QC", "variable", variable)
	return results, q.ApplyPrimaryQC(variable)
}

// Tests reports the tests configured for a variable of the dataset
func (q *DatasetQC) Tests(variable string) (config.TestParams, error) {
	row, err := q.rowFor(variable)
	if err != nil {
		return config.TestParams{}, err
	}
	return row.TestParams(), nil
}
