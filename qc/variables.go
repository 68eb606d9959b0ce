package qc

import (
	"fmt"
	"slices"
	"strings"

	"qartod/netcdf"
	"qartod/qartod"
)

// CreateQCVariables creates the flag variables of a geophysical variable, or reuses
// them if they already exist, and links them through `ancillary_variables`.
// Attributes are rewritten on every call.
// Returns the names of the flag variables, the primary flag included.
func (q *DatasetQC) CreateQCVariables(variable string) ([]string, error) {
	parent, err := q.ds.Variable(variable)
	if err != nil {
		return nil, err
	}
	standardName := netcdf.AttributeString(parent, "standard_name")

	var names []string
	for _, kind := range templates {
		if !kind.applies(standardName) {
			continue
		}

		name := kind.name(parent.Name())
		flagVar, err := q.locateOrCreate(name, parent)
		if err != nil {
			return nil, err
		}

		flagVar.SetAttribute("units", "1")
		flagVar.SetAttribute("standard_name", standardName+STATUS_FLAG)
		flagVar.SetAttribute("long_name", fmt.Sprintf(kind.longName, standardName))
		flagVar.SetAttribute("flag_values", slices.Clone(qartod.FLAG_VALUES))
		flagVar.SetAttribute("flag_meanings", qartod.FLAG_MEANINGS)
		flagVar.SetAttribute("references", REFERENCES)
		if kind.test != "" {
			flagVar.SetAttribute("qartod_test", kind.test)
		}

		names = append(names, name)
		appendAncillaryVariable(parent, name)
	}
	return names, nil
}

func (q *DatasetQC) locateOrCreate(name string, parent netcdf.Variable) (netcdf.Variable, error) {
	if q.ds.HasVariable(name) {
		return q.ds.Variable(name)
	}

	v, err := q.ds.CreateVariable(name, netcdf.Int8, parent.Dimensions(), float64(qartod.MISSING))
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", name, err)
	}
	q.logger.Info("Created flag variable", "variable", name)
	return v, nil
}

// Adds child to the `ancillary_variables` of parent, unless it's already listed
func appendAncillaryVariable(parent netcdf.Variable, child string) {
	ancillary := netcdf.SplitList(netcdf.AttributeString(parent, "ancillary_variables"))
	if slices.Contains(ancillary, child) {
		return
	}
	ancillary = append(ancillary, child)
	parent.SetAttribute("ancillary_variables", strings.Join(ancillary, " "))
}
