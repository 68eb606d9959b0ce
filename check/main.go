package check

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	cfg "qartod/config"
	"qartod/qc"
	"qartod/utils"
)

type Config struct {
	Config    string   `arg:"-c,--config,env:QARTOD_CONFIG,required" help:"Configuration spreadsheet (.xlsx) or CSV file"`
	Station   string   `arg:"--station,required" help:"Station ID, e.g. leorgn"`
	Variables []string `arg:"--variable" help:"Optional space separated list of variables. Defaults to every variable configured for the station"`
}

func (config *Config) Execute() error {
	tbl, err := cfg.Load(config.Config)
	if err != nil {
		return err
	}
	return config.print(os.Stdout, tbl)
}

// Prints the resolved configuration of each variable
func (config *Config) print(w io.Writer, tbl *cfg.Table) error {
	configured := tbl.Variables(config.Station)
	variables := utils.FilterSlice(config.Variables, configured, "Variable '%s' is not configured for this station, skipping")

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"VARIABLE", "SOURCE", "UNITS", "TEST", "FLAG", "PARAMETERS"})
	for _, variable := range variables {
		row, err := tbl.Resolve(config.Station, variable)
		if err != nil {
			return err
		}

		source := "station"
		if !hasStationRow(tbl, config.Station, variable) {
			source = "wildcard"
		}
		units := "-"
		if row.Units != nil {
			units = *row.Units
		}

		tests := row.Tests()
		if len(tests) == 0 {
			tw.AppendRow(table.Row{variable, source, units, "-", "-", "-"})
		}
		for _, test := range tests {
			tw.AppendRow(table.Row{variable, source, units, test, qc.FlagName(variable, test), params(row, test)})
		}
	}
	tw.Render()
	return nil
}

func hasStationRow(tbl *cfg.Table, station, variable string) bool {
	for _, row := range tbl.Rows() {
		if row.StationID == station && row.Variable == variable {
			return true
		}
	}
	return false
}

// Formats the parameters of a test as "key=value" pairs
func params(row *cfg.Row, test string) string {
	var pairs []string
	for _, key := range sortedKeys(row.Params) {
		name, found := strings.CutPrefix(key, test+".")
		if !found {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", name, row.Params[key]))
	}
	return strings.Join(pairs, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
