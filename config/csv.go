package config

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// LoadCSV reads the configuration from a CSV file with a header row
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	slog.Info("Loading config", "path", path)

	// CSVToMaps loses the column order, read the header separately
	reader := bufio.NewReader(file)
	headerLine, err := reader.ReadString('\n')
	if err != nil && headerLine == "" {
		return nil, fmt.Errorf("%s: missing header: %w", path, err)
	}
	header, err := csv.NewReader(strings.NewReader(headerLine)).Read()
	if err != nil {
		return nil, fmt.Errorf("%s: invalid header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}
	records, err := gocsv.CSVToMaps(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	table, err := fromRecords(header, trimKeys(records))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func trimKeys(records []map[string]string) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, record := range records {
		trimmed := make(map[string]string, len(record))
		for k, v := range record {
			trimmed[strings.TrimSpace(k)] = v
		}
		out[i] = trimmed
	}
	return out
}

type mappingRow struct {
	VarName string `csv:"var_name"`
	VarDir  string `csv:"var_dir"`
}

// LoadMappingsCSV reads variable name to directory mappings from a CSV file with
// `var_name` and `var_dir` columns
func LoadMappingsCSV(path string) (Mappings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []mappingRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	mappings := make(Mappings, len(rows))
	for _, row := range rows {
		mappings.add(strings.TrimSpace(row.VarName), strings.TrimSpace(row.VarDir))
	}
	return mappings, nil
}
