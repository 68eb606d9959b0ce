package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	CONFIG_SHEET   string = "Variable Config"
	MAPPINGS_SHEET string = "Mappings"
)

// LoadXLSX reads the configuration from the "Variable Config" sheet of a workbook,
// or from its first sheet if there is no sheet with that name
func LoadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	sheet := CONFIG_SHEET
	if !slices.Contains(sheets, sheet) {
		sheet = sheets[0]
	}
	slog.Info("Loading config", "path", path, "sheet", sheet)

	header, records, err := sheetRecords(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	table, err := fromRecords(header, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// LoadMappingsXLSX reads the variable name to directory mappings from the
// "Mappings" sheet. A workbook without that sheet has no mappings.
func LoadMappingsXLSX(path string) (Mappings, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if !slices.Contains(f.GetSheetList(), MAPPINGS_SHEET) {
		return Mappings{}, nil
	}

	_, records, err := sheetRecords(f, MAPPINGS_SHEET)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	mappings := make(Mappings, len(records))
	for _, record := range records {
		mappings.add(cell(record, "var_name"), cell(record, "var_dir"))
	}
	return mappings, nil
}

// Reads a sheet whose first row is the header
func sheetRecords(f *excelize.File, sheet string) ([]string, []map[string]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			// Trailing empty cells are not returned by GetRows
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}
	return header, records, nil
}
