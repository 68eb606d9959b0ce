// Package discovery finds the netCDF files that still need QC: the files whose flag
// variables, as expected from the configuration, are not all present yet.
//
// Files are expected under ROOT/<variable directory>/<station>/, the directory of a
// variable being its name unless the mappings say otherwise.
package discovery

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"qartod/config"
	"qartod/netcdf"
	"qartod/qc"
	"qartod/utils"
)

const NC_EXTENSION string = ".nc"

type Selector struct {
	Root     string
	Table    *config.Table
	Mappings config.Mappings
	// Suffix replacing ".nc" in the name of the file holding the flags of a data file.
	// Empty means the flags are stored in the data file itself.
	CompanionSuffix string
	// Only look at these stations. Empty means every station.
	Stations []string
	Logger   *slog.Logger

	// Variables found in each companion file, nil if missing or unreadable
	cache map[string][]string
}

// Companion returns the path of the file holding the flags of a data file
func (s *Selector) Companion(path string) string {
	if s.CompanionSuffix == "" {
		return path
	}
	return strings.TrimSuffix(path, NC_EXTENSION) + s.CompanionSuffix
}

func (s *Selector) isCompanion(path string) bool {
	return s.CompanionSuffix != "" && s.CompanionSuffix != NC_EXTENSION && strings.HasSuffix(path, s.CompanionSuffix)
}

func (s *Selector) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Select returns the sorted paths of the files that need QC
func (s *Selector) Select() ([]string, error) {
	s.cache = make(map[string][]string)
	selected := make(map[string]struct{})

	for _, row := range s.Table.Rows() {
		tests := row.Tests()
		if len(tests) == 0 {
			continue
		}

		dir := s.Mappings.Dir(row.Variable)
		expected := make([]string, len(tests))
		fallback := make([]string, len(tests))
		for i, test := range tests {
			expected[i] = qc.FlagName(row.Variable, test)
			fallback[i] = qc.FlagName(dir, test)
		}

		stationDirs, err := s.stationDirs(dir, row.StationID)
		if err != nil {
			return nil, err
		}
		if len(stationDirs) == 0 {
			s.logger().Debug("No station directory", "variable", row.Variable, "station", row.StationID)
		}

		for _, stationDir := range stationDirs {
			files, err := s.findFiles(stationDir, expected, fallback)
			if err != nil {
				return nil, err
			}
			for _, file := range files {
				selected[file] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(selected))
	for path := range selected {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}

// Directories of a station under a variable directory. The wildcard station matches
// every directory, or only the selected stations if any.
func (s *Selector) stationDirs(dir, station string) ([]string, error) {
	if station != config.WILDCARD {
		if !utils.IsEmptyOrContains(s.Stations, station) {
			return nil, nil
		}
		return filepath.Glob(filepath.Join(s.Root, dir, station))
	}

	if len(s.Stations) == 0 {
		return filepath.Glob(filepath.Join(s.Root, dir, station))
	}

	var dirs []string
	for _, selected := range s.Stations {
		matches, err := filepath.Glob(filepath.Join(s.Root, dir, selected))
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, matches...)
	}
	return dirs, nil
}

// Walks a station directory for data files missing any of the expected flags,
// under both naming schemes
func (s *Selector) findFiles(dir string, expected, fallback []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, NC_EXTENSION) || s.isCompanion(path) {
			return nil
		}

		variables := s.companionVariables(s.Companion(path))
		if !(containsAll(variables, expected) || containsAll(variables, fallback)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// A missing or unreadable companion counts as having no flag variables
func (s *Selector) companionVariables(path string) []string {
	if variables, ok := s.cache[path]; ok {
		return variables
	}

	var variables []string
	_, err := os.Stat(path)
	if err == nil {
		var file *netcdf.File
		file, err = netcdf.OpenReadOnly(path)
		if err == nil {
			variables = file.Variables()
			file.Close()
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		s.logger().Debug("No companion file", "path", path)
	default:
		s.logger().Warn("Could not read companion file", "path", path, "error", err)
	}

	s.cache[path] = variables
	return variables
}

func containsAll(set, subset []string) bool {
	for _, name := range subset {
		if !slices.Contains(set, name) {
			return false
		}
	}
	return true
}
