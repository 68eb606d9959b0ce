package run

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/gofrs/flock"
	"github.com/rickb777/period"

	cfg "qartod/config"
	"qartod/qc"
	"qartod/utils"
)

var ErrLocked = errors.New("file is being processed by another run")

// Suffix of the lock file created next to each processed file.
// Lock files are left in place, removing them would let two processes lock different inodes.
const LOCK_SUFFIX string = ".lock"

type Config struct {
	Config       string   `arg:"-c,--config,env:QARTOD_CONFIG,required" help:"Configuration spreadsheet (.xlsx) or CSV file"`
	Files        []string `arg:"positional,required" help:"netCDF files to apply QC to, modified in place"`
	Report       string   `arg:"--report" help:"Write a CSV summary of the results to this file"`
	RateInterval string   `arg:"--rate-interval,env:QARTOD_RATE_INTERVAL" default:"PT1H" help:"ISO-8601 period the rate of change thresholds refer to"`
}

// Line of the CSV report
type ReportRow struct {
	File     string `csv:"file"`
	Variable string `csv:"variable"`
	Test     string `csv:"test"`
	Total    int    `csv:"total"`
	Bad      int    `csv:"bad"`
	Suspect  int    `csv:"suspect"`
	Error    string `csv:"error"`
}

func (config *Config) Execute() error {
	table, err := cfg.Load(config.Config)
	if err != nil {
		slog.Error(err.Error())
		return err
	}

	interval, err := period.Parse(config.RateInterval)
	if err != nil {
		return fmt.Errorf("invalid rate interval %q: %w", config.RateInterval, err)
	}

	var report []ReportRow
	var failed int

	bar := utils.NewBar(len(config.Files), "Files")
	for _, path := range config.Files {
		rows, err := ProcessFile(path, table, qc.WithRateInterval(interval))
		report = append(report, rows...)
		switch {
		case errors.Is(err, ErrLocked):
			slog.Warn("Skipping file", "file", path, "reason", err)
		case err != nil:
			failed++
			slog.Error(err.Error(), "file", path)
		}
		bar.Add(1)
	}

	if config.Report != "" {
		if err := writeReport(config.Report, report); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("QC failed for %d/%d files", failed, len(config.Files))
	}
	return nil
}

// ProcessFile runs QC on a file while holding a lock next to it.
// Returns ErrLocked if another process holds the lock.
func ProcessFile(path string, table *cfg.Table, opts ...qc.Option) ([]ReportRow, error) {
	lock := flock.New(path + LOCK_SUFFIX)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not lock %s: %w", path, err)
	}
	if !locked {
		return []ReportRow{{File: path, Error: ErrLocked.Error()}}, ErrLocked
	}
	defer lock.Unlock()

	results, err := qc.RunFile(path, table, opts...)
	rows := make([]ReportRow, 0, len(results)+1)
	for _, r := range results {
		rows = append(rows, ReportRow{
			File:     path,
			Variable: r.Variable,
			Test:     r.Test,
			Total:    r.Total,
			Bad:      r.Flagged,
			Suspect:  r.Suspect,
		})
	}
	if err != nil {
		rows = append(rows, ReportRow{File: path, Error: err.Error()})
	}
	return rows, err
}

func writeReport(path string, rows []ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	err = gocsv.MarshalFile(&rows, file)
	return errors.Join(err, file.Close())
}
