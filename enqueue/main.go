package enqueue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	cfg "qartod/config"
	"qartod/discovery"
	"qartod/queue"
	"qartod/utils"
)

// Number of jobs inserted per batch
const CHUNK_SIZE int = 1000

type Config struct {
	Config          string           `arg:"-c,--config,env:QARTOD_CONFIG,required" help:"Configuration spreadsheet (.xlsx) or CSV file"`
	Root            string           `arg:"positional,required" help:"Root directory of the data files, organised as ROOT/<variable>/<station>/"`
	Mappings        string           `arg:"--mappings" help:"File with the variable to directory mappings. Defaults to the Mappings sheet of the configuration"`
	CompanionSuffix string           `arg:"--companion-suffix" help:"Suffix replacing .nc in the name of the files holding the flags, if not stored in the data files"`
	Stations        []string         `arg:"--station" help:"Optional space separated list of stations"`
	Since           *utils.Timestamp `arg:"--since" help:"Only enqueue files modified after this date (YYYY-MM-DD)"`
	DryRun          bool             `arg:"--dry-run" help:"Print the files that need QC without enqueueing them"`
	Conn            string           `arg:"--conn,env:QARTOD_QUEUE_CONN" help:"Postgres connection string of the job queue"`
}

func (config *Config) Execute() error {
	files, err := config.Discover()
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	slog.Info("Files needing QC", "count", len(files))

	if config.DryRun {
		for _, file := range files {
			fmt.Println(file)
		}
		return nil
	}

	// Workers might run from another directory
	configPath, err := filepath.Abs(config.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := queue.Connect(ctx, config.Conn)
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	defer pool.Close()

	var total int64
	bar := utils.NewBar(len(files), "Enqueueing")
	for start := 0; start < len(files); start += CHUNK_SIZE {
		chunk := files[start:min(start+CHUNK_SIZE, len(files))]
		count, err := queue.Enqueue(ctx, pool, configPath, chunk)
		if err != nil {
			return err
		}
		total += count
		bar.Add(len(chunk))
	}

	fmt.Printf("%d/%d files enqueued\n", total, len(files))
	return nil
}

// A CSV configuration has no Mappings sheet
func (config *Config) loadMappings() (cfg.Mappings, error) {
	switch {
	case config.Mappings != "":
		return cfg.LoadMappings(config.Mappings)
	case strings.EqualFold(filepath.Ext(config.Config), ".csv"):
		return cfg.Mappings{}, nil
	}
	return cfg.LoadMappings(config.Config)
}

// Discover returns the absolute paths of the files that need QC
func (config *Config) Discover() ([]string, error) {
	table, err := cfg.Load(config.Config)
	if err != nil {
		return nil, err
	}

	mappings, err := config.loadMappings()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, err
	}

	selector := discovery.Selector{
		Root:            root,
		Table:           table,
		Mappings:        mappings,
		CompanionSuffix: config.CompanionSuffix,
		Stations:        config.Stations,
	}
	files, err := selector.Select()
	if err != nil {
		return nil, err
	}

	if config.Since == nil {
		return files, nil
	}

	recent := files[:0]
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			slog.Warn(err.Error())
			continue
		}
		if config.Since.Before(info.ModTime()) {
			recent = append(recent, file)
		}
	}
	return recent, nil
}
