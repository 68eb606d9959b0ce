package work

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickb777/period"

	cfg "qartod/config"
	"qartod/qc"
	"qartod/queue"
	"qartod/run"
)

type Config struct {
	Workers      int           `arg:"-n,--workers" default:"4" help:"Number of files processed concurrently"`
	Follow       bool          `arg:"--follow" help:"Keep polling for new jobs when the queue is empty"`
	Poll         time.Duration `arg:"--poll" default:"10s" help:"Interval between polls of an empty queue"`
	Retry        bool          `arg:"--retry" help:"Requeue failed and abandoned jobs before starting"`
	RateInterval string        `arg:"--rate-interval,env:QARTOD_RATE_INTERVAL" default:"PT1H" help:"ISO-8601 period the rate of change thresholds refer to"`
	Conn         string        `arg:"--conn,env:QARTOD_QUEUE_CONN" help:"Postgres connection string of the job queue"`
}

func (config *Config) Execute() error {
	if config.Workers < 1 {
		return fmt.Errorf("at least one worker is required, got %d", config.Workers)
	}
	interval, err := period.Parse(config.RateInterval)
	if err != nil {
		return fmt.Errorf("invalid rate interval %q: %w", config.RateInterval, err)
	}

	// Jobs already started are always completed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := queue.Connect(ctx, config.Conn)
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	defer pool.Close()

	if config.Retry {
		count, err := queue.Requeue(ctx, pool)
		if err != nil {
			return err
		}
		slog.Info("Requeued jobs", "count", count)
	}

	processed := config.drain(ctx, pool, cfg.NewCache(), qc.WithRateInterval(interval))

	counts, err := queue.Counts(context.Background(), pool)
	if err != nil {
		return err
	}
	slog.Info("Finished", "processed", processed, "pending", counts[queue.PENDING], "failed", counts[queue.FAILED])
	return nil
}

// Claims and processes jobs until the queue is empty, or until the context is
// cancelled when following the queue. Returns the number of processed jobs.
func (config *Config) drain(ctx context.Context, pool *pgxpool.Pool, cache *cfg.Cache, opts ...qc.Option) int {
	var processed int
	var mutex sync.Mutex

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, config.Workers)
	for ctx.Err() == nil {
		semaphore <- struct{}{}

		claim, err := queue.Claim(ctx, pool)
		if err != nil {
			<-semaphore
			if ctx.Err() != nil {
				break
			}
			if !errors.Is(err, queue.ErrNoJobs) {
				slog.Error(err.Error())
			} else if !config.Follow {
				break
			}

			select {
			case <-ctx.Done():
			case <-time.After(config.Poll):
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer func() {
				<-semaphore
				wg.Done()
			}()

			process(claim, cache, opts...)

			mutex.Lock()
			processed++
			mutex.Unlock()
		}()
	}
	wg.Wait()
	return processed
}

func process(claim *queue.ClaimedJob, cache *cfg.Cache, opts ...qc.Option) {
	// Job status is updated even after cancellation
	ctx := context.Background()
	logger := slog.With("job", claim.ID, "file", claim.FilePath)
	logger.Info("Processing")

	err := processJob(claim, cache, opts...)
	if err != nil {
		logger.Error(err.Error())
		if err := claim.Fail(ctx, err); err != nil {
			logger.Error("Could not mark job as failed", "error", err)
		}
		return
	}

	if err := claim.Complete(ctx); err != nil {
		logger.Error("Could not mark job as done", "error", err)
	}
}

func processJob(claim *queue.ClaimedJob, cache *cfg.Cache, opts ...qc.Option) error {
	table, err := cache.Get(claim.ConfigPath)
	if err != nil {
		return err
	}
	_, err = run.ProcessFile(claim.FilePath, table, opts...)
	return err
}
