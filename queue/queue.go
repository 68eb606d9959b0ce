// Package queue stores QC jobs in Postgres. A job is a (configuration, file) pair.
//
// Workers claim jobs with `FOR UPDATE SKIP LOCKED` and hold a session level advisory
// lock on the file path while the job runs, so a file is never processed by two
// workers at the same time, even when it's queued with different configurations.
package queue

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const QUEUE_ENV_VAR string = "QARTOD_QUEUE_CONN"

const (
	PENDING string = "pending"
	RUNNING string = "running"
	DONE    string = "done"
	FAILED  string = "failed"
)

var ErrNoJobs = errors.New("no jobs available")

//go:embed sql/create.sql
var createSchema string

//go:embed sql/drop.sql
var dropSchema string

// Connect opens a pool and checks the connection
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to the job queue: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not connect to the job queue: %w", err)
	}
	return pool, nil
}

func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("Creating queue schema...")
	if _, err := pool.Exec(ctx, createSchema); err != nil {
		return err
	}
	slog.Info("Finished creating queue schema!")
	return nil
}

func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("Dropping queue schema...")
	if _, err := pool.Exec(ctx, dropSchema); err != nil {
		return err
	}
	slog.Info("Finished dropping queue schema!")
	return nil
}
