package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Struct mimicking the `qartod.jobs` table
type Job struct {
	ID         int64      `db:"id"`
	ConfigPath string     `db:"config_path"`
	FilePath   string     `db:"file_path"`
	Status     string     `db:"status"`
	Attempts   int32      `db:"attempts"`
	Error      *string    `db:"error"`
	EnqueuedAt time.Time  `db:"enqueued_at"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// Job claimed by a worker. The connection holding the file lock is released by
// Complete or Fail.
type ClaimedJob struct {
	Job
	conn *pgxpool.Conn
}

// Enqueue adds a job for each file, skipping the files already pending or running
// with the same configuration. Returns the number of jobs added.
func Enqueue(ctx context.Context, pool *pgxpool.Pool, configPath string, files []string) (int64, error) {
	batch := &pgx.Batch{}
	for _, file := range files {
		batch.Queue(
			`INSERT INTO qartod.jobs (config_path, file_path) VALUES ($1, $2)
                ON CONFLICT (config_path, file_path) WHERE status IN ('pending', 'running') DO NOTHING`,
			configPath, file,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	var count int64
	for range files {
		tag, err := results.Exec()
		if err != nil {
			return count, err
		}
		count += tag.RowsAffected()
	}

	logStr := fmt.Sprintf("%v/%v jobs enqueued", count, len(files))
	if int(count) != len(files) {
		slog.Warn(logStr + " (the others were already queued)")
	} else {
		slog.Info(logStr)
	}
	return count, nil
}

// Claim marks the oldest pending job as running and locks its file.
// Returns ErrNoJobs if no job is pending, or if the file of the oldest one is
// locked by another worker.
func Claim(ctx context.Context, pool *pgxpool.Pool) (*ClaimedJob, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx,
		`UPDATE qartod.jobs SET status = 'running', started_at = now(), attempts = attempts + 1
            WHERE id = (
                SELECT id FROM qartod.jobs
                WHERE status = 'pending'
                AND file_path NOT IN (SELECT file_path FROM qartod.jobs WHERE status = 'running')
                ORDER BY id
                FOR UPDATE SKIP LOCKED
                LIMIT 1
            )
            RETURNING *`,
	)
	if err != nil {
		conn.Release()
		return nil, err
	}

	job, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Job])
	if errors.Is(err, pgx.ErrNoRows) {
		conn.Release()
		return nil, ErrNoJobs
	}
	if err != nil {
		conn.Release()
		return nil, err
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", job.FilePath).Scan(&locked); err != nil {
		conn.Release()
		return nil, err
	}
	if !locked {
		// Still processed by a worker whose job row was reset
		_, err := conn.Exec(ctx,
			"UPDATE qartod.jobs SET status = 'pending', attempts = attempts - 1 WHERE id = $1", job.ID,
		)
		conn.Release()
		if err != nil {
			return nil, err
		}
		slog.Debug("File locked by another worker", "file", job.FilePath)
		return nil, ErrNoJobs
	}

	job.Status = RUNNING
	return &ClaimedJob{Job: job, conn: conn}, nil
}

func (c *ClaimedJob) Complete(ctx context.Context) error {
	return c.finish(ctx, DONE, nil)
}

// Fail marks the job as failed and stores the error message
func (c *ClaimedJob) Fail(ctx context.Context, cause error) error {
	msg := cause.Error()
	return c.finish(ctx, FAILED, &msg)
}

func (c *ClaimedJob) finish(ctx context.Context, status string, msg *string) error {
	if c.conn == nil {
		return fmt.Errorf("job %d already finished", c.ID)
	}
	defer func() {
		c.conn.Release()
		c.conn = nil
	}()

	_, err := c.conn.Exec(ctx,
		"UPDATE qartod.jobs SET status = $1, error = $2, finished_at = now() WHERE id = $3",
		status, msg, c.ID,
	)

	// The lock must be released even if the update failed
	_, unlockErr := c.conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtext($1))", c.FilePath)
	if err == nil && unlockErr == nil {
		c.Status = status
		c.Error = msg
	}
	return errors.Join(err, unlockErr)
}

// Requeue moves the failed jobs, and the running jobs whose worker died (i.e. whose
// file is not locked), back to pending. Only the latest job of each configuration
// and file pair is considered. Returns the number of requeued jobs.
func Requeue(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	tag, err := pool.Exec(ctx,
		`UPDATE qartod.jobs j SET status = 'pending', error = NULL
            WHERE (j.status = 'failed'
                OR (j.status = 'running' AND NOT EXISTS (
                    SELECT 1 FROM pg_locks l
                    WHERE l.locktype = 'advisory' AND l.objsubid = 1
                    AND l.objid::int = hashtext(j.file_path) AND l.granted
                )))
            AND j.id = (
                SELECT max(id) FROM qartod.jobs
                WHERE config_path = j.config_path AND file_path = j.file_path
            )
            AND NOT EXISTS (
                SELECT 1 FROM qartod.jobs o
                WHERE o.config_path = j.config_path AND o.file_path = j.file_path
                AND o.status IN ('pending', 'running') AND o.id <> j.id
            )`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Counts returns the number of jobs per status
func Counts(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	rows, err := pool.Query(ctx, "SELECT status, count(*) FROM qartod.jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
