package schema

import (
	"context"
	"fmt"
	"log/slog"

	"qartod/queue"
)

type Config struct {
	Action string `arg:"positional,required" help:"Valid choices: [\"drop\", \"create\"]"`
	Conn   string `arg:"--conn,env:QARTOD_QUEUE_CONN" help:"Postgres connection string of the job queue"`
}

func (config *Config) Execute() error {
	ctx := context.Background()
	pool, err := queue.Connect(ctx, config.Conn)
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	defer pool.Close()

	switch config.Action {
	case "drop":
		return queue.DropSchema(ctx, pool)
	case "create":
		return queue.CreateSchema(ctx, pool)
	}
	return fmt.Errorf("Invalid argument '%s'", config.Action)
}
