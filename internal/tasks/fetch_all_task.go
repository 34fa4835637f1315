package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type FetchAllTask struct {
	Task
	pipeline Pipeline
}

func NewFetchAllTask(pipeline Pipeline) *FetchAllTask {
	return &FetchAllTask{
		Task:     NewTask(TaskTypeFetchAll, "all"),
		pipeline: pipeline,
	}
}

func (t *FetchAllTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	added, err := t.pipeline.RunAll(ctx)

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"added", added)

	if err != nil {
		return fmt.Errorf("fetch all finished with errors: %w", err)
	}
	return nil
}
