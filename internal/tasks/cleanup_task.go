package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type CleanupTask struct {
	Task
	pipeline Pipeline
}

func NewCleanupTask(pipeline Pipeline) *CleanupTask {
	return &CleanupTask{
		Task:     NewTask(TaskTypeCleanup, "articles"),
		pipeline: pipeline,
	}
}

func (t *CleanupTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deleted, err := t.pipeline.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"deleted", deleted)

	return nil
}
