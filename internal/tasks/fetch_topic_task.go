package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsdesk/internal/database"
)

type FetchTopicTask struct {
	Task
	TopicID   int64
	pipeline  Pipeline
	topicRepo database.TopicRepository
}

func NewFetchTopicTask(topicID int64, topicName string, pipeline Pipeline, topicRepo database.TopicRepository) *FetchTopicTask {
	return &FetchTopicTask{
		Task:      NewTask(TaskTypeFetchTopic, topicName),
		TopicID:   topicID,
		pipeline:  pipeline,
		topicRepo: topicRepo,
	}
}

// Execute re-reads the topic so edits made since the job was scheduled apply.
func (t *FetchTopicTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	topic, err := t.topicRepo.GetTopic(ctx, t.TopicID)
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil || !topic.Enabled {
		slog.Debug("Topic missing or disabled, skipping", "topic_id", t.TopicID)
		return nil
	}

	added, err := t.pipeline.RunTopic(ctx, *topic)
	if err != nil {
		return fmt.Errorf("failed to fetch topic: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"topic", topic.Name,
		"duration", t.GetDuration(),
		"added", added)

	return nil
}
