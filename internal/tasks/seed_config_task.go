package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/newsdesk/internal/cfg"
	"github.com/lysyi3m/newsdesk/internal/database"
)

// SeedConfigTask populates topics and sources from the seed file. Each table is only seeded
// while it is empty, so edits made through the API are never overwritten.
type SeedConfigTask struct {
	Task
	seed       *cfg.Seed
	topicRepo  database.TopicRepository
	sourceRepo database.SourceRepository
}

func NewSeedConfigTask(seed *cfg.Seed, topicRepo database.TopicRepository, sourceRepo database.SourceRepository) *SeedConfigTask {
	return &SeedConfigTask{
		Task:       NewTask(TaskTypeSeedConfig, "seed"),
		seed:       seed,
		topicRepo:  topicRepo,
		sourceRepo: sourceRepo,
	}
}

func (t *SeedConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	topicsAdded, err := t.seedTopics(ctx)
	if err != nil {
		return err
	}

	sourcesAdded, err := t.seedSources(ctx)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"topics", topicsAdded,
		"sources", sourcesAdded)

	return nil
}

func (t *SeedConfigTask) seedTopics(ctx context.Context) (int, error) {
	count, err := t.topicRepo.GetTopicCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	if count > 0 {
		slog.Debug("Topics already present, skipping seed", "count", count)
		return 0, nil
	}

	added := 0
	for _, st := range t.seed.Topics {
		_, err := t.topicRepo.CreateTopic(ctx, database.Topic{
			Name:     strings.TrimSpace(st.Name),
			NameEn:   st.NameEn,
			Keywords: database.JoinKeywords(st.Keywords),
			IsCore:   st.IsCore,
			Enabled:  st.IsEnabled(),
		})
		if err != nil {
			return added, fmt.Errorf("failed to seed topic %s: %w", st.Name, err)
		}
		added++
	}
	return added, nil
}

func (t *SeedConfigTask) seedSources(ctx context.Context) (int, error) {
	count, err := t.sourceRepo.GetSourceCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	if count > 0 {
		slog.Debug("Sources already present, skipping seed", "count", count)
		return 0, nil
	}

	topics, err := t.topicRepo.ListTopics(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list topics: %w", err)
	}
	topicIDs := make(map[string]int64, len(topics))
	for _, topic := range topics {
		topicIDs[topic.Name] = topic.ID
	}

	added := 0
	for _, ss := range t.seed.Sources {
		source := database.Source{
			Name:     ss.Name,
			URL:      ss.URL,
			Lang:     ss.Lang,
			Priority: ss.Priority,
			Enabled:  ss.IsEnabled(),
		}
		if ss.Topic != "" {
			id, ok := topicIDs[ss.Topic]
			if !ok {
				slog.Warn("Seed source references unknown topic, skipping", "url", ss.URL, "topic", ss.Topic)
				continue
			}
			source.TopicID = &id
		}

		if _, err := t.sourceRepo.CreateSource(ctx, source); err != nil {
			return added, fmt.Errorf("failed to seed source %s: %w", ss.URL, err)
		}
		added++
	}
	return added, nil
}
