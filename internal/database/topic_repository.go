package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ TopicRepository = (*TopicStore)(nil)

// TopicStore handles database operations for topics
type TopicStore struct {
	db *DB
}

func NewTopicStore(db *DB) *TopicStore {
	return &TopicStore{db: db}
}

const topicColumns = `id, name, name_en, keywords, is_core, enabled, created_at`

func (r *TopicStore) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return topic, nil
}

func (r *TopicStore) ListTopics(ctx context.Context) ([]Topic, error) {
	return r.listTopics(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY id`)
}

func (r *TopicStore) ListEnabledTopics(ctx context.Context) ([]Topic, error) {
	return r.listTopics(ctx, `SELECT `+topicColumns+` FROM topics WHERE enabled = 1 ORDER BY id`)
}

func (r *TopicStore) listTopics(ctx context.Context, query string) ([]Topic, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}

	return topics, nil
}

func (r *TopicStore) GetTopicCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return count, nil
}

func (r *TopicStore) CreateTopic(ctx context.Context, topic Topic) (int64, error) {
	createdAt := topic.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO topics (name, name_en, keywords, is_core, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, topic.Name, topic.NameEn, topic.Keywords, topic.IsCore, topic.Enabled, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create topic: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get topic id: %w", err)
	}

	return id, nil
}

func (r *TopicStore) UpdateTopic(ctx context.Context, topic Topic) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE topics
		SET name = ?, name_en = ?, keywords = ?, is_core = ?, enabled = ?
		WHERE id = ?
	`, topic.Name, topic.NameEn, topic.Keywords, topic.IsCore, topic.Enabled, topic.ID)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*Topic, error) {
	var topic Topic
	var createdAt string

	if err := row.Scan(&topic.ID, &topic.Name, &topic.NameEn, &topic.Keywords,
		&topic.IsCore, &topic.Enabled, &createdAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	topic.CreatedAt = t

	return &topic, nil
}
