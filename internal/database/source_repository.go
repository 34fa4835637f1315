package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceStore)(nil)

// SourceStore handles database operations for feed sources
type SourceStore struct {
	db *DB
}

func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, name, url, lang, priority, topic_id, enabled, created_at`

func (r *SourceStore) GetSource(ctx context.Context, id int64) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

func (r *SourceStore) ListSources(ctx context.Context) ([]Source, error) {
	return r.listSources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY priority DESC, id`)
}

// ListEligibleSources returns enabled sources that are topic-agnostic or bound to topicID,
// highest priority first.
func (r *SourceStore) ListEligibleSources(ctx context.Context, topicID int64) ([]Source, error) {
	return r.listSources(ctx, `
		SELECT `+sourceColumns+` FROM sources
		WHERE enabled = 1 AND (topic_id IS NULL OR topic_id = ?)
		ORDER BY priority DESC, id
	`, topicID)
}

func (r *SourceStore) listSources(ctx context.Context, query string, args ...any) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return sources, nil
}

func (r *SourceStore) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

func (r *SourceStore) CreateSource(ctx context.Context, source Source) (int64, error) {
	createdAt := source.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, lang, priority, topic_id, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, source.Name, source.URL, source.Lang, source.Priority, nullInt64(source.TopicID),
		source.Enabled, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get source id: %w", err)
	}

	return id, nil
}

func (r *SourceStore) UpdateSource(ctx context.Context, source Source) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET name = ?, url = ?, lang = ?, priority = ?, topic_id = ?, enabled = ?
		WHERE id = ?
	`, source.Name, source.URL, source.Lang, source.Priority, nullInt64(source.TopicID),
		source.Enabled, source.ID)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	return nil
}

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	var topicID sql.NullInt64
	var createdAt string

	if err := row.Scan(&source.ID, &source.Name, &source.URL, &source.Lang, &source.Priority,
		&topicID, &source.Enabled, &createdAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	source.CreatedAt = t
	source.TopicID = int64Ptr(topicID)

	return &source, nil
}
