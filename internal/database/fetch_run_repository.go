package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ FetchRunRepository = (*FetchRunStore)(nil)

// FetchRunStore records one audit row per source fetch attempt
type FetchRunStore struct {
	db *DB
}

func NewFetchRunStore(db *DB) *FetchRunStore {
	return &FetchRunStore{db: db}
}

func (r *FetchRunStore) StartRun(ctx context.Context, topicID, sourceID int64, startedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fetch_runs (topic_id, source_id, status, started_at) VALUES (?, ?, ?, ?)
	`, topicID, sourceID, RunStatusRunning, formatTime(startedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to start fetch run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get fetch run id: %w", err)
	}

	return id, nil
}

func (r *FetchRunStore) FinishRun(ctx context.Context, id int64, status, errMsg string, finishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE fetch_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, nullString(errMsg), formatTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("failed to finish fetch run: %w", err)
	}
	return nil
}

func (r *FetchRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]FetchRun, error) {
	var where []string
	var args []any

	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, filter.Status)
	}
	if filter.TopicID > 0 {
		where = append(where, `topic_id = ?`)
		args = append(args, filter.TopicID)
	}

	query := `SELECT id, topic_id, source_id, status, started_at, finished_at, COALESCE(error, '') FROM fetch_runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []FetchRun
	for rows.Next() {
		var run FetchRun
		var topicID, sourceID sql.NullInt64
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(&run.ID, &topicID, &sourceID, &run.Status, &startedAt, &finishedAt, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan fetch run: %w", err)
		}

		run.TopicID = int64Ptr(topicID)
		run.SourceID = int64Ptr(sourceID)
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseNullTime(finishedAt); err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetch runs: %w", err)
	}

	return runs, nil
}

// GetRunStats returns the number of fetch runs per status
func (r *FetchRunStore) GetRunStats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM fetch_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch run stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{
		RunStatusRunning: 0,
		RunStatusSuccess: 0,
		RunStatusFailed:  0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan fetch run stats: %w", err)
		}
		stats[status] = count
	}

	return stats, rows.Err()
}
