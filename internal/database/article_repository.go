package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ ArticleRepository = (*ArticleStore)(nil)

// ArticleStore handles articles together with their enrichments, topic links and extracted content.
// The pool holds one connection, so a result set is always drained and closed before the next query.
type ArticleStore struct {
	db *DB
}

func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (r *ArticleStore) GetArticleIDByURL(ctx context.Context, url string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = ?`, url).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up article url: %w", err)
	}
	return id, true, nil
}

// Store inserts the article, its enrichment and its topic link in one transaction.
// When DemoteGroup is set every enrichment sharing the dedupe key loses its primary flag first.
func (r *ArticleStore) Store(ctx context.Context, na NewArticle) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	a := na.Article
	res, err := tx.ExecContext(ctx, `
		INSERT INTO articles (source_id, url, title_orig, summary_orig, lang_orig, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, a.SourceID, a.URL, a.TitleOrig, nullString(a.SummaryOrig), a.LangOrig,
		formatNullTime(a.PublishedAt), formatTime(a.FetchedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrDuplicateURL
	}

	articleID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get article id: %w", err)
	}

	e := na.Enrichment
	if na.DemoteGroup {
		if _, err := tx.ExecContext(ctx, `
			UPDATE article_enrichments SET is_primary_lang = 0 WHERE dedupe_key = ?
		`, e.DedupeKey); err != nil {
			return 0, fmt.Errorf("failed to demote duplicate group: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO article_enrichments (article_id, title, summary, finance_score, relevance_label, dedupe_key, is_primary_lang)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, articleID, e.Title, nullString(e.Summary), e.FinanceScore, e.RelevanceLabel, e.DedupeKey, e.IsPrimaryLang); err != nil {
		return 0, fmt.Errorf("failed to insert enrichment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO article_topics (article_id, topic_id) VALUES (?, ?)
		ON CONFLICT(article_id, topic_id) DO NOTHING
	`, articleID, na.TopicID); err != nil {
		return 0, fmt.Errorf("failed to link article topic: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit article: %w", err)
	}

	return articleID, nil
}

func (r *ArticleStore) LinkTopic(ctx context.Context, articleID, topicID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO article_topics (article_id, topic_id) VALUES (?, ?)
		ON CONFLICT(article_id, topic_id) DO NOTHING
	`, articleID, topicID)
	if err != nil {
		return fmt.Errorf("failed to link article topic: %w", err)
	}
	return nil
}

// ListDuplicateCandidates returns enrichments of articles published at or after since, oldest first.
func (r *ArticleStore) ListDuplicateCandidates(ctx context.Context, since time.Time) ([]DuplicateCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.article_id, e.title, COALESCE(e.summary, ''), e.finance_score, e.relevance_label,
		       e.dedupe_key, e.is_primary_lang, a.lang_orig, a.published_at
		FROM article_enrichments e
		JOIN articles a ON a.id = e.article_id
		WHERE a.published_at >= ?
		ORDER BY a.id
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate candidates: %w", err)
	}
	defer rows.Close()

	var candidates []DuplicateCandidate
	for rows.Next() {
		var c DuplicateCandidate
		var publishedAt sql.NullString
		if err := rows.Scan(&c.ArticleID, &c.Title, &c.Summary, &c.FinanceScore, &c.RelevanceLabel,
			&c.DedupeKey, &c.IsPrimaryLang, &c.LangOrig, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate candidate: %w", err)
		}
		if c.PublishedAt, err = parseNullTime(publishedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicate candidates: %w", err)
	}

	return candidates, nil
}

func (r *ArticleStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]ArticleView, error) {
	var where []string
	var args []any

	if filter.TopicID > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM article_topics t WHERE t.article_id = a.id AND t.topic_id = ?)`)
		args = append(args, filter.TopicID)
	}
	if filter.PrimaryOnly {
		where = append(where, `e.is_primary_lang = 1`)
	}
	if filter.Since != nil {
		where = append(where, `a.published_at >= ?`)
		args = append(args, formatTime(*filter.Since))
	}

	query := `
		SELECT a.id, a.source_id, a.url, a.title_orig, COALESCE(a.summary_orig, ''), a.lang_orig,
		       a.published_at, a.fetched_at,
		       e.title, COALESCE(e.summary, ''), e.finance_score, e.relevance_label, e.dedupe_key,
		       e.is_primary_lang, COALESCE(s.name, '')
		FROM articles a
		JOIN article_enrichments e ON e.article_id = a.id
		LEFT JOIN sources s ON s.id = a.source_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY a.published_at DESC, a.id DESC"
	if filter.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	var views []ArticleView
	for rows.Next() {
		var v ArticleView
		var publishedAt sql.NullString
		var fetchedAt string
		if err := rows.Scan(&v.Article.ID, &v.SourceID, &v.URL, &v.TitleOrig, &v.SummaryOrig, &v.LangOrig,
			&publishedAt, &fetchedAt,
			&v.Title, &v.Summary, &v.FinanceScore, &v.RelevanceLabel, &v.DedupeKey,
			&v.IsPrimaryLang, &v.SourceName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		v.ArticleID = v.Article.ID
		if v.PublishedAt, err = parseNullTime(publishedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if v.FetchedAt, err = parseTime(fetchedAt); err != nil {
			rows.Close()
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	rows.Close()

	for i := range views {
		topicIDs, err := r.listTopicIDs(ctx, views[i].Article.ID)
		if err != nil {
			return nil, err
		}
		views[i].TopicIDs = topicIDs
	}

	return views, nil
}

func (r *ArticleStore) listTopicIDs(ctx context.Context, articleID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT topic_id FROM article_topics WHERE article_id = ? ORDER BY topic_id
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list article topics: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan article topic: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *ArticleStore) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// DeletePublishedBefore removes articles published before cutoff together with their
// contents, enrichments and topic links. Articles without a publish date age out by fetch time.
func (r *ArticleStore) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c := formatTime(cutoff)
	expired := `SELECT id FROM articles WHERE published_at < ? OR (published_at IS NULL AND fetched_at < ?)`

	for _, table := range []string{"article_contents", "article_enrichments", "article_topics"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE article_id IN (`+expired+`)`, c, c); err != nil {
			return 0, fmt.Errorf("failed to delete expired %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id IN (`+expired+`)`, c, c)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired articles: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	return int(deleted), nil
}

// GetArticlesForExtraction returns the newest articles that have no extracted content yet.
func (r *ArticleStore) GetArticlesForExtraction(ctx context.Context, limit int) ([]ArticleForExtraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.url
		FROM articles a
		LEFT JOIN article_contents c ON c.article_id = a.id
		WHERE c.article_id IS NULL
		ORDER BY a.published_at DESC, a.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles for extraction: %w", err)
	}
	defer rows.Close()

	var items []ArticleForExtraction
	for rows.Next() {
		var item ArticleForExtraction
		if err := rows.Scan(&item.ID, &item.URL); err != nil {
			return nil, fmt.Errorf("failed to scan article for extraction: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *ArticleStore) SaveContent(ctx context.Context, articleID int64, status, content, errMsg string, extractedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO article_contents (article_id, status, content, error, extracted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(article_id) DO UPDATE SET
			status = excluded.status,
			content = excluded.content,
			error = excluded.error,
			extracted_at = excluded.extracted_at
	`, articleID, status, nullString(content), nullString(errMsg), formatTime(extractedAt))
	if err != nil {
		return fmt.Errorf("failed to save extracted content: %w", err)
	}
	return nil
}
