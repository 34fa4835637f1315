package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

// ExtractContentTask fetches the full page of recently stored articles and keeps the readable text.
// Failures are recorded per article so the same page is not retried on every run.
type ExtractContentTask struct {
	Task
	articleRepo database.ArticleRepository
	pages       PageFetcher
	extractor   ContentExtractor
	limit       int
	timeout     time.Duration
}

func NewExtractContentTask(articleRepo database.ArticleRepository, pages PageFetcher, extractor ContentExtractor, limit int, timeout time.Duration) *ExtractContentTask {
	return &ExtractContentTask{
		Task:        NewTask(TaskTypeExtractContent, "articles"),
		articleRepo: articleRepo,
		pages:       pages,
		extractor:   extractor,
		limit:       limit,
		timeout:     timeout,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	articles, err := t.articleRepo.GetArticlesForExtraction(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("failed to get articles for content extraction: %w", err)
	}

	if len(articles) == 0 {
		slog.Debug("No articles need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, article := range articles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractArticle(ctx, article); err != nil {
			slog.Error("Failed to extract content for article", "article_id", article.ID, "url", article.URL, "error", err)
			errorCount++

			if err := t.articleRepo.SaveContent(ctx, article.ID, database.ContentStatusFailed, "", err.Error(), time.Now().UTC()); err != nil {
				slog.Error("Failed to update content extraction status", "article_id", article.ID, "error", err)
			}
			continue
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractArticle(ctx context.Context, article database.ArticleForExtraction) error {
	if article.URL == "" {
		return fmt.Errorf("article has no url")
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	data, err := t.pages.FetchPage(ctx, article.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article page: %w", err)
	}

	content, err := t.extractor.Run(data, article.URL)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	if err := t.articleRepo.SaveContent(ctx, article.ID, database.ContentStatusSuccess, content, "", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "article_id", article.ID, "url", article.URL, "content_length", len(content))
	return nil
}
