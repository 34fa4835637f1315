package ingest

import (
	"context"
	"iter"
	"time"

	"github.com/lysyi3m/newsdesk/internal/classify"
	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/feed"
)

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (iter.Seq[feed.Entry], error)
}

type RelevanceClassifier interface {
	Decide(ctx context.Context, title, summary string, keywords []string) classify.Verdict
}

type DuplicateFinder interface {
	FindNearDuplicate(ctx context.Context, title string, published *time.Time) (*database.DuplicateCandidate, error)
}

type EntryTranslator interface {
	Translate(ctx context.Context, lang, title, summary string) (string, string)
}

type LanguageDetector interface {
	Detect(text string) string
}
