package database

import (
	"context"
	"time"
)

type TopicRepository interface {
	GetTopic(ctx context.Context, id int64) (*Topic, error)
	ListTopics(ctx context.Context) ([]Topic, error)
	ListEnabledTopics(ctx context.Context) ([]Topic, error)
	GetTopicCount(ctx context.Context) (int, error)

	CreateTopic(ctx context.Context, topic Topic) (int64, error)
	UpdateTopic(ctx context.Context, topic Topic) error
}

type SourceRepository interface {
	GetSource(ctx context.Context, id int64) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	ListEligibleSources(ctx context.Context, topicID int64) ([]Source, error)
	GetSourceCount(ctx context.Context) (int, error)

	CreateSource(ctx context.Context, source Source) (int64, error)
	UpdateSource(ctx context.Context, source Source) error
}

type ArticleRepository interface {
	GetArticleIDByURL(ctx context.Context, url string) (int64, bool, error)
	Store(ctx context.Context, article NewArticle) (int64, error)
	LinkTopic(ctx context.Context, articleID, topicID int64) error

	ListDuplicateCandidates(ctx context.Context, since time.Time) ([]DuplicateCandidate, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]ArticleView, error)
	GetArticleCount(ctx context.Context) (int, error)

	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int, error)

	GetArticlesForExtraction(ctx context.Context, limit int) ([]ArticleForExtraction, error)
	SaveContent(ctx context.Context, articleID int64, status, content, errMsg string, extractedAt time.Time) error
}

type FetchRunRepository interface {
	StartRun(ctx context.Context, topicID, sourceID int64, startedAt time.Time) (int64, error)
	FinishRun(ctx context.Context, id int64, status, errMsg string, finishedAt time.Time) error
	ListRuns(ctx context.Context, filter RunFilter) ([]FetchRun, error)
	GetRunStats(ctx context.Context) (map[string]int, error)
}
