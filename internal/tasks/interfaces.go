package tasks

import (
	"context"

	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/feed"
	"github.com/lysyi3m/newsdesk/internal/ingest"
)

var (
	_ Pipeline         = (*ingest.Orchestrator)(nil)
	_ PageFetcher      = (*feed.Fetcher)(nil)
	_ ContentExtractor = (*feed.ContentExtractor)(nil)
)

// Pipeline is the ingestion work the scheduler drives
type Pipeline interface {
	RunTopic(ctx context.Context, topic database.Topic) (int, error)
	RunAll(ctx context.Context) (int, error)
	Cleanup(ctx context.Context) (int, error)
}

// TaskSchedulerInterface is what the API and main need from the scheduler.
//
//	scheduler := NewScheduler(orchestrator, topicRepo, opts)
//	scheduler.Reload(ctx)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Reload(ctx context.Context) error
	TriggerFetchAll() error
	Jobs() []JobInfo
}

type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

type ContentExtractor interface {
	Run(data []byte, pageURL string) (string, error)
}
