package api

import (
	"context"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/feed"
	"github.com/lysyi3m/newsdesk/internal/llm"
	"github.com/lysyi3m/newsdesk/internal/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, articles []database.ArticleView) (string, error)
}

// Analyzer produces a short briefing from a list of headlines
type Analyzer interface {
	Enabled() bool
	AnalyzeTitles(ctx context.Context, titles []string, lang string) (string, error)
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ Analyzer           = (*llm.Service)(nil)
)

type Handler struct {
	topicRepo   database.TopicRepository
	sourceRepo  database.SourceRepository
	articleRepo database.ArticleRepository
	runRepo     database.FetchRunRepository
	scheduler   tasks.TaskSchedulerInterface
	analyzer    Analyzer
	generator   GeneratorInterface
	primaryLang string
	version     string
}

type topicRequest struct {
	Name     *string   `json:"name"`
	NameEn   *string   `json:"name_en"`
	Keywords *[]string `json:"keywords"`
	IsCore   *bool     `json:"is_core"`
	Enabled  *bool     `json:"enabled"`
}

// sourceRequest uses topic_id 0 to make a source topic-agnostic again.
type sourceRequest struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Lang     *string `json:"lang"`
	Priority *int    `json:"priority"`
	TopicID  *int64  `json:"topic_id"`
	Enabled  *bool   `json:"enabled"`
}

type topicResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	NameEn    string    `json:"name_en,omitempty"`
	Keywords  []string  `json:"keywords"`
	IsCore    bool      `json:"is_core"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type sourceResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Lang      string    `json:"lang"`
	Priority  int       `json:"priority"`
	TopicID   *int64    `json:"topic_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type articleResponse struct {
	ID             int64      `json:"id"`
	URL            string     `json:"url"`
	SourceID       int64      `json:"source_id"`
	SourceName     string     `json:"source_name"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	TitleOrig      string     `json:"title_orig"`
	SummaryOrig    string     `json:"summary_orig"`
	LangOrig       string     `json:"lang_orig"`
	PublishedAt    *time.Time `json:"published_at"`
	FetchedAt      time.Time  `json:"fetched_at"`
	FinanceScore   float64    `json:"finance_score"`
	RelevanceLabel string     `json:"relevance_label"`
	DedupeKey      string     `json:"dedupe_key"`
	IsPrimaryLang  bool       `json:"is_primary_lang"`
	TopicIDs       []int64    `json:"topic_ids"`
}

type fetchRunResponse struct {
	ID         int64      `json:"id"`
	TopicID    *int64     `json:"topic_id"`
	SourceID   *int64     `json:"source_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Error      string     `json:"error,omitempty"`
}

func newTopicResponse(t database.Topic) topicResponse {
	keywords := t.KeywordList()
	if keywords == nil {
		keywords = []string{}
	}
	return topicResponse{
		ID:        t.ID,
		Name:      t.Name,
		NameEn:    t.NameEn,
		Keywords:  keywords,
		IsCore:    t.IsCore,
		Enabled:   t.Enabled,
		CreatedAt: t.CreatedAt,
	}
}

func newSourceResponse(s database.Source) sourceResponse {
	return sourceResponse{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		Lang:      s.Lang,
		Priority:  s.Priority,
		TopicID:   s.TopicID,
		Enabled:   s.Enabled,
		CreatedAt: s.CreatedAt,
	}
}

func newArticleResponse(v database.ArticleView) articleResponse {
	topicIDs := v.TopicIDs
	if topicIDs == nil {
		topicIDs = []int64{}
	}
	return articleResponse{
		ID:             v.Article.ID,
		URL:            v.URL,
		SourceID:       v.SourceID,
		SourceName:     v.SourceName,
		Title:          v.Title,
		Summary:        v.Summary,
		TitleOrig:      v.TitleOrig,
		SummaryOrig:    v.SummaryOrig,
		LangOrig:       v.LangOrig,
		PublishedAt:    v.PublishedAt,
		FetchedAt:      v.FetchedAt,
		FinanceScore:   v.FinanceScore,
		RelevanceLabel: v.RelevanceLabel,
		DedupeKey:      v.DedupeKey,
		IsPrimaryLang:  v.IsPrimaryLang,
		TopicIDs:       topicIDs,
	}
}

func newFetchRunResponse(r database.FetchRun) fetchRunResponse {
	return fetchRunResponse{
		ID:         r.ID,
		TopicID:    r.TopicID,
		SourceID:   r.SourceID,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
}
