package database

import (
	"errors"
	"time"
)

// ErrDuplicateURL is returned by ArticleStore.Store when another writer already stored the URL.
var ErrDuplicateURL = errors.New("article url already stored")

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

const (
	LabelRelevant   = "relevant"
	LabelIrrelevant = "irrelevant"
	LabelUnknown    = "unknown"
)

const (
	ContentStatusSuccess = "success"
	ContentStatusFailed  = "failed"
)

// Topic is a tracked subject with its keyword list and scheduling class
type Topic struct {
	ID        int64
	Name      string
	NameEn    string
	Keywords  string // comma-joined
	IsCore    bool
	Enabled   bool
	CreatedAt time.Time
}

func (t Topic) KeywordList() []string {
	return SplitKeywords(t.Keywords)
}

// Source is a feed endpoint, optionally bound to a single topic
type Source struct {
	ID        int64
	Name      string
	URL       string
	Lang      string
	Priority  int
	TopicID   *int64 // nil = topic-agnostic
	Enabled   bool
	CreatedAt time.Time
}

type Article struct {
	ID          int64
	SourceID    int64
	URL         string
	TitleOrig   string
	SummaryOrig string
	LangOrig    string
	PublishedAt *time.Time
	FetchedAt   time.Time
}

type Enrichment struct {
	ArticleID      int64
	Title          string
	Summary        string
	FinanceScore   float64
	RelevanceLabel string
	DedupeKey      string
	IsPrimaryLang  bool
}

// DuplicateCandidate is an enrichment joined with the publish time of its article
type DuplicateCandidate struct {
	Enrichment
	LangOrig    string
	PublishedAt *time.Time
}

// NewArticle groups everything persisted for one accepted entry
type NewArticle struct {
	Article     Article
	Enrichment  Enrichment
	TopicID     int64
	DemoteGroup bool // clear is_primary_lang across Enrichment.DedupeKey before inserting
}

// ArticleView is the read model served by the query API
type ArticleView struct {
	Article
	Enrichment
	SourceName string
	TopicIDs   []int64
}

type ArticleFilter struct {
	TopicID     int64
	PrimaryOnly bool
	Since       *time.Time
	Limit       int
}

type ArticleForExtraction struct {
	ID  int64
	URL string
}

type FetchRun struct {
	ID         int64
	TopicID    *int64
	SourceID   *int64
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

type RunFilter struct {
	Status  string
	TopicID int64
	Limit   int
}
