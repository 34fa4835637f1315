package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/dedup"
	"github.com/lysyi3m/newsdesk/internal/enrich"
	"github.com/lysyi3m/newsdesk/internal/feed"
)

// Deps holds the stores and pipeline stages an Orchestrator drives.
type Deps struct {
	Topics     database.TopicRepository
	Sources    database.SourceRepository
	Articles   database.ArticleRepository
	Runs       database.FetchRunRepository
	Fetcher    FeedFetcher
	Classifier RelevanceClassifier
	Finder     DuplicateFinder
	Translator EntryTranslator
	Detector   LanguageDetector // optional, used for sources without a language
}

// Orchestrator runs the fetch, classify, translate, dedup and persist pipeline for topics
type Orchestrator struct {
	Deps
	primaryLang string
	retention   time.Duration
	now         func() time.Time
}

// NewOrchestrator builds an Orchestrator. Entries published before now minus retention
// are skipped; a zero retention disables that cutoff.
func NewOrchestrator(deps Deps, primaryLang string, retention time.Duration) *Orchestrator {
	return &Orchestrator{
		Deps:        deps,
		primaryLang: primaryLang,
		retention:   retention,
		now:         time.Now,
	}
}

// RunTopic processes every eligible source for topic, highest priority first, and returns
// the number of new articles. A failing source is recorded on its FetchRun and skipped;
// only storage failures outside a source abort the topic.
func (o *Orchestrator) RunTopic(ctx context.Context, topic database.Topic) (int, error) {
	sources, err := o.Sources.ListEligibleSources(ctx, topic.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list sources: %w", err)
	}

	keywords := topic.KeywordList()
	added := 0

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		n, err := o.runSource(ctx, topic, source, keywords)
		added += n
		if err != nil {
			return added, err
		}
	}

	slog.Info("Topic fetched", "topic", topic.Name, "sources", len(sources), "added", added)

	return added, nil
}

// RunAll runs every enabled topic, then one cleanup pass. Topic errors are collected, not fatal.
func (o *Orchestrator) RunAll(ctx context.Context) (int, error) {
	topics, err := o.Topics.ListEnabledTopics(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list topics: %w", err)
	}

	var errs []error
	total := 0

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		n, err := o.RunTopic(ctx, topic)
		total += n
		if err != nil {
			slog.Error("Topic run failed", "topic", topic.Name, "error", err)
			errs = append(errs, fmt.Errorf("topic %s: %w", topic.Name, err))
		}
	}

	if ctx.Err() == nil {
		if _, err := o.Cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return total, errors.Join(errs...)
}

// Cleanup deletes articles published before now minus the retention period.
func (o *Orchestrator) Cleanup(ctx context.Context) (int, error) {
	cutoff := o.now().Add(-o.retention)

	deleted, err := o.Articles.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up articles: %w", err)
	}

	slog.Info("Cleanup completed", "deleted", deleted, "cutoff", cutoff.UTC().Format(time.RFC3339))

	return deleted, nil
}

func (o *Orchestrator) runSource(ctx context.Context, topic database.Topic, source database.Source, keywords []string) (int, error) {
	runID, err := o.Runs.StartRun(ctx, topic.ID, source.ID, o.now())
	if err != nil {
		return 0, fmt.Errorf("failed to start fetch run: %w", err)
	}

	added, procErr := o.processSource(ctx, topic, source, keywords)

	status, errMsg := database.RunStatusSuccess, ""
	if procErr != nil {
		status, errMsg = database.RunStatusFailed, procErr.Error()
		slog.Error("Source fetch failed", "topic", topic.Name, "source", source.Name, "url", source.URL, "error", procErr)
	} else {
		slog.Debug("Source fetched", "topic", topic.Name, "source", source.Name, "added", added)
	}

	// the run row is closed even when ctx was cancelled mid-source
	if err := o.Runs.FinishRun(context.WithoutCancel(ctx), runID, status, errMsg, o.now()); err != nil {
		return added, fmt.Errorf("failed to finish fetch run: %w", err)
	}

	return added, nil
}

func (o *Orchestrator) processSource(ctx context.Context, topic database.Topic, source database.Source, keywords []string) (int, error) {
	entries, err := o.Fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return 0, err
	}

	added := 0
	for entry := range entries {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		stored, err := o.processEntry(ctx, topic, source, keywords, entry)
		if err != nil {
			return added, err
		}
		if stored {
			added++
		}
	}

	return added, nil
}

func (o *Orchestrator) processEntry(ctx context.Context, topic database.Topic, source database.Source, keywords []string, entry feed.Entry) (bool, error) {
	if entry.Link == "" {
		return false, nil
	}

	// sources bound to a topic skip the keyword gate
	passesGate := source.TopicID != nil || feed.MatchesKeywords(entry, keywords)

	articleID, found, err := o.Articles.GetArticleIDByURL(ctx, entry.Link)
	if err != nil {
		return false, err
	}
	if found {
		if passesGate {
			if err := o.Articles.LinkTopic(ctx, articleID, topic.ID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if entry.Title == "" || !passesGate {
		return false, nil
	}

	now := o.now().UTC()
	published := now
	if entry.Published != nil {
		published = entry.Published.UTC()
	}

	// cleanup would drop it again and the next run would re-ingest it
	if o.retention > 0 && published.Before(now.Add(-o.retention)) {
		return false, nil
	}

	verdict := o.Classifier.Decide(ctx, entry.Title, entry.Summary, keywords)
	if !verdict.Keep {
		return false, nil
	}

	lang := source.Lang
	if lang == "" && o.Detector != nil {
		lang = o.Detector.Detect(entry.Title + " " + entry.Summary)
	}

	title, summary := o.Translator.Translate(ctx, lang, entry.Title, entry.Summary)

	dedupeKey := dedup.Fingerprint(title, &published, now)
	existing, err := o.Finder.FindNearDuplicate(ctx, title, &published)
	if err != nil {
		return false, err
	}
	if existing != nil {
		dedupeKey = existing.DedupeKey
	}

	isPrimary, demote := enrich.ResolvePrimary(existing, lang, o.primaryLang)

	_, err = o.Articles.Store(ctx, database.NewArticle{
		Article: database.Article{
			SourceID:    source.ID,
			URL:         entry.Link,
			TitleOrig:   entry.Title,
			SummaryOrig: entry.Summary,
			LangOrig:    lang,
			PublishedAt: &published,
			FetchedAt:   now,
		},
		Enrichment: database.Enrichment{
			Title:          title,
			Summary:        summary,
			FinanceScore:   verdict.Score,
			RelevanceLabel: verdict.Label,
			DedupeKey:      dedupeKey,
			IsPrimaryLang:  isPrimary,
		},
		TopicID:     topic.ID,
		DemoteGroup: demote,
	})
	if errors.Is(err, database.ErrDuplicateURL) {
		slog.Debug("Article stored concurrently, skipping", "url", entry.Link)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	slog.Debug("Article stored", "topic", topic.Name, "url", entry.Link, "score", verdict.Score, "primary", isPrimary, "duplicate", existing != nil)

	return true, nil
}
