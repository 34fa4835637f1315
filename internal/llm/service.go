package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/newsdesk/internal/cache"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrDisabled is returned by operations that have no meaningful fallback without a model.
var ErrDisabled = errors.New("llm is not configured")

var neutralClassification = Classification{Score: 0.5, Label: "unknown"}

// Service holds the prompts and degradation rules on top of a Completer.
// A nil completer disables every call; results are cached when a cache is set.
type Service struct {
	completer Completer
	cache     cache.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
}

func NewService(completer Completer, c cache.Cache, timeout, cacheTTL time.Duration) *Service {
	return &Service{
		completer: completer,
		cache:     c,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.completer != nil
}

// ClassifyFinance never fails. Disabled or failing calls return score 0.5 with label "unknown".
func (s *Service) ClassifyFinance(ctx context.Context, title, summary string) Classification {
	if !s.Enabled() {
		return neutralClassification
	}

	key := cache.GenerateKey("classify", title, summary)
	if cached, ok := s.cached(ctx, key); ok {
		var result Classification
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result
		}
	}

	prompt := "Rate how relevant this news item is to financial markets. Reply with JSON only: " +
		`{"finance_score": 0-1, "relevance_label": "relevant|irrelevant", "reason": "..."}` +
		"\n\nTitle: " + title + "\nSummary: " + summary

	reply, err := s.complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are a financial news classifier."},
		{Role: RoleUser, Content: prompt},
	}, CompletionOptions{Temperature: 0, MaxTokens: 300})
	if err != nil {
		slog.Warn("LLM classification failed, using neutral score", "title", title, "error", err)
		return neutralClassification
	}

	result, err := parseClassification(reply)
	if err != nil {
		slog.Warn("LLM classification unparseable, using neutral score", "title", title, "error", err)
		return neutralClassification
	}

	if data, err := json.Marshal(result); err == nil {
		s.store(ctx, key, string(data))
	}

	return result
}

// Translate renders text in the target language. Disabled services return text unchanged.
func (s *Service) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if text == "" || !s.Enabled() {
		return text, nil
	}

	key := cache.GenerateKey("translate", targetLang, text)
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	prompt := fmt.Sprintf("Translate the following news headline or summary into %s. "+
		"Keep proper nouns accurate. Output only the translation, without explanations.\n\n%s",
		LanguageName(targetLang), text)

	reply, err := s.complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are a news translation assistant."},
		{Role: RoleUser, Content: prompt},
	}, CompletionOptions{Temperature: 0.1, MaxTokens: 500})
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}

	translated := strings.TrimSpace(reply)
	if translated == "" {
		return "", fmt.Errorf("failed to translate: empty reply")
	}

	s.store(ctx, key, translated)

	return translated, nil
}

// AnalyzeTitles asks for short per-headline notes on what the news means for the economy and markets.
func (s *Service) AnalyzeTitles(ctx context.Context, titles []string, lang string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if len(titles) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, title := range titles {
		b.WriteString("- ")
		b.WriteString(title)
		b.WriteString("\n")
	}

	prompt := fmt.Sprintf("Analyze what the following headlines mean for the economy and financial markets. "+
		"Give one short point per headline, written in %s.\n\n%s", LanguageName(lang), b.String())

	reply, err := s.complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are a financial analysis assistant."},
		{Role: RoleUser, Content: prompt},
	}, CompletionOptions{Temperature: 0.3, MaxTokens: 800})
	if err != nil {
		return "", fmt.Errorf("failed to analyze titles: %w", err)
	}

	return strings.TrimSpace(reply), nil
}

func (s *Service) complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, messages, opts)
	slog.Debug("LLM call finished", "duration", time.Since(start), "error", err)

	return reply, err
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	val, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("LLM cache lookup failed", "error", err)
		return "", false
	}

	return val, ok
}

func (s *Service) store(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		slog.Warn("LLM cache write failed", "error", err)
	}
}

// LanguageName returns the English display name of a language code, e.g. "zh" -> "Chinese".
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
