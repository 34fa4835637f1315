package enrich

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/newsdesk/internal/database"
)

type TextTranslator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Translator renders entries in the primary language, falling back to the original text
type Translator struct {
	llm     TextTranslator
	primary string
}

func NewTranslator(llm TextTranslator, primary string) *Translator {
	return &Translator{llm: llm, primary: primary}
}

func (t *Translator) Primary() string {
	return t.primary
}

func (t *Translator) Translate(ctx context.Context, lang, title, summary string) (string, string) {
	if SameLanguage(lang, t.primary) {
		return title, summary
	}

	return t.field(ctx, "title", title), t.field(ctx, "summary", summary)
}

func (t *Translator) field(ctx context.Context, name, text string) string {
	if text == "" {
		return ""
	}

	translated, err := t.llm.Translate(ctx, text, t.primary)
	if err != nil {
		slog.Warn("Translation failed, keeping original text", "field", name, "error", err)
		return text
	}

	return translated
}

// ResolvePrimary decides the primary-language flag of a new article given the near-duplicate
// it joins, if any. A newcomer in the primary language takes over the group, so demoteGroup
// asks the store to clear the flag on every existing member first.
func ResolvePrimary(existing *database.DuplicateCandidate, newLang, primary string) (isPrimary, demoteGroup bool) {
	if existing == nil {
		return true, false
	}

	if SameLanguage(newLang, primary) {
		return true, true
	}

	return false, false
}
