package classify

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/newsdesk/internal/database"
	"github.com/lysyi3m/newsdesk/internal/llm"
)

const (
	LowThreshold  = 0.3
	HighThreshold = 0.7

	// llmDiscardScore is the score below which an "irrelevant" LLM verdict discards the entry
	llmDiscardScore = 0.5
)

// Judge is consulted for entries in the uncertain rule-score band
type Judge interface {
	ClassifyFinance(ctx context.Context, title, summary string) llm.Classification
}

type Verdict struct {
	Keep  bool
	Score float64
	Label string
}

type Classifier struct {
	judge Judge
}

func NewClassifier(judge Judge) *Classifier {
	return &Classifier{judge: judge}
}

// Decide applies the rule score and escalates 0.3..0.7 to the judge.
func (c *Classifier) Decide(ctx context.Context, title, summary string, keywords []string) Verdict {
	score := RuleScore(title, summary, keywords)

	switch {
	case score < LowThreshold:
		return Verdict{Keep: false, Score: score, Label: database.LabelIrrelevant}

	case score <= HighThreshold:
		result := c.judge.ClassifyFinance(ctx, title, summary)
		if result.Label == database.LabelIrrelevant && result.Score < llmDiscardScore {
			slog.Debug("Entry rejected by LLM", "title", title, "rule_score", score, "llm_score", result.Score)
			return Verdict{Keep: false, Score: result.Score, Label: result.Label}
		}
		return Verdict{Keep: true, Score: result.Score, Label: result.Label}

	default:
		return Verdict{Keep: true, Score: score, Label: database.LabelRelevant}
	}
}
