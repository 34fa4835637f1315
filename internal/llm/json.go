package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExtractJSON returns the span from the first '{' to the last '}', or text unchanged when there is none.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

type classificationReply struct {
	FinanceScore   json.RawMessage `json:"finance_score"`
	RelevanceLabel any             `json:"relevance_label"`
}

// parseClassification reads a classifier reply. Missing fields fall back to the neutral values.
func parseClassification(text string) (Classification, error) {
	var reply classificationReply
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &reply); err != nil {
		return neutralClassification, fmt.Errorf("failed to parse classification: %w", err)
	}

	result := neutralClassification

	if len(reply.FinanceScore) > 0 && string(reply.FinanceScore) != "null" {
		score, err := parseScore(reply.FinanceScore)
		if err != nil {
			return neutralClassification, err
		}
		result.Score = min(max(score, 0), 1)
	}

	if reply.RelevanceLabel != nil {
		if label := strings.ToLower(strings.TrimSpace(fmt.Sprint(reply.RelevanceLabel))); label != "" {
			result.Label = label
		}
	}

	return result, nil
}

func parseScore(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid finance_score %s", raw)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid finance_score %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid finance_score %q", s)
	}
	return f, nil
}
