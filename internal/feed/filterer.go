package feed

import (
	"strings"
)

// MatchesKeywords reports whether title or summary contains any keyword, case-insensitively.
// An empty keyword list matches everything.
func MatchesKeywords(entry Entry, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	text := strings.ToLower(entry.Title + " " + entry.Summary)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}
