package classify

import (
	"math"
	"strings"
)

const topicKeywordBonus = 0.3

type weight struct {
	term  string
	value float64
}

// Terms are matched as lower-case substrings, so "regulat" covers regulator, regulation and so on.
var financeWeights = []weight{
	{"美联储", 0.3}, {"利率", 0.25}, {"美元", 0.2}, {"关税", 0.2}, {"股市", 0.2},
	{"股价", 0.2}, {"债券", 0.2}, {"国债", 0.2}, {"黄金", 0.3}, {"原油", 0.2},
	{"通胀", 0.25}, {"就业", 0.15}, {"gdp", 0.2}, {"汇率", 0.2}, {"央行", 0.2},
	{"监管", 0.15}, {"银行", 0.15}, {"财政", 0.2}, {"税", 0.1},

	{"federal reserve", 0.3}, {"interest rate", 0.25}, {"dollar", 0.2}, {"tariff", 0.2},
	{"stock market", 0.2}, {"stocks", 0.2}, {"bond", 0.2}, {"treasury", 0.2}, {"gold", 0.3},
	{"crude oil", 0.2}, {"inflation", 0.25}, {"employment", 0.15}, {"jobs report", 0.15},
	{"exchange rate", 0.2}, {"central bank", 0.2}, {"regulat", 0.15}, {"bank", 0.15},
	{"fiscal", 0.2}, {"tax", 0.1},
}

var offTopicWeights = []weight{
	{"八卦", 0.3}, {"娱乐", 0.3}, {"体育", 0.2}, {"影视", 0.2}, {"绯闻", 0.3},
	{"gossip", 0.3}, {"entertainment", 0.3}, {"sports", 0.2}, {"movie", 0.2}, {"celebrity", 0.3},
}

// RuleScore scores title and summary against the finance table and the topic keywords, clamped to [0, 1].
func RuleScore(title, summary string, keywords []string) float64 {
	text := strings.ToLower(title + " " + summary)

	score := 0.0
	for _, w := range financeWeights {
		if strings.Contains(text, w.term) {
			score += w.value
		}
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			score += topicKeywordBonus
		}
	}

	for _, w := range offTopicWeights {
		if strings.Contains(text, w.term) {
			score -= w.value
		}
	}

	// rounding keeps sums such as 0.55+0.15 on the band edges they add up to
	score = math.Round(score*1e4) / 1e4

	return min(max(score, 0), 1)
}
