package enrich

import (
	"strings"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// SameLanguage compares the base languages of two tags, so "zh-CN" matches "zh".
func SameLanguage(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}

	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return false
	}

	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

// Detector guesses the language of entries from sources that do not declare one
type Detector struct {
	detector lingua.LanguageDetector
	fallback string
}

func NewDetector(fallback string) *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.Chinese, lingua.Japanese, lingua.Korean,
			lingua.German, lingua.French, lingua.Spanish, lingua.Russian,
			lingua.Italian, lingua.Portuguese, lingua.Arabic,
		).
		Build()

	return &Detector{detector: detector, fallback: fallback}
}

// Detect returns an ISO 639-1 code, or the fallback when the text is empty or ambiguous.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return d.fallback
	}

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.fallback
	}

	return strings.ToLower(lang.IsoCode639_1().String())
}
