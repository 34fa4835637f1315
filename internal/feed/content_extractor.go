package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ContentExtractor turns an article page into its readable plain text
type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("failed to parse extracted HTML: %w", err)
	}

	paragraphs := make([]string, 0)
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	text := strings.Join(paragraphs, "\n\n")
	if text == "" {
		text = strings.Join(strings.Fields(doc.Text()), " ")
	}
	if text == "" {
		return "", fmt.Errorf("no text extracted from HTML data")
	}

	slog.Debug("Content extracted successfully", "title", article.Title, "content_length", len(text))

	return text, nil
}
