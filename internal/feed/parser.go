package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run parses RSS or Atom data into entries. gofeed parsers keep state, so one is built per call.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}

	return entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	return Entry{
		Title:     strings.TrimSpace(item.Title),
		Summary:   StripHTML(cmp.Or(strings.TrimSpace(item.Description), strings.TrimSpace(item.Content))),
		Link:      strings.TrimSpace(item.Link),
		Published: p.publishedAt(item),
	}
}

func (p *Parser) publishedAt(item *gofeed.Item) *time.Time {
	var t time.Time

	switch {
	case item.PublishedParsed != nil:
		t = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		t = *item.UpdatedParsed
	default:
		raw := cmp.Or(strings.TrimSpace(item.Published), strings.TrimSpace(item.Updated))
		if raw == "" {
			return nil
		}
		parsed, err := dateparse.ParseAny(raw)
		if err != nil {
			return nil
		}
		t = parsed
	}

	t = t.UTC()
	return &t
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
