package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

func TestGenerator_Run(t *testing.T) {
	published := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	articles := []database.ArticleView{
		{
			Article: database.Article{
				URL:         "https://wire.test/gold?a=1&b=2",
				TitleOrig:   "Gold rises",
				SummaryOrig: "Gold hits record",
				PublishedAt: &published,
			},
			Enrichment: database.Enrichment{
				Title:          "黄金上涨",
				Summary:        "金价创纪录",
				RelevanceLabel: database.LabelRelevant,
			},
			SourceName: "Wire",
		},
		{
			Article: database.Article{
				URL:       "https://wire.test/oil",
				TitleOrig: "Oil falls",
				FetchedAt: published.Add(-time.Hour),
			},
		},
	}

	rss, err := NewGenerator().Run(Channel{
		Title:    "黄金",
		SelfLink: "http://localhost:8080/feeds/topics/1",
		Language: "zh",
	}, articles)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectedStrings := []string{
		`<rss version="2.0"`,
		"<title>黄金</title>",
		`<atom:link href="http://localhost:8080/feeds/topics/1" rel="self"`,
		"<language>zh</language>",
		"<lastBuildDate>" + published.Format(time.RFC1123Z) + "</lastBuildDate>",
		"<title>黄金上涨</title>",
		"<description>金价创纪录</description>",
		"<link>https://wire.test/gold?a=1&amp;b=2</link>",
		"<source>Wire</source>",
		"<title>Oil falls</title>",
		"<description>No description available</description>",
		"<pubDate>" + published.Add(-time.Hour).Format(time.RFC1123Z) + "</pubDate>",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(rss, expected) {
			t.Errorf("Expected RSS to contain %q", expected)
		}
	}

	if strings.Count(rss, "<item>") != 2 {
		t.Errorf("Expected 2 items, got %d", strings.Count(rss, "<item>"))
	}
}

func TestGenerator_RunEmpty(t *testing.T) {
	rss, err := NewGenerator().Run(Channel{Title: "Empty"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(rss, "<item>") {
		t.Error("Expected no items")
	}
	if !strings.Contains(rss, "<description>Empty</description>") {
		t.Error("Expected description to fall back to title")
	}
}
