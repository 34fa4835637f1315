package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

// Channel describes the RSS channel a topic digest is published under
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Language    string
	Generator   string
}

// Generator renders stored articles as an RSS 2.0 document, using the enriched title and summary.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, articles []database.ArticleView) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", cmp.Or(channel.Link, channel.SelfLink), 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().UTC()
	if len(articles) > 0 && articles[0].PublishedAt != nil {
		lastBuildDate = *articles[0].PublishedAt
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)
	g.writeElement(&buf, "language", channel.Language, 4)

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.ArticleView) {
	buf.WriteString("    <item>\n")

	if article.URL != "" {
		buf.WriteString("      <guid isPermaLink=\"true\">")
		xml.EscapeText(buf, []byte(article.URL))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", cmp.Or(article.Title, article.TitleOrig), 6)
	g.writeElement(buf, "link", article.URL, 6)
	g.writeElement(buf, "description", cmp.Or(article.Summary, article.SummaryOrig, "No description available"), 6)

	publishedAt := article.FetchedAt
	if article.PublishedAt != nil {
		publishedAt = *article.PublishedAt
	}
	g.writeElement(buf, "pubDate", publishedAt.Format(time.RFC1123Z), 6)

	g.writeElement(buf, "source", article.SourceName, 6)
	g.writeElement(buf, "category", article.RelevanceLabel, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
