package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

const maxBodySize = 10 << 20

// NewHTTPClient builds the client shared by feed and page fetches.
// insecureTLS disables certificate verification for sources with broken chains.
func NewHTTPClient(timeout time.Duration, insecureTLS bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 5
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
	}
}

// Fetch downloads and parses a feed. Transport failures and non-2xx responses are errors;
// a body that does not parse as a feed yields an empty sequence.
func (f *Fetcher) Fetch(ctx context.Context, url string) (iter.Seq[Entry], error) {
	data, err := f.get(ctx, url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	if err != nil {
		return nil, err
	}

	entries, err := f.parser.Run(data)
	if err != nil {
		slog.Warn("Failed to parse feed, treating as empty", "url", url, "error", err)
		return slices.Values([]Entry(nil)), nil
	}

	slog.Debug("Feed fetched", "url", url, "entries", len(entries))
	return slices.Values(entries), nil
}

// FetchPage downloads an HTML page for content extraction.
func (f *Fetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	data, err := f.get(ctx, url, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, strings.TrimSpace(http.StatusText(resp.StatusCode)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
