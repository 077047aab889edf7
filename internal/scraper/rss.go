// Package scraper collects candidate links from news searches, resolves
// aggregator redirects, and extracts article text.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedItem represents a single item parsed from an RSS or Atom feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	GUID        string
}

const (
	feedTimeout  = 30 * time.Second
	maxFeedBytes = 10 * 1024 * 1024
)

// ParseFeed fetches feedURL with client and parses it as RSS or Atom.
func ParseFeed(ctx context.Context, client *http.Client, userAgent, feedURL string) ([]FeedItem, error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss: fetch %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss: fetch %s: status %d", feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("rss: read body: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rss: parse %s: %w", feedURL, err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := FeedItem{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: strings.TrimSpace(it.Description),
			GUID:        strings.TrimSpace(it.GUID),
		}
		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		}
		if item.GUID == "" {
			item.GUID = item.Link
		}
		items = append(items, item)
	}
	return items, nil
}
