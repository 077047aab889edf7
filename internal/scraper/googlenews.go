package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// GoogleNews searches the Google News RSS endpoint. Its links are redirect
// links that the Resolver turns into publisher URLs.
type GoogleNews struct {
	cfg       config.GoogleNewsConfig
	client    *http.Client
	userAgent string
}

// NewGoogleNews creates a Google News RSS source.
func NewGoogleNews(cfg config.GoogleNewsConfig, client *http.Client, userAgent string) *GoogleNews {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleNews{cfg: cfg, client: client, userAgent: userAgent}
}

// Source implements Searcher.
func (g *GoogleNews) Source() models.Source { return models.SourceGoogleNews }

// Search returns the feed entries for the exact-phrase name query restricted
// to the window.
func (g *GoogleNews) Search(ctx context.Context, w models.SearchWindow) ([]models.CandidateLink, error) {
	items, err := ParseFeed(ctx, g.client, g.userAgent, g.searchURL(w))
	if err != nil {
		return nil, fmt.Errorf("google news: %w", err)
	}

	links := make([]models.CandidateLink, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		links = append(links, models.CandidateLink{
			URL:    item.Link,
			Title:  item.Title,
			Source: models.SourceGoogleNews,
		})
	}
	return links, nil
}

// searchURL builds e.g. ?q="Jane Doe" after:2024-01-01 before:2024-01-02&hl=en-US&gl=US&ceid=US:en
func (g *GoogleNews) searchURL(w models.SearchWindow) string {
	query := fmt.Sprintf(`"%s" after:%s before:%s`, w.PersonName,
		w.From.Format(models.DateLayout), w.To.Format(models.DateLayout))

	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", g.cfg.Locale)
	v.Set("gl", g.cfg.Region)
	v.Set("ceid", g.cfg.Region+":"+strings.SplitN(g.cfg.Locale, "-", 2)[0])
	return g.cfg.BaseURL + "?" + v.Encode()
}
