package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// ErrNoAPIKey is returned by NewsAPI.Search when no key is configured.
var ErrNoAPIKey = errors.New("newsapi: api key not configured")

// NewsAPI searches newsapi.org's /everything endpoint. Its links point
// directly at publishers.
type NewsAPI struct {
	cfg       config.NewsAPIConfig
	client    *http.Client
	userAgent string
}

// NewNewsAPI creates a newsapi.org source.
func NewNewsAPI(cfg config.NewsAPIConfig, client *http.Client, userAgent string) *NewsAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &NewsAPI{cfg: cfg, client: client, userAgent: userAgent}
}

// Source implements Searcher.
func (n *NewsAPI) Source() models.Source { return models.SourceNewsAPI }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search returns the articles matching the quoted name inside the window.
func (n *NewsAPI) Search(ctx context.Context, w models.SearchWindow) ([]models.CandidateLink, error) {
	if n.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.searchURL(w), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: create request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.cfg.APIKey)
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("newsapi: read body: %w", err)
	}

	var result newsAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("newsapi: decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != "ok" {
		return nil, fmt.Errorf("newsapi: status %d: %s: %s", resp.StatusCode, result.Code, result.Message)
	}

	links := make([]models.CandidateLink, 0, len(result.Articles))
	for _, a := range result.Articles {
		link := strings.TrimSpace(a.URL)
		// Removed articles come back as placeholders.
		if link == "" || link == "https://removed.com" {
			continue
		}
		links = append(links, models.CandidateLink{
			URL:    link,
			Title:  strings.TrimSpace(a.Title),
			Source: models.SourceNewsAPI,
		})
	}
	return links, nil
}

func (n *NewsAPI) searchURL(w models.SearchWindow) string {
	v := url.Values{}
	v.Set("q", `"`+w.PersonName+`"`)
	v.Set("from", w.From.Format(models.DateLayout))
	v.Set("to", w.To.Format(models.DateLayout))
	v.Set("sortBy", "relevancy")
	if n.cfg.Language != "" {
		v.Set("language", n.cfg.Language)
	}
	if n.cfg.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(n.cfg.PageSize))
	}
	return strings.TrimRight(n.cfg.BaseURL, "/") + "/everything?" + v.Encode()
}
