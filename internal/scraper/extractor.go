package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

var (
	// ErrExtraction is returned when a page cannot be downloaded or parsed.
	ErrExtraction = errors.New("extractor: extraction failed")
	// ErrTooShort is returned when the extracted body is below the minimum
	// length.
	ErrTooShort = errors.New("extractor: article text too short")
)

// bodySelectors are tried in order; the first one yielding paragraphs wins.
var bodySelectors = []string{
	"article p",
	`[itemprop="articleBody"] p`,
	"main p",
	"p",
}

// Extractor downloads article pages and extracts title and body text.
type Extractor struct {
	userAgent string
	timeout   time.Duration
	minLength int
}

// NewExtractor creates an Extractor. Bodies shorter than minLength runes are
// rejected with ErrTooShort.
func NewExtractor(userAgent string, timeout time.Duration, minLength int) *Extractor {
	return &Extractor{userAgent: userAgent, timeout: timeout, minLength: minLength}
}

// contextTransport binds every request a collector makes to ctx, so
// cancelling ctx aborts the in-flight fetch.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// newCollector creates a fresh Colly collector per page to avoid state
// leakage between articles.
func (e *Extractor) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(e.userAgent),
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
	)
	c.WithTransport(contextTransport{ctx: ctx, base: http.DefaultTransport})
	if e.timeout > 0 {
		c.SetRequestTimeout(e.timeout)
	}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	return c
}

// Extract fetches articleURL and returns its final URL, title and body text.
// A page without a title yields models.TitleNotFound.
func (e *Extractor) Extract(ctx context.Context, articleURL string) (*models.ResolvedArticle, error) {
	c := e.newCollector(ctx)

	var (
		mu       sync.Mutex
		finalURL = articleURL
		title    string
		body     string
		parsed   bool
		scrErr   error
	)

	c.OnHTML("html", func(el *colly.HTMLElement) {
		t, b := parseArticle(el.DOM)
		mu.Lock()
		finalURL = el.Request.URL.String()
		title, body, parsed = t, b, true
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		scrErr = fmt.Errorf("%w: fetch %s: %v", ErrExtraction, articleURL, err)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Visit(articleURL); err != nil {
			mu.Lock()
			if scrErr == nil {
				scrErr = fmt.Errorf("%w: visit %s: %v", ErrExtraction, articleURL, err)
			}
			mu.Unlock()
		}
		c.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if scrErr != nil {
		return nil, scrErr
	}
	if !parsed {
		return nil, fmt.Errorf("%w: %s: no html document", ErrExtraction, articleURL)
	}

	article, err := validateArticle(finalURL, title, body, e.minLength)
	if err != nil {
		return nil, err
	}
	slog.Debug("extracted article", "url", finalURL, "title_len", len(article.Title), "body_len", len(article.RawText))
	return article, nil
}

// parseArticle pulls the title and paragraph text out of a document.
func parseArticle(doc *goquery.Selection) (string, string) {
	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).First().AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("script, style, noscript, nav, footer, aside").Remove()

	var paragraphs []string
	for _, sel := range bodySelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if p := strings.TrimSpace(s.Text()); p != "" {
				paragraphs = append(paragraphs, p)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	return CleanText(title), CleanText(strings.Join(paragraphs, "\n\n"))
}

// validateArticle builds the article, applying the title placeholder and the
// minimum body length.
func validateArticle(articleURL, title, body string, minLength int) (*models.ResolvedArticle, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n < minLength {
		return nil, fmt.Errorf("%w: %s: %d < %d", ErrTooShort, articleURL, n, minLength)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.TitleNotFound
	}
	return &models.ResolvedArticle{URL: articleURL, Title: title, RawText: body}, nil
}
