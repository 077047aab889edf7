package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

const testUA = "mentionwatch-test"

func testWindow(t *testing.T) models.SearchWindow {
	t.Helper()
	w, err := models.NewSearchWindow("Jane Doe", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

const googleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
<item><title>Jane Doe opens clinic - Example Times</title><link>https://news.google.com/rss/articles/abc</link><guid>abc</guid></item>
<item><title>No link</title><link></link></item>
<item><title>Jane Doe wins award</title><link>https://news.google.com/rss/articles/def</link></item>
</channel></rss>`

func TestGoogleNewsSearch(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, googleFeed)
	}))
	defer srv.Close()

	g := NewGoogleNews(config.GoogleNewsConfig{BaseURL: srv.URL, Locale: "en-US", Region: "US"}, srv.Client(), testUA)
	links, err := g.Search(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, `"Jane Doe" after:2024-01-01 before:2024-01-02`, gotQuery.Get("q"))
	assert.Equal(t, "en-US", gotQuery.Get("hl"))
	assert.Equal(t, "US", gotQuery.Get("gl"))
	assert.Equal(t, "US:en", gotQuery.Get("ceid"))

	require.Len(t, links, 2)
	assert.Equal(t, "https://news.google.com/rss/articles/abc", links[0].URL)
	assert.Equal(t, "Jane Doe opens clinic - Example Times", links[0].Title)
	assert.Equal(t, models.SourceGoogleNews, links[1].Source)
}

func TestGoogleNewsSearchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGoogleNews(config.GoogleNewsConfig{BaseURL: srv.URL, Locale: "en-US", Region: "US"}, srv.Client(), testUA)
	_, err := g.Search(context.Background(), testWindow(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewsAPISearch(t *testing.T) {
	var gotQuery url.Values
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("X-Api-Key")
		fmt.Fprint(w, `{"status":"ok","totalResults":3,"articles":[
			{"source":{"name":"Example"},"title":"Jane Doe speaks","url":"https://example.com/a"},
			{"source":{"name":"[Removed]"},"title":"[Removed]","url":"https://removed.com"},
			{"source":{"name":"Other"},"title":"Doe profile","url":"https://other.org/b"}]}`)
	}))
	defer srv.Close()

	n := NewNewsAPI(config.NewsAPIConfig{BaseURL: srv.URL, APIKey: "k", Language: "en", PageSize: 40}, srv.Client(), testUA)
	links, err := n.Search(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, "k", gotKey)
	assert.Equal(t, `"Jane Doe"`, gotQuery.Get("q"))
	assert.Equal(t, "2024-01-01", gotQuery.Get("from"))
	assert.Equal(t, "2024-01-02", gotQuery.Get("to"))
	assert.Equal(t, "40", gotQuery.Get("pageSize"))
	assert.Equal(t, "relevancy", gotQuery.Get("sortBy"))

	require.Len(t, links, 2)
	assert.Equal(t, models.CandidateLink{URL: "https://example.com/a", Title: "Jane Doe speaks", Source: models.SourceNewsAPI}, links[0])
	assert.Equal(t, "https://other.org/b", links[1].URL)
}

func TestNewsAPIErrors(t *testing.T) {
	n := NewNewsAPI(config.NewsAPIConfig{BaseURL: "http://unused"}, nil, testUA)
	_, err := n.Search(context.Background(), testWindow(t))
	assert.ErrorIs(t, err, ErrNoAPIKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`)
	}))
	defer srv.Close()

	n = NewNewsAPI(config.NewsAPIConfig{BaseURL: srv.URL, APIKey: "bad"}, srv.Client(), testUA)
	_, err = n.Search(context.Background(), testWindow(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

type fakeSearcher struct {
	src   models.Source
	links []models.CandidateLink
	err   error
}

func (f fakeSearcher) Source() models.Source { return f.src }

func (f fakeSearcher) Search(context.Context, models.SearchWindow) ([]models.CandidateLink, error) {
	return f.links, f.err
}

func TestCollectIsolatesFailures(t *testing.T) {
	c := NewCollector(
		fakeSearcher{src: models.SourceGoogleNews, err: errors.New("boom")},
		fakeSearcher{src: models.SourceNewsAPI, links: []models.CandidateLink{
			{URL: "https://example.com/a", Source: models.SourceNewsAPI},
		}},
	)
	res := c.Collect(context.Background(), testWindow(t))
	require.Len(t, res.Links, 1)
	assert.Equal(t, "https://example.com/a", res.Links[0].URL)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "google_news")
}

func TestResolverPassThrough(t *testing.T) {
	r := NewResolver([]string{"news.google.com"}, config.DefaultNonPublisherHosts, testUA, time.Second)
	assert.True(t, r.IsRedirect("https://news.google.com/rss/articles/abc"))
	assert.False(t, r.IsRedirect("https://example.com/a"))

	got, err := r.Resolve(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
}

func TestResolverFollowsHTTPRedirect(t *testing.T) {
	publisher := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer publisher.Close()

	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, publisher.URL+"/story", http.StatusFound)
	}))
	defer aggregator.Close()

	r := NewResolver([]string{hostPort(t, aggregator.URL)}, config.DefaultNonPublisherHosts, testUA, time.Second)
	got, err := r.Resolve(context.Background(), aggregator.URL+"/rss/articles/abc")
	require.NoError(t, err)
	assert.Equal(t, publisher.URL+"/story", got)
}

func TestResolverPageFallback(t *testing.T) {
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/refresh":
			fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url='https://example.com/refreshed'"></head></html>`)
		case "/anchor":
			fmt.Fprint(w, `<html><body><a href="/internal">x</a><a href="https://example.com/anchored">story</a></body></html>`)
		case "/chrome":
			fmt.Fprint(w, `<html><body>
				<a href="https://accounts.google.com/ServiceLogin">Sign in</a>
				<a href="https://policies.google.com/privacy">Privacy</a>
				<a href="https://www.youtube.com/news">Video</a>
				<a href="https://publisher.example/story">Jane Doe opens clinic</a></body></html>`)
		case "/chrome-only":
			fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=https://consent.google.com/ml"></head>
				<body><a href="https://support.google.com/news">Help</a></body></html>`)
		default:
			fmt.Fprint(w, `<html><body><a href="/only-internal">x</a></body></html>`)
		}
	}))
	defer aggregator.Close()

	r := NewResolver([]string{hostPort(t, aggregator.URL)}, config.DefaultNonPublisherHosts, testUA, time.Second)

	got, err := r.Resolve(context.Background(), aggregator.URL+"/refresh")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/refreshed", got)

	got, err = r.Resolve(context.Background(), aggregator.URL+"/anchor")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/anchored", got)

	got, err = r.Resolve(context.Background(), aggregator.URL+"/chrome")
	require.NoError(t, err)
	assert.Equal(t, "https://publisher.example/story", got)

	_, err = r.Resolve(context.Background(), aggregator.URL+"/chrome-only")
	assert.ErrorIs(t, err, ErrUnresolved)

	_, err = r.Resolve(context.Background(), aggregator.URL+"/nothing")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolverRejectsNonPublisherRedirect(t *testing.T) {
	consent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><form action="/save"><button>Accept all</button></form></body></html>`)
	}))
	defer consent.Close()

	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, consent.URL+"/ml?continue=https://news.google.com/rss/articles/abc", http.StatusFound)
	}))
	defer aggregator.Close()

	r := NewResolver([]string{hostPort(t, aggregator.URL)}, []string{hostPort(t, consent.URL)}, testUA, time.Second)
	_, err := r.Resolve(context.Background(), aggregator.URL+"/rss/articles/abc")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolverNonPublisherSuffixMatch(t *testing.T) {
	r := NewResolver([]string{"news.google.com"}, config.DefaultNonPublisherHosts, testUA, time.Second)

	for raw, want := range map[string]bool{
		"https://consent.google.com/ml":            false,
		"https://google.com/search":                false,
		"https://lh3.googleusercontent.com/x.jpg":  false,
		"https://www.youtube.com/watch?v=1":        false,
		"https://news.google.com/rss/articles/abc": false,
		"https://notgoogle.com/story":              true,
		"https://publisher.example/story":          true,
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, r.isPublisher(u), raw)
	}
}

func hostPort(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Host
}

func TestExtractCancelAbortsFetch(t *testing.T) {
	started := make(chan struct{})
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-time.After(10 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewExtractor(testUA, 30*time.Second, 250)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := e.Extract(ctx, srv.URL+"/slow")
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch still running after cancel")
	}
}

func TestValidateArticle(t *testing.T) {
	body := strings.Repeat("a", 250)

	a, err := validateArticle("https://example.com/a", "", body, 250)
	require.NoError(t, err)
	assert.Equal(t, models.TitleNotFound, a.Title)
	assert.Equal(t, body, a.RawText)

	_, err = validateArticle("https://example.com/a", "T", strings.Repeat("a", 249), 250)
	assert.ErrorIs(t, err, ErrTooShort)

	// Length counts runes, not bytes.
	_, err = validateArticle("https://example.com/a", "T", strings.Repeat("é", 200), 250)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestExtract(t *testing.T) {
	para := "Jane Doe opened a new community clinic on Monday. " + strings.Repeat("The clinic serves the east side. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/story":
			fmt.Fprintf(w, `<html><head><title>Site | Story</title>
				<meta property="og:title" content="Jane Doe opens clinic"></head>
				<body><nav><p>Menu item</p></nav><article><h1>Headline</h1><p>%s</p><p>Second paragraph.</p></article>
				<script>var x = 1;</script></body></html>`, para)
		case "/untitled":
			fmt.Fprintf(w, `<html><body><p>%s</p></body></html>`, para)
		case "/short":
			fmt.Fprint(w, `<html><head><title>Short</title></head><body><p>Too short.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := NewExtractor(testUA, 5*time.Second, 250)

	a, err := e.Extract(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/story", a.URL)
	assert.Equal(t, "Jane Doe opens clinic", a.Title)
	assert.True(t, strings.HasPrefix(a.RawText, "Jane Doe opened"))
	assert.Contains(t, a.RawText, "\n\nSecond paragraph.")
	assert.NotContains(t, a.RawText, "Menu item")

	a, err = e.Extract(context.Background(), srv.URL+"/untitled")
	require.NoError(t, err)
	assert.Equal(t, models.TitleNotFound, a.Title)

	_, err = e.Extract(context.Background(), srv.URL+"/short")
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = e.Extract(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrExtraction)
}
