package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/mentionwatch/internal/ai"
	"github.com/Saul-Punybz/mentionwatch/internal/mentions"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/scraper"
)

type staticSearcher struct {
	src   models.Source
	links []models.CandidateLink
	err   error
}

func (s staticSearcher) Source() models.Source { return s.src }

func (s staticSearcher) Search(context.Context, models.SearchWindow) ([]models.CandidateLink, error) {
	return s.links, s.err
}

type mapResolver struct {
	targets map[string]string
}

func (m mapResolver) IsRedirect(link string) bool { return strings.Contains(link, "news.google.com") }

func (m mapResolver) Resolve(_ context.Context, link string) (string, error) {
	if t, ok := m.targets[link]; ok {
		return t, nil
	}
	return "", scraper.ErrUnresolved
}

type mapExtractor struct {
	mu    sync.Mutex
	pages map[string]models.ResolvedArticle
	calls map[string]int
}

func (m *mapExtractor) Extract(_ context.Context, url string) (*models.ResolvedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[url]++
	a, ok := m.pages[url]
	if !ok {
		return nil, scraper.ErrTooShort
	}
	return &a, nil
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, r ai.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if r.JSON {
		return `{"sentiment":"Positive","justification":"She is praised."}`, nil
	}
	return "Jane Doe opened a clinic. Residents welcomed it.", nil
}

func janeDoeWindow(t *testing.T) models.SearchWindow {
	t.Helper()
	w, err := models.NewSearchWindow("Jane Doe", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

func newTestPipeline(t *testing.T, collector Collector, resolver Resolver, ex Extractor, llm ai.Completer) *Pipeline {
	t.Helper()
	splitter, err := mentions.NewPunktSplitter()
	require.NoError(t, err)
	return New(Deps{
		Collector: collector,
		Resolver:  resolver,
		Extractor: ex,
		Locator:   mentions.NewLocator(splitter),
		Annotator: ai.NewAnnotator(llm, 0),
	}, 3)
}

const janeDoeBody = "Jane Doe opened a new community clinic on Monday. " +
	"The clinic will serve residents of the east side and offer free screenings to families without insurance. " +
	"City officials thanked Jane Doe for years of advocacy on behalf of local patients and their families."

func TestRunJaneDoe(t *testing.T) {
	collector := scraper.NewCollector(
		staticSearcher{src: models.SourceGoogleNews},
		staticSearcher{src: models.SourceNewsAPI, links: []models.CandidateLink{
			{URL: "https://example.com/a", Title: "Jane Doe opens clinic", Source: models.SourceNewsAPI},
		}},
	)
	ex := &mapExtractor{pages: map[string]models.ResolvedArticle{
		"https://example.com/a": {URL: "https://example.com/a", Title: models.TitleNotFound, RawText: janeDoeBody},
	}}
	llm := &fakeCompleter{}

	var events []Progress
	r, err := newTestPipeline(t, collector, mapResolver{}, ex, llm).Run(context.Background(), janeDoeWindow(t), func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.Len(t, r.Articles, 1)
	a := r.Articles[0]
	assert.Equal(t, "https://example.com/a", a.URL)
	assert.Equal(t, "Jane Doe opens clinic", a.Title)
	assert.Len(t, a.Mentions, 2)
	assert.NotEmpty(t, a.Summary)
	assert.Contains(t, models.Sentiments, a.Sentiment)
	assert.Equal(t, models.SentimentPositive, a.Sentiment)
	assert.Empty(t, r.UnanalyzedGoogle)
	assert.Empty(t, r.FailedNewsAPI)
	assert.Equal(t, 2, llm.calls)

	require.NotEmpty(t, events)
	assert.Equal(t, StageCollect, events[0].Stage)
	assert.Equal(t, StageComplete, events[len(events)-1].Stage)
	var articleEvents int
	for _, e := range events {
		if e.Stage == StageArticle {
			articleEvents++
			assert.True(t, e.OK)
			assert.Equal(t, 1, e.Total)
		}
	}
	assert.Equal(t, 1, articleEvents)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	collector := scraper.NewCollector(
		staticSearcher{src: models.SourceGoogleNews, links: []models.CandidateLink{
			{URL: "https://news.google.com/rss/articles/1", Title: "From Google", Source: models.SourceGoogleNews},
			{URL: "https://news.google.com/rss/articles/2", Title: "Broken", Source: models.SourceGoogleNews},
		}},
		staticSearcher{src: models.SourceNewsAPI, links: []models.CandidateLink{
			{URL: "https://example.com/a", Title: "From NewsAPI", Source: models.SourceNewsAPI},
			{URL: "https://example.com/a", Title: "Exact duplicate", Source: models.SourceNewsAPI},
			{URL: "https://paywall.example.com/p", Title: "Paywalled", Source: models.SourceNewsAPI},
		}},
	)
	resolver := mapResolver{targets: map[string]string{
		"https://news.google.com/rss/articles/1": "https://example.com/a",
	}}
	ex := &mapExtractor{pages: map[string]models.ResolvedArticle{
		"https://example.com/a": {URL: "https://example.com/a", Title: "Real title", RawText: janeDoeBody},
	}}

	r, err := newTestPipeline(t, collector, resolver, ex, &fakeCompleter{}).Run(context.Background(), janeDoeWindow(t), nil)
	require.NoError(t, err)

	require.Len(t, r.Articles, 1)
	assert.Equal(t, "Real title", r.Articles[0].Title)
	assert.Equal(t, 1, ex.calls["https://example.com/a"])
	assert.Equal(t, 4, r.CandidateCount)
	assert.Equal(t, []models.LinkRef{{Title: "Broken", URL: "https://news.google.com/rss/articles/2"}}, r.UnanalyzedGoogle)
	assert.Equal(t, []models.LinkRef{{Title: "Paywalled", URL: "https://paywall.example.com/p"}}, r.FailedNewsAPI)
}

func TestRunNothingFound(t *testing.T) {
	collector := scraper.NewCollector(
		staticSearcher{src: models.SourceGoogleNews},
		staticSearcher{src: models.SourceNewsAPI, err: errors.New("rate limited")},
	)
	_, err := newTestPipeline(t, collector, mapResolver{}, &mapExtractor{}, &fakeCompleter{}).Run(context.Background(), janeDoeWindow(t), nil)
	require.ErrorIs(t, err, ErrNothingFound)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunSourceFailureIsWarning(t *testing.T) {
	collector := scraper.NewCollector(
		staticSearcher{src: models.SourceGoogleNews, err: errors.New("feed down")},
		staticSearcher{src: models.SourceNewsAPI, links: []models.CandidateLink{
			{URL: "https://example.com/a", Source: models.SourceNewsAPI},
		}},
	)
	ex := &mapExtractor{pages: map[string]models.ResolvedArticle{
		"https://example.com/a": {URL: "https://example.com/a", Title: "T", RawText: "Nothing about the person here."},
	}}
	llm := &fakeCompleter{}

	r, err := newTestPipeline(t, collector, mapResolver{}, ex, llm).Run(context.Background(), janeDoeWindow(t), nil)
	require.NoError(t, err)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "feed down")

	require.Len(t, r.Articles, 1)
	assert.Empty(t, r.Articles[0].Mentions)
	assert.Equal(t, ai.NoMentionsText, r.Articles[0].SentimentText)
	assert.Equal(t, models.SentimentNeutral, r.Articles[0].Sentiment)
	// Summary only; classification is skipped without mentions.
	assert.Equal(t, 1, llm.calls)
}

func TestRunCancelled(t *testing.T) {
	collector := scraper.NewCollector(staticSearcher{src: models.SourceNewsAPI, links: []models.CandidateLink{
		{URL: "https://example.com/a", Source: models.SourceNewsAPI},
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, collector, mapResolver{}, &mapExtractor{}, &fakeCompleter{}).Run(ctx, janeDoeWindow(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
