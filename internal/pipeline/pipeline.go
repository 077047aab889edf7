// Package pipeline runs one report: collect, resolve, extract, locate
// mentions, annotate, compile.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Saul-Punybz/mentionwatch/internal/ai"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
	"github.com/Saul-Punybz/mentionwatch/internal/scraper"
)

// ErrNothingFound is returned when neither source produced a candidate link.
var ErrNothingFound = errors.New("pipeline: no articles found")

// Collector gathers candidate links from all sources.
type Collector interface {
	Collect(ctx context.Context, w models.SearchWindow) scraper.CollectResult
}

// Resolver maps redirect links to publisher URLs.
type Resolver interface {
	IsRedirect(link string) bool
	Resolve(ctx context.Context, link string) (string, error)
}

// Extractor downloads and parses an article.
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.ResolvedArticle, error)
}

// Locator finds the sentences naming a person.
type Locator interface {
	Locate(text, name string) []string
}

// Annotator summarizes articles and classifies mention sentiment.
type Annotator interface {
	Summarize(ctx context.Context, text string) string
	Classify(ctx context.Context, name string, mentions []string) ai.Classification
}

// Deps are the services a Pipeline is built from.
type Deps struct {
	Collector Collector
	Resolver  Resolver
	Extractor Extractor
	Locator   Locator
	Annotator Annotator
}

// Stage names a pipeline step in progress events.
type Stage string

const (
	StageCollect  Stage = "collect"
	StageResolve  Stage = "resolve"
	StageAnalyze  Stage = "analyze"
	StageArticle  Stage = "article"
	StageComplete Stage = "complete"
)

// Progress is delivered to the Observer at each stage and after each
// article finishes.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	OK      bool   `json:"ok"`
}

// Observer receives progress events. Calls are serialized.
type Observer func(Progress)

// Pipeline produces reports. It holds no per-run state and is safe for
// concurrent Runs.
type Pipeline struct {
	deps    Deps
	workers int
}

// New creates a Pipeline processing up to workers articles at once.
func New(deps Deps, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{deps: deps, workers: workers}
}

// candidate is a link after exact-URL deduplication and resolution.
type candidate struct {
	link     models.CandidateLink
	finalURL string
}

// Run builds the report for w. It fails only when no candidate links are
// found or ctx is cancelled; every other failure is recorded in the report.
func (p *Pipeline) Run(ctx context.Context, w models.SearchWindow, observe Observer) (*models.Report, error) {
	start := time.Now()
	notify := serialize(observe)

	notify(Progress{Stage: StageCollect, Message: fmt.Sprintf("Searching Google News and NewsAPI for %q on %s...", w.PersonName, w.Day())})
	collected := p.deps.Collector.Collect(ctx, w)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	links := dedupeLinks(collected.Links)
	if len(links) == 0 {
		if len(collected.Warnings) > 0 {
			return nil, fmt.Errorf("%w (%s)", ErrNothingFound, strings.Join(collected.Warnings, "; "))
		}
		return nil, ErrNothingFound
	}

	comp := report.NewCompiler(w)
	for _, warn := range collected.Warnings {
		comp.AddWarning(warn)
	}
	comp.SetCandidateCount(len(links))

	notify(Progress{Stage: StageResolve, Message: fmt.Sprintf("Found %d links. Resolving redirect links...", len(links)), Total: len(links)})
	candidates, err := p.resolveAll(ctx, links, comp)
	if err != nil {
		return nil, err
	}

	total := len(candidates)
	notify(Progress{Stage: StageAnalyze, Message: fmt.Sprintf("Analyzing %d articles...", total), Total: total})

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, c := range candidates {
		g.Go(func() error {
			title, ok := p.analyze(gctx, w, c, comp)
			mu.Lock()
			done++
			n := done
			mu.Unlock()
			notify(Progress{Stage: StageArticle, Message: fmt.Sprintf("Processed %d of %d", n, total),
				Done: n, Total: total, URL: c.finalURL, Title: title, OK: ok})
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := comp.Build()
	notify(Progress{Stage: StageComplete, Message: fmt.Sprintf("Report ready: %d articles analyzed.", len(r.Articles)),
		Done: total, Total: total, OK: true})
	slog.Info("pipeline: report complete", "person", w.PersonName, "date", w.Day(),
		"candidates", len(links), "analyzed", len(r.Articles),
		"unanalyzed", len(r.UnanalyzedGoogle)+len(r.FailedNewsAPI), "took", time.Since(start))
	return r, nil
}

// resolveAll resolves redirect links concurrently, drops the unresolved ones
// into the report and removes duplicates by final URL, keeping the first.
func (p *Pipeline) resolveAll(ctx context.Context, links []models.CandidateLink, comp *report.Compiler) ([]candidate, error) {
	resolved := make([]candidate, len(links))
	ok := make([]bool, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, l := range links {
		if !p.deps.Resolver.IsRedirect(l.URL) {
			resolved[i], ok[i] = candidate{link: l, finalURL: l.URL}, true
			continue
		}
		g.Go(func() error {
			final, err := p.deps.Resolver.Resolve(gctx, l.URL)
			if err != nil {
				slog.Warn("pipeline: redirect unresolved", "url", l.URL, "err", err)
				comp.AddUnanalyzed(models.LinkRef{Title: l.Title, URL: l.URL})
				return nil
			}
			resolved[i], ok[i] = candidate{link: l, finalURL: final}, true
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(links))
	out := make([]candidate, 0, len(links))
	for i, c := range resolved {
		if !ok[i] || seen[c.finalURL] {
			continue
		}
		seen[c.finalURL] = true
		out = append(out, c)
	}
	return out, nil
}

// analyze extracts, locates and annotates one article. It returns the title
// shown in progress events and whether the article made it into the report.
func (p *Pipeline) analyze(ctx context.Context, w models.SearchWindow, c candidate, comp *report.Compiler) (string, bool) {
	article, err := p.deps.Extractor.Extract(ctx, c.finalURL)
	if err != nil {
		slog.Info("pipeline: extraction failed", "url", c.finalURL, "source", c.link.Source, "err", err)
		ref := models.LinkRef{Title: c.link.Title, URL: c.finalURL}
		if c.link.Source == models.SourceGoogleNews {
			comp.AddUnanalyzed(ref)
		} else {
			comp.AddFailed(ref)
		}
		return displayTitle(c.link), false
	}

	mentions := p.deps.Locator.Locate(article.RawText, w.PersonName)
	summary := p.deps.Annotator.Summarize(ctx, article.RawText)
	verdict := p.deps.Annotator.Classify(ctx, w.PersonName, mentions)

	a := models.ArticleReport{
		URL:           article.URL,
		Title:         article.DisplayTitle(c.link.Title),
		Source:        c.link.Source,
		Summary:       summary,
		Sentiment:     verdict.Sentiment,
		Justification: verdict.Justification,
		SentimentText: verdict.Text,
		Mentions:      mentions,
	}
	comp.Add(a)
	return a.Title, true
}

func displayTitle(l models.CandidateLink) string {
	if l.Title != "" {
		return l.Title
	}
	return l.URL
}

// dedupeLinks removes exact-URL duplicates, keeping the first occurrence.
func dedupeLinks(links []models.CandidateLink) []models.CandidateLink {
	seen := make(map[string]bool, len(links))
	out := make([]models.CandidateLink, 0, len(links))
	for _, l := range links {
		if l.URL == "" || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}

func serialize(observe Observer) Observer {
	if observe == nil {
		return func(Progress) {}
	}
	var mu sync.Mutex
	return func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		observe(p)
	}
}
