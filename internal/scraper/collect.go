package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// Searcher is one search backend.
type Searcher interface {
	Source() models.Source
	Search(ctx context.Context, w models.SearchWindow) ([]models.CandidateLink, error)
}

// CollectResult holds the links gathered from every searcher plus a warning
// per searcher that failed.
type CollectResult struct {
	Links    []models.CandidateLink
	Warnings []string
}

// Collector queries all searchers concurrently. A failing searcher does not
// stop the others.
type Collector struct {
	searchers []Searcher
}

// NewCollector creates a Collector over searchers, queried in the given order.
func NewCollector(searchers ...Searcher) *Collector {
	return &Collector{searchers: searchers}
}

// Collect runs every searcher for w. Links keep searcher order, then result
// order.
func (c *Collector) Collect(ctx context.Context, w models.SearchWindow) CollectResult {
	type outcome struct {
		links []models.CandidateLink
		err   error
	}
	outcomes := make([]outcome, len(c.searchers))

	var wg sync.WaitGroup
	for i, s := range c.searchers {
		wg.Add(1)
		go func(i int, s Searcher) {
			defer wg.Done()
			links, err := s.Search(ctx, w)
			outcomes[i] = outcome{links: links, err: err}
		}(i, s)
	}
	wg.Wait()

	var res CollectResult
	for i, o := range outcomes {
		src := c.searchers[i].Source()
		if o.err != nil {
			slog.Warn("collect: search failed", "source", src, "person", w.PersonName, "err", o.err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s search failed: %v", src, o.err))
			continue
		}
		slog.Info("collect: search complete", "source", src, "person", w.PersonName, "links", len(o.links))
		res.Links = append(res.Links, o.links...)
	}
	return res
}
