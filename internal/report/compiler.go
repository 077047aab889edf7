// Package report merges per-article results into a Report and renders it
// for export.
package report

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// Compiler accumulates outcomes for one search window. It is safe for
// concurrent use.
type Compiler struct {
	mu         sync.Mutex
	window     models.SearchWindow
	articles   map[string]models.ArticleReport
	unanalyzed []models.LinkRef
	failed     []models.LinkRef
	warnings   []string
	candidates int
	now        func() time.Time
}

// NewCompiler creates a Compiler for w.
func NewCompiler(w models.SearchWindow) *Compiler {
	return &Compiler{
		window:   w,
		articles: make(map[string]models.ArticleReport),
		now:      time.Now,
	}
}

// Add records an analyzed article. A later article with the same URL
// replaces the earlier one.
func (c *Compiler) Add(a models.ArticleReport) {
	c.mu.Lock()
	c.articles[a.URL] = a
	c.mu.Unlock()
}

// AddUnanalyzed lists a Google News link that could not be resolved or
// extracted.
func (c *Compiler) AddUnanalyzed(ref models.LinkRef) {
	c.mu.Lock()
	c.unanalyzed = append(c.unanalyzed, ref)
	c.mu.Unlock()
}

// AddFailed lists a NewsAPI article that could not be extracted.
func (c *Compiler) AddFailed(ref models.LinkRef) {
	c.mu.Lock()
	c.failed = append(c.failed, ref)
	c.mu.Unlock()
}

// AddWarning records a user-visible warning such as a failed source.
func (c *Compiler) AddWarning(msg string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, msg)
	c.mu.Unlock()
}

// SetCandidateCount records how many unique candidate links were processed.
func (c *Compiler) SetCandidateCount(n int) {
	c.mu.Lock()
	c.candidates = n
	c.mu.Unlock()
}

// Build returns the Report. Articles and link lists are sorted by URL.
func (c *Compiler) Build() *models.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	articles := make([]models.ArticleReport, 0, len(c.articles))
	for _, a := range c.articles {
		articles = append(articles, a)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].URL < articles[j].URL })

	return &models.Report{
		ID:               uuid.New(),
		PersonName:       c.window.PersonName,
		Date:             c.window.From,
		Articles:         articles,
		UnanalyzedGoogle: sortedRefs(c.unanalyzed),
		FailedNewsAPI:    sortedRefs(c.failed),
		Warnings:         append([]string(nil), c.warnings...),
		CandidateCount:   c.candidates,
		GeneratedAt:      c.now().UTC(),
	}
}

func sortedRefs(refs []models.LinkRef) []models.LinkRef {
	out := append([]models.LinkRef(nil), refs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Filename returns Report-<Name_With_Underscores>-<YYYY-MM-DD>.<ext>.
func Filename(r *models.Report, ext string) string {
	name := strings.ReplaceAll(r.PersonName, " ", "_")
	name = strings.Map(func(c rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, c) {
			return '_'
		}
		return c
	}, name)
	return "Report-" + name + "-" + r.Day() + "." + strings.TrimPrefix(ext, ".")
}
