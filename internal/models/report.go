package models

import (
	"time"

	"github.com/google/uuid"
)

// LinkRef is a (title, url) pair listed in a report without analysis.
type LinkRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the full result of one person+date query. It lives for a single
// request and is never stored.
type Report struct {
	ID               uuid.UUID       `json:"id"`
	PersonName       string          `json:"person_name"`
	Date             time.Time       `json:"date"`
	Articles         []ArticleReport `json:"articles"`
	UnanalyzedGoogle []LinkRef       `json:"unanalyzed_google"`
	FailedNewsAPI    []LinkRef       `json:"failed_newsapi"`
	Warnings         []string        `json:"warnings,omitempty"`
	CandidateCount   int             `json:"candidate_count"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// SentimentCounts tallies the articles per label.
func (r *Report) SentimentCounts() map[Sentiment]int {
	counts := make(map[Sentiment]int, len(Sentiments))
	for _, a := range r.Articles {
		counts[a.Sentiment]++
	}
	return counts
}

// Day returns the report date formatted as YYYY-MM-DD.
func (r *Report) Day() string {
	return r.Date.Format(DateLayout)
}
