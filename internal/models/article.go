package models

import (
	"net/url"
	"strings"
)

// Source identifies the search backend that produced a candidate link.
type Source string

const (
	SourceGoogleNews Source = "google_news"
	SourceNewsAPI    Source = "newsapi"
)

// CandidateLink is a raw search result before redirect resolution.
type CandidateLink struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Source Source `json:"source"`
}

// TitleNotFound is the extractor's placeholder for pages without a title. It
// is never shown to users.
const TitleNotFound = "Title Not Found"

// ResolvedArticle is the downloaded and parsed article at its final URL.
type ResolvedArticle struct {
	URL     string
	Title   string
	RawText string
}

// DisplayTitle returns the extracted title, or fallback when extraction found
// none.
func (a ResolvedArticle) DisplayTitle(fallback string) string {
	t := strings.TrimSpace(a.Title)
	if t == "" || t == TitleNotFound {
		if f := strings.TrimSpace(fallback); f != "" {
			return f
		}
		return a.URL
	}
	return t
}

// Sentiment is the three-valued tone label for one article.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Sentiments lists the labels in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// BucketSentiment maps free model text to a label: "Positive" anywhere wins,
// then "Negative", else Neutral. The match is case-sensitive and lossy.
func BucketSentiment(text string) Sentiment {
	switch {
	case strings.Contains(text, string(SentimentPositive)):
		return SentimentPositive
	case strings.Contains(text, string(SentimentNegative)):
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ParseSentiment validates a structured label against the enum,
// case-insensitively.
func ParseSentiment(label string) (Sentiment, bool) {
	for _, s := range Sentiments {
		if strings.EqualFold(strings.TrimSpace(label), string(s)) {
			return s, true
		}
	}
	return "", false
}

// ArticleReport is the analyzed result for one article.
type ArticleReport struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Source        Source    `json:"source"`
	Summary       string    `json:"summary"`
	Sentiment     Sentiment `json:"sentiment"`
	Justification string    `json:"justification"`
	SentimentText string    `json:"sentiment_text"`
	Mentions      []string  `json:"mentions"`
}

// Domain returns the host of the article URL without a leading "www.".
func (a ArticleReport) Domain() string {
	return HostOf(a.URL)
}

// HostOf returns the lowercase host of rawURL with a leading "www." removed,
// or "" when rawURL does not parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
