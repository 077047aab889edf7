// Package viz derives charts from a report. Every function returns nil
// output for empty input.
package viz

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

const maxSources = 10

// SentimentColors maps labels to their badge and chart colour.
var SentimentColors = map[models.Sentiment]string{
	models.SentimentPositive: "2e7d32",
	models.SentimentNegative: "c62828",
	models.SentimentNeutral:  "ef6c00",
}

// Count is a label with its number of occurrences.
type Count struct {
	Label string
	N     int
}

// SentimentDonut renders the distribution of labels as a PNG donut chart.
func SentimentDonut(labels []models.Sentiment) ([]byte, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	counts := make(map[models.Sentiment]int, len(models.Sentiments))
	for _, l := range labels {
		counts[l]++
	}

	var values []chart.Value
	for _, s := range models.Sentiments {
		n := counts[s]
		if n == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", s, n),
			Value: float64(n),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(SentimentColors[s]),
				StrokeColor: drawing.ColorWhite,
				FontColor:   drawing.ColorWhite,
			},
		})
	}
	// Only labels outside the enum were given.
	if len(values) == 0 {
		return nil, nil
	}

	donut := chart.DonutChart{
		Title:  "Sentiment Breakdown",
		Width:  480,
		Height: 480,
		Values: values,
	}
	var buf bytes.Buffer
	if err := donut.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("viz: sentiment donut: %w", err)
	}
	return buf.Bytes(), nil
}

// SourceDomains returns the domain of each article, in article order.
func SourceDomains(articles []models.ArticleReport) []string {
	var out []string
	for _, a := range articles {
		if d := a.Domain(); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// CountSources tallies domains, most frequent first, ties by name.
func CountSources(domains []string) []Count {
	byName := make(map[string]int)
	for _, d := range domains {
		byName[d]++
	}
	counts := make([]Count, 0, len(byName))
	for name, n := range byName {
		counts = append(counts, Count{Label: name, N: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].N != counts[j].N {
			return counts[i].N > counts[j].N
		}
		return counts[i].Label < counts[j].Label
	})
	return counts
}

// SourceBars renders the most frequent source domains as a PNG bar chart.
func SourceBars(domains []string) ([]byte, error) {
	counts := CountSources(domains)
	if len(counts) == 0 {
		return nil, nil
	}
	if len(counts) > maxSources {
		counts = counts[:maxSources]
	}

	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Label: c.Label,
			Value: float64(c.N),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("1565c0"),
				StrokeColor: drawing.ColorFromHex("1565c0"),
			},
		})
	}

	bc := chart.BarChart{
		Title:    "Top News Sources",
		Width:    800,
		Height:   400,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Bottom: 20},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(counts[0].N)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("viz: source bars: %w", err)
	}
	return buf.Bytes(), nil
}
