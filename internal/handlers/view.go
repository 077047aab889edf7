package handlers

import (
	"bytes"
	"encoding/base64"
	"embed"
	"html/template"
	"log/slog"
	"strings"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/viz"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"lower": func(s models.Sentiment) string { return strings.ToLower(string(s)) },
	"inc":   func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

// reportView is the template data for a finished report.
type reportView struct {
	Report     *models.Report
	Counts     sentimentCounts
	Emailed    bool
	EmailError string
	Donut      template.URL
	Sources    template.URL
	Cloud      template.URL
	Downloads  []downloadLink
}

type sentimentCounts struct {
	Positive, Negative, Neutral int
}

type downloadLink struct {
	Format string
	Label  string
}

// pageView is the template data for the index page.
type pageView struct {
	Form   reportForm
	Today  string
	Error  string
	Result *reportView
}

func newReportView(res *pipeline.Result) *reportView {
	r := res.Report
	v := &reportView{
		Report:     r,
		Counts:     countsOf(r),
		Emailed:    res.Emailed,
		EmailError: res.EmailError,
		Downloads:  []downloadLink{{"pdf", "Download PDF"}, {"txt", "Download text"}},
	}

	labels := make([]models.Sentiment, 0, len(r.Articles))
	for _, a := range r.Articles {
		labels = append(labels, a.Sentiment)
	}
	if png, err := viz.SentimentDonut(labels); err != nil {
		slog.Warn("view: sentiment chart", "err", err)
	} else {
		v.Donut = dataURI("image/png", png)
	}
	if png, err := viz.SourceBars(viz.SourceDomains(r.Articles)); err != nil {
		slog.Warn("view: source chart", "err", err)
	} else {
		v.Sources = dataURI("image/png", png)
	}
	v.Cloud = dataURI("image/svg+xml", viz.WordCloud(viz.CloudText(r.Articles)))
	return v
}

func countsOf(r *models.Report) sentimentCounts {
	c := r.SentimentCounts()
	return sentimentCounts{
		Positive: c[models.SentimentPositive],
		Negative: c[models.SentimentNegative],
		Neutral:  c[models.SentimentNeutral],
	}
}

func dataURI(mime string, data []byte) template.URL {
	if len(data) == 0 {
		return ""
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// renderFragment renders the report body without the page chrome.
func renderFragment(v *reportView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "report", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
