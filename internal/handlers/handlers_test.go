package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

type fakeGenerator struct {
	err  error
	reqs []pipeline.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req pipeline.Request, observe pipeline.Observer) (*pipeline.Result, error) {
	f.reqs = append(f.reqs, req)
	if observe != nil {
		observe(pipeline.Progress{Stage: pipeline.StageCollect, Message: "Searching news sources"})
		observe(pipeline.Progress{Stage: pipeline.StageArticle, Done: 1, Total: 1, URL: "https://example.com/a", OK: true})
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Report: sampleReport(req.Window), Emailed: len(req.Recipients) > 0}, nil
}

func sampleReport(w models.SearchWindow) *models.Report {
	return &models.Report{
		ID:         uuid.MustParse("5f0c7c1e-8f4a-4d1b-9b7e-3f2a1c6d9e01"),
		PersonName: w.PersonName,
		Date:       w.From,
		Articles: []models.ArticleReport{{
			URL:           "https://example.com/a",
			Title:         "Jane Doe opens clinic",
			Source:        models.SourceNewsAPI,
			Summary:       "Jane Doe opened a clinic.",
			Sentiment:     models.SentimentPositive,
			Justification: "She is praised.",
			Mentions:      []string{"Jane Doe opened a new community clinic on Monday."},
		}},
		UnanalyzedGoogle: []models.LinkRef{{Title: "Paywalled", URL: "https://paywall.example/x"}},
		CandidateCount:   2,
		GeneratedAt:      time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	}
}

var fixedNow = func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) }

func newTestHandler(gen *fakeGenerator) *ReportsHandler {
	h := NewReportsHandler(gen, 1, report.FormatPDF)
	h.Defaults.Now = fixedNow
	return h
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestDefaults(t *testing.T) {
	d := reportDefaults{DaysAgo: 1, Format: report.FormatText, Now: fixedNow}

	req, err := d.request(reportForm{PersonName: "  Jane   Doe ", Email: "a@x.com, b@x.com"}, models.TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", req.Window.PersonName)
	assert.Equal(t, "2024-01-01", req.Window.Day())
	assert.Equal(t, report.FormatText, req.Format)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, req.Recipients)
	assert.Equal(t, models.TriggerAPI, req.Trigger)
}

func TestRequestValidation(t *testing.T) {
	d := reportDefaults{Format: report.FormatPDF, Now: fixedNow}

	tests := []struct {
		form reportForm
		want string
	}{
		{reportForm{PersonName: "   "}, "person name is required"},
		{reportForm{PersonName: "Jane Doe", Date: "01/01/2024"}, "date must be YYYY-MM-DD"},
		{reportForm{PersonName: "Jane Doe", Format: "docx"}, "format must be txt or pdf"},
	}
	for _, tt := range tests {
		_, err := d.request(tt.form, models.TriggerUI)
		require.Error(t, err)
		assert.Equal(t, tt.want, err.Error())
	}
}

func TestIndexPrefillsYesterday(t *testing.T) {
	h := newTestHandler(&fakeGenerator{})
	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `value="2024-01-01"`)
}

func postForm(target string, v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSubmitRendersReport(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestHandler(gen)
	rec := httptest.NewRecorder()
	h.Submit(rec, postForm("/report", url.Values{"name": {"Jane Doe"}, "date": {"2024-01-01"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Jane Doe opens clinic")
	assert.Contains(t, body, "sentiment-positive")
	assert.Contains(t, body, "https://paywall.example/x")
	assert.Contains(t, body, "data:image/png;base64,")
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, models.TriggerUI, gen.reqs[0].Trigger)
}

func TestSubmitShowsErrors(t *testing.T) {
	h := newTestHandler(&fakeGenerator{})
	rec := httptest.NewRecorder()
	h.Submit(rec, postForm("/report", url.Values{"name": {""}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "person name is required")

	h = newTestHandler(&fakeGenerator{err: pipeline.ErrNothingFound})
	rec = httptest.NewRecorder()
	h.Submit(rec, postForm("/report", url.Values{"name": {"Nobody Known"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No news articles were found")
}

func TestDownload(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestHandler(gen)
	rec := httptest.NewRecorder()
	h.Download(rec, postForm("/report/download", url.Values{
		"name": {"Jane Doe"}, "date": {"2024-01-01"}, "format": {"txt"}, "email": {"ignored@example.com"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Report-Jane_Doe-2024-01-01.txt"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "News Report for Jane Doe"))
	require.Len(t, gen.reqs, 1)
	assert.Empty(t, gen.reqs[0].Recipients)
}

func TestCreate(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestHandler(gen)

	body := `{"person_name":"Jane Doe","date":"2024-01-01","email":"a@x.com","format":"txt"}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Report  models.Report `json:"report"`
		Emailed bool          `json:"emailed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Emailed)
	assert.Equal(t, "Jane Doe", resp.Report.PersonName)
	assert.Equal(t, "5f0c7c1e-8f4a-4d1b-9b7e-3f2a1c6d9e01", resp.Report.ID.String())
	require.Len(t, resp.Report.Articles, 1)
	assert.Equal(t, models.TriggerAPI, gen.reqs[0].Trigger)
	assert.Equal(t, report.FormatText, gen.reqs[0].Format)
}

func TestCreateRejectsBadBody(t *testing.T) {
	h := newTestHandler(&fakeGenerator{})
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestCreateCancelled(t *testing.T) {
	h := newTestHandler(&fakeGenerator{err: fmt.Errorf("run: %w", context.Canceled)})
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{"person_name":"Jane Doe"}`)))

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}

func TestStreamEvents(t *testing.T) {
	h := newTestHandler(&fakeGenerator{})
	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/reports/stream?name=Jane+Doe&date=2024-01-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()

	status := strings.Index(body, "event: status\n")
	progress := strings.Index(body, "event: progress\n")
	final := strings.Index(body, "event: report\n")
	require.True(t, status >= 0 && progress > status && final > progress, body)
	assert.Contains(t, body, `"url":"https://example.com/a"`)
	assert.Contains(t, body[final:], "data: ")
	assert.Contains(t, body[final:], "Jane Doe opens clinic")
	assert.NotContains(t, body, "event: error")
}

func TestStreamError(t *testing.T) {
	h := newTestHandler(&fakeGenerator{err: pipeline.ErrNothingFound})
	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/reports/stream?name=Nobody", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "No news articles were found")
	assert.NotContains(t, body, "event: report")
}

func TestWriteEventPrefixesLines(t *testing.T) {
	rec := httptest.NewRecorder()
	writeEvent(rec, "report", "<div>\n<p>x</p>\n</div>")
	assert.Equal(t, "event: report\ndata: <div>\ndata: <p>x</p>\ndata: </div>\n\n", rec.Body.String())
}

type fakeRuns struct {
	filter models.RunFilter
	runs   []models.ReportRun
}

func (f *fakeRuns) List(_ context.Context, filter models.RunFilter) ([]models.ReportRun, error) {
	f.filter = filter
	return f.runs, nil
}

func TestRunsList(t *testing.T) {
	runs := &fakeRuns{runs: []models.ReportRun{{PersonName: "Jane Doe", Analyzed: 1}}}
	h := &RunsHandler{Runs: runs}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs?person=Jane+Doe&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RunFilter{PersonName: "Jane Doe", Limit: 5}, runs.filter)
	assert.Contains(t, rec.Body.String(), `"runs":[`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsListDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	(&RunsHandler{}).List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewReportViewWithoutArticles(t *testing.T) {
	w, err := models.NewSearchWindow("Jane Doe", fixedNow())
	require.NoError(t, err)
	r := sampleReport(w)
	r.Articles = nil

	v := newReportView(&pipeline.Result{Report: r})
	assert.Empty(t, v.Donut)
	assert.Empty(t, v.Cloud)

	html, err := renderFragment(v)
	require.NoError(t, err)
	assert.True(t, bytes.Contains([]byte(html), []byte("Paywalled")))
}
