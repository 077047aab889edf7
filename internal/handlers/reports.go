package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

// Generator produces reports. *pipeline.Service implements it.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request, observe pipeline.Observer) (*pipeline.Result, error)
}

// ReportsHandler serves the report form, the progress stream and the JSON
// API.
type ReportsHandler struct {
	Service  Generator
	Defaults reportDefaults
}

// NewReportsHandler creates a ReportsHandler. daysAgo picks the default date
// and format the default export format.
func NewReportsHandler(svc Generator, daysAgo int, format report.Format) *ReportsHandler {
	return &ReportsHandler{Service: svc, Defaults: reportDefaults{DaysAgo: daysAgo, Format: format}}
}

func (h *ReportsHandler) page(form reportForm) pageView {
	now := h.Defaults.now()
	if form.Date == "" {
		form.Date = models.DefaultDate(now, h.Defaults.DaysAgo).Format(models.DateLayout)
	}
	if form.Format == "" {
		form.Format = string(h.Defaults.Format)
	}
	return pageView{Form: form, Today: now.Format(models.DateLayout)}
}

func renderPage(w http.ResponseWriter, status int, v pageView) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index", v); err != nil {
		slog.Error("render page", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index handles GET /.
func (h *ReportsHandler) Index(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, h.page(reportForm{}))
}

// Submit handles POST /report: it runs the pipeline and renders the full
// report page.
func (h *ReportsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	form := formFromRequest(r)
	v := h.page(form)

	req, err := h.Defaults.request(form, models.TriggerUI)
	if err != nil {
		v.Error = err.Error()
		renderPage(w, http.StatusBadRequest, v)
		return
	}

	res, err := h.Service.Generate(r.Context(), req, nil)
	if err != nil {
		slog.Warn("report: generate failed", "person", req.Window.PersonName, "err", err)
		v.Error = pipeline.UserMessage(err)
		renderPage(w, statusFor(err), v)
		return
	}
	v.Result = newReportView(res)
	renderPage(w, http.StatusOK, v)
}

// Download handles POST /report/download: it runs the pipeline and returns
// the export file without writing it to disk.
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	form := formFromRequest(r)
	form.Email = ""
	req, err := h.Defaults.request(form, models.TriggerUI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Service.Generate(r.Context(), req, nil)
	if err != nil {
		writeError(w, statusFor(err), pipeline.UserMessage(err))
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, res.Report, req.Format); err != nil {
		slog.Error("report: render export", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(res.Report, string(req.Format))))
	_, _ = buf.WriteTo(w)
}

// createResponse is the JSON body of POST /api/reports.
type createResponse struct {
	Report     *models.Report `json:"report"`
	Emailed    bool           `json:"emailed"`
	EmailError string         `json:"email_error,omitempty"`
}

// Create handles POST /api/reports.
// Body: { "person_name": "Jane Doe", "date": "2024-01-01", "email": "...", "format": "pdf" }
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form reportForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := h.Defaults.request(form, models.TriggerAPI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Service.Generate(r.Context(), req, nil)
	if err != nil {
		slog.Warn("api: generate failed", "person", req.Window.PersonName, "err", err)
		writeError(w, statusFor(err), pipeline.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Report: res.Report, Emailed: res.Emailed, EmailError: res.EmailError})
}

// Stream handles GET /api/reports/stream?name=&date=&email=&format= as
// Server-Sent Events: "status" and "progress" while running, then "report"
// with the rendered HTML fragment or "error".
func (h *ReportsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, err := h.Defaults.request(formFromRequest(r), models.TriggerUI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			slog.Error("sse: marshal", "event", event, "err", err)
			return
		}
		writeEvent(w, event, string(data))
		flusher.Flush()
	}

	res, err := h.Service.Generate(r.Context(), req, func(p pipeline.Progress) {
		if p.Stage == pipeline.StageArticle {
			send("progress", p)
			return
		}
		send("status", p)
	})
	if err != nil {
		slog.Warn("sse: generate failed", "person", req.Window.PersonName, "err", err)
		send("error", map[string]string{"error": pipeline.UserMessage(err)})
		return
	}

	html, err := renderFragment(newReportView(res))
	if err != nil {
		slog.Error("sse: render report", "err", err)
		send("error", map[string]string{"error": "report could not be rendered"})
		return
	}
	writeEvent(w, "report", html)
	flusher.Flush()
}

// writeEvent writes one SSE event, prefixing every line of data.
func writeEvent(w http.ResponseWriter, event, data string) {
	var sb strings.Builder
	sb.WriteString("event: ")
	sb.WriteString(event)
	sb.WriteString("\n")
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(strings.TrimRight(line, "\r"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if _, err := w.Write([]byte(sb.String())); err != nil {
		slog.Debug("sse: write", "err", err)
	}
}
