// Package handlers implements the mentionwatch web UI and JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

// writeJSON encodes v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health handles GET /api/health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reportForm is the input shared by the form, stream and JSON endpoints.
type reportForm struct {
	PersonName string `json:"person_name"`
	Date       string `json:"date"`
	Email      string `json:"email"`
	Format     string `json:"format"`
}

// reportDefaults holds what a blank form field falls back to.
type reportDefaults struct {
	DaysAgo int
	Format  report.Format
	Now     func() time.Time
}

func (d reportDefaults) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

var errBadFormat = errors.New("format must be txt or pdf")

// request validates f into a pipeline request.
func (d reportDefaults) request(f reportForm, trigger models.Trigger) (pipeline.Request, error) {
	w, err := models.ParseSearchWindow(f.PersonName, f.Date, d.now(), d.DaysAgo)
	if err != nil {
		if errors.Is(err, models.ErrEmptyName) {
			return pipeline.Request{}, errors.New("person name is required")
		}
		return pipeline.Request{}, errors.New("date must be YYYY-MM-DD")
	}

	format := d.Format
	if strings.TrimSpace(f.Format) != "" {
		var ok bool
		if format, ok = report.ParseFormat(f.Format); !ok {
			return pipeline.Request{}, errBadFormat
		}
	}
	if format == "" {
		format = report.FormatPDF
	}

	return pipeline.Request{
		Window:     w,
		Recipients: splitRecipients(f.Email),
		Format:     format,
		Trigger:    trigger,
	}, nil
}

// splitRecipients accepts comma, semicolon or space separated addresses.
func splitRecipients(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
}

func formFromRequest(r *http.Request) reportForm {
	get := r.FormValue
	return reportForm{
		PersonName: get("name"),
		Date:       get("date"),
		Email:      get("email"),
		Format:     get("format"),
	}
}

// statusFor maps a Generate error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNothingFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
