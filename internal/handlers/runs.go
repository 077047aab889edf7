package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// RunLister lists run history. *models.RunStore implements it.
type RunLister interface {
	List(ctx context.Context, f models.RunFilter) ([]models.ReportRun, error)
}

// RunsHandler serves run history.
type RunsHandler struct {
	// Runs is nil when no database is configured.
	Runs RunLister
}

// List handles GET /api/runs?person=&limit=.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not enabled")
		return
	}

	f := models.RunFilter{PersonName: r.URL.Query().Get("person")}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.ParseUint(l, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	runs, err := h.Runs.List(r.Context(), f)
	if err != nil {
		slog.Error("list runs", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []models.ReportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
