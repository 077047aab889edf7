package models

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Trigger names what started a report run.
type Trigger string

const (
	TriggerUI     Trigger = "ui"
	TriggerAPI    Trigger = "api"
	TriggerWorker Trigger = "worker"
	TriggerCLI    Trigger = "cli"
)

// ReportRun is the metadata recorded for one pipeline run. Report contents
// are not stored.
type ReportRun struct {
	ID         uuid.UUID `json:"id"`
	PersonName string    `json:"person_name"`
	SearchDate time.Time `json:"search_date"`
	Trigger    Trigger   `json:"trigger"`
	Candidates int       `json:"candidates"`
	Analyzed   int       `json:"analyzed"`
	Unanalyzed int       `json:"unanalyzed"`
	Emailed    bool      `json:"emailed"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunFromReport builds the run record for a finished report.
func RunFromReport(r *Report, trigger Trigger, emailed bool, took time.Duration) ReportRun {
	return ReportRun{
		ID:         r.ID,
		PersonName: r.PersonName,
		SearchDate: r.Date,
		Trigger:    trigger,
		Candidates: r.CandidateCount,
		Analyzed:   len(r.Articles),
		Unanalyzed: len(r.UnanalyzedGoogle) + len(r.FailedNewsAPI),
		Emailed:    emailed,
		DurationMS: took.Milliseconds(),
	}
}

// RunFilter narrows RunStore.List.
type RunFilter struct {
	PersonName string
	Limit      uint64
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// RunStore provides data access methods for report runs.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Create inserts a run record.
func (s *RunStore) Create(ctx context.Context, run *ReportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	query, args, err := insertRunQuery(*run)
	if err != nil {
		return fmt.Errorf("report run create: build: %w", err)
	}
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&run.CreatedAt); err != nil {
		return fmt.Errorf("report run create: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, f RunFilter) ([]ReportRun, error) {
	query, args, err := listRunsQuery(f)
	if err != nil {
		return nil, fmt.Errorf("report run list: build: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("report run list: %w", err)
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var r ReportRun
		var trigger string
		if err := rows.Scan(&r.ID, &r.PersonName, &r.SearchDate, &trigger, &r.Candidates,
			&r.Analyzed, &r.Unanalyzed, &r.Emailed, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("report run scan: %w", err)
		}
		r.Trigger = Trigger(trigger)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func insertRunQuery(r ReportRun) (string, []any, error) {
	return psql.Insert("report_runs").
		Columns("id", "person_name", "search_date", "triggered_by", "candidates",
			"analyzed", "unanalyzed", "emailed", "duration_ms").
		Values(r.ID, r.PersonName, r.SearchDate, string(r.Trigger), r.Candidates,
			r.Analyzed, r.Unanalyzed, r.Emailed, r.DurationMS).
		Suffix("RETURNING created_at").
		ToSql()
}

func listRunsQuery(f RunFilter) (string, []any, error) {
	limit := f.Limit
	if limit == 0 || limit > 200 {
		limit = 50
	}
	q := psql.Select("id", "person_name", "search_date", "triggered_by", "candidates",
		"analyzed", "unanalyzed", "emailed", "duration_ms", "created_at").
		From("report_runs").
		OrderBy("created_at DESC").
		Limit(limit)
	if f.PersonName != "" {
		q = q.Where(sq.ILike{"person_name": f.PersonName})
	}
	return q.ToSql()
}
