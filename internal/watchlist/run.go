package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

// Generator produces reports. *pipeline.Service implements it.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request, observe pipeline.Observer) (*pipeline.Result, error)
}

// Summary counts the outcomes of one scheduled pass.
type Summary struct {
	Reports int
	Empty   int
	Failed  int
	Emailed int
}

// Run generates the report for every person, one at a time, covering the
// day daysAgo before now. A failure for one person does not stop the pass.
func Run(ctx context.Context, gen Generator, wl *Watchlist, now time.Time, daysAgo int) Summary {
	day := models.DefaultDate(now, daysAgo)

	var s Summary
	for _, p := range wl.People {
		if ctx.Err() != nil {
			slog.Warn("watchlist: pass cancelled", "remaining", len(wl.People)-s.Reports-s.Empty-s.Failed)
			break
		}

		w, err := models.NewSearchWindow(p.Name, day)
		if err != nil {
			slog.Error("watchlist: bad entry", "person", p.Name, "err", err)
			s.Failed++
			continue
		}
		format, _ := report.ParseFormat(p.Format)

		res, err := gen.Generate(ctx, pipeline.Request{
			Window:     w,
			Recipients: p.Recipients,
			Format:     format,
			Trigger:    models.TriggerWorker,
		}, nil)
		switch {
		case errors.Is(err, pipeline.ErrNothingFound):
			slog.Info("watchlist: no articles", "person", p.Name, "date", w.Day())
			s.Empty++
			continue
		case err != nil:
			slog.Error("watchlist: report failed", "person", p.Name, "date", w.Day(), "err", err)
			s.Failed++
			continue
		}

		s.Reports++
		if res.Emailed {
			s.Emailed++
		}
		slog.Info("watchlist: report complete",
			"person", p.Name,
			"date", w.Day(),
			"articles", len(res.Report.Articles),
			"emailed", res.Emailed,
		)
	}
	return s
}
