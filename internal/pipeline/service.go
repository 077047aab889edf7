package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Saul-Punybz/mentionwatch/internal/ai"
	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/mailer"
	"github.com/Saul-Punybz/mentionwatch/internal/mentions"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
	"github.com/Saul-Punybz/mentionwatch/internal/scraper"
)

// Mailer sends a rendered report to one recipient.
type Mailer interface {
	Send(ctx context.Context, r *models.Report, format report.Format, recipient string) error
}

// RunRecorder stores run metadata.
type RunRecorder interface {
	Create(ctx context.Context, run *models.ReportRun) error
}

// Request is one report request from any entry point.
type Request struct {
	Window     models.SearchWindow
	Recipients []string
	Format     report.Format
	Trigger    models.Trigger
}

// Result is a finished report plus the email outcome.
type Result struct {
	Report  *models.Report
	Emailed bool
	// EmailError is the user-facing message of the first failed send.
	EmailError string
}

// Service runs the pipeline, mails the report and records run history.
type Service struct {
	Pipeline *Pipeline
	// Mailer may be nil when SMTP is not configured.
	Mailer Mailer
	// Runs may be nil when no database is configured.
	Runs RunRecorder
}

// Generate produces the report for req. Email and history failures do not
// fail the request.
func (s *Service) Generate(ctx context.Context, req Request, observe Observer) (*Result, error) {
	start := time.Now()
	r, err := s.Pipeline.Run(ctx, req.Window, observe)
	if err != nil {
		return nil, err
	}

	res := &Result{Report: r}
	if len(req.Recipients) > 0 {
		s.email(ctx, req, res)
	}

	if s.Runs != nil {
		run := models.RunFromReport(r, req.Trigger, res.Emailed, time.Since(start))
		if err := s.Runs.Create(ctx, &run); err != nil {
			slog.Error("pipeline: record run", "person", r.PersonName, "err", err)
		}
	}
	return res, nil
}

func (s *Service) email(ctx context.Context, req Request, res *Result) {
	if s.Mailer == nil {
		res.EmailError = mailer.UserMessage(mailer.ErrNotConfigured)
		return
	}
	format := req.Format
	if format == "" {
		format = report.FormatPDF
	}

	sent := 0
	for _, rcpt := range req.Recipients {
		rcpt = strings.TrimSpace(rcpt)
		if rcpt == "" {
			continue
		}
		if err := s.Mailer.Send(ctx, res.Report, format, rcpt); err != nil {
			if res.EmailError == "" {
				res.EmailError = mailer.UserMessage(err)
			}
			continue
		}
		sent++
	}
	res.Emailed = sent > 0 && res.EmailError == ""
}

// FromConfig wires a Pipeline from cfg. The returned closer releases the LLM
// client.
func FromConfig(ctx context.Context, cfg config.Config) (*Pipeline, io.Closer, error) {
	llm, err := ai.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	closer, ok := llm.(io.Closer)
	if !ok {
		closer = nopCloser{}
	}

	splitter, err := mentions.NewPunktSplitter()
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	client := &http.Client{Timeout: cfg.Pipeline.ResolveTimeout}
	ua := cfg.Pipeline.UserAgent

	p := New(Deps{
		Collector: scraper.NewCollector(
			scraper.NewGoogleNews(cfg.GoogleNews, client, ua),
			scraper.NewNewsAPI(cfg.NewsAPI, client, ua),
		),
		Resolver:  scraper.NewResolver(cfg.GoogleNews.RedirectHosts, cfg.GoogleNews.NonPublisherHosts, ua, cfg.Pipeline.ResolveTimeout),
		Extractor: scraper.NewExtractor(ua, cfg.Pipeline.ExtractTimeout, cfg.Pipeline.MinBodyLength),
		Locator:   mentions.NewLocator(splitter),
		Annotator: ai.NewAnnotator(llm, cfg.Pipeline.MaxArticleChars),
	}, cfg.Pipeline.Workers)
	return p, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// UserMessage maps a Generate error to the text shown to users.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNothingFound):
		return "No news articles were found for this name and date."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The report was cancelled before it finished."
	default:
		return "The report could not be generated."
	}
}
