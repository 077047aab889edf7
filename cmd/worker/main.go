// Command worker generates and emails the daily report for every person on
// the watchlist on a cron schedule.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/db"
	"github.com/Saul-Punybz/mentionwatch/internal/mailer"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/watchlist"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("worker: starting mentionwatch worker")

	if err := cfg.Validate(); err != nil {
		slog.Error("worker: invalid configuration", "err", err)
		os.Exit(1)
	}

	wl, err := watchlist.Load(cfg.Worker.WatchlistPath)
	if err != nil {
		slog.Error("worker: load watchlist", "path", cfg.Worker.WatchlistPath, "err", err)
		os.Exit(1)
	}

	// Create a root context that is cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &pipeline.Service{}

	// Optional run history.
	pool, err := db.Connect(ctx, cfg.DB, db.DefaultMigrationsDir)
	if err != nil {
		slog.Error("worker: database connection failed", "err", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		svc.Runs = models.NewRunStore(pool)
	}

	p, closer, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		slog.Error("worker: build pipeline", "err", err)
		os.Exit(1)
	}
	defer closer.Close()
	svc.Pipeline = p

	d, err := mailer.NewSMTPDistributor(cfg.SMTP)
	if err != nil {
		slog.Error("worker: mailer required for scheduled reports", "err", err)
		os.Exit(1)
	}
	svc.Mailer = d

	pass := func() {
		jobCtx, jobCancel := context.WithTimeout(ctx, 3*time.Hour)
		defer jobCancel()

		start := time.Now()
		s := watchlist.Run(jobCtx, svc, wl, start, cfg.Pipeline.DefaultDaysAgo)
		slog.Info("worker: pass complete",
			"people", len(wl.People),
			"reports", s.Reports,
			"empty", s.Empty,
			"failed", s.Failed,
			"emailed", s.Emailed,
			"took", time.Since(start).Round(time.Second).String(),
		)
	}

	// Track in-flight jobs for graceful shutdown.
	var wg sync.WaitGroup

	// Skip a tick while the previous pass is still running.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = c.AddFunc(wl.Schedule, func() {
		wg.Add(1)
		defer wg.Done()

		slog.Info("cron: watchlist reports triggered", "people", len(wl.People))
		pass()
	})
	if err != nil {
		slog.Error("worker: add watchlist cron", "schedule", wl.Schedule, "err", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("worker: cron scheduler started",
		"schedule", wl.Schedule,
		"people", len(wl.People),
	)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slog.Info("worker: received shutdown signal", "signal", sig.String())

	// Stop accepting new cron jobs.
	cronCtx := c.Stop()

	// Cancel the root context to signal in-flight reports to stop.
	cancel()

	select {
	case <-cronCtx.Done():
		slog.Info("worker: cron scheduler stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("worker: cron scheduler stop timed out")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("worker: all in-flight jobs complete")
	case <-time.After(60 * time.Second):
		slog.Warn("worker: timed out waiting for in-flight jobs")
	}

	slog.Info("worker: shutdown complete")
}
