// Command api serves the mentionwatch web UI and JSON API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/db"
	"github.com/Saul-Punybz/mentionwatch/internal/handlers"
	"github.com/Saul-Punybz/mentionwatch/internal/mailer"
	"github.com/Saul-Punybz/mentionwatch/internal/middleware"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

// reportTimeout bounds one report request, including every article fetch and
// LLM call.
const reportTimeout = 10 * time.Minute

func main() {
	cfg := config.Load()

	// Structured logging.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Optional run history.
	pool, err := db.Connect(ctx, cfg.DB, db.DefaultMigrationsDir)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	svc := &pipeline.Service{}
	runs := &handlers.RunsHandler{}
	if pool != nil {
		defer pool.Close()
		store := models.NewRunStore(pool)
		svc.Runs = store
		runs.Runs = store
	}

	p, closer, err := pipeline.FromConfig(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer closer.Close()
	svc.Pipeline = p

	if cfg.SMTP.Configured() {
		d, err := mailer.NewSMTPDistributor(cfg.SMTP)
		if err != nil {
			slog.Error("failed to configure mailer", "err", err)
			os.Exit(1)
		}
		svc.Mailer = d
	} else {
		slog.Warn("SMTP credentials not set, email delivery disabled")
	}

	format, _ := report.ParseFormat(cfg.Pipeline.ExportFormat)
	reports := handlers.NewReportsHandler(svc, cfg.Pipeline.DefaultDaysAgo, format)

	// Router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes.
	r.Get("/api/health", handlers.Health)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuth(cfg.Auth))

		r.Get("/api/runs", runs.List)

		// Report generation runs for minutes.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(reportTimeout))

			r.Get("/", reports.Index)
			r.Post("/report", reports.Submit)
			r.Post("/report/download", reports.Download)
			r.Post("/api/reports", reports.Create)
			r.Get("/api/reports/stream", reports.Stream)
		})
	})

	// Start server.
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: reportTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", addr, "llm", cfg.LLM.Provider, "history", pool != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}

	slog.Info("server stopped")
}
