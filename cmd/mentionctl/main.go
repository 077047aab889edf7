// Command mentionctl generates mention reports from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/mailer"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/pipeline"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
	"github.com/Saul-Punybz/mentionwatch/internal/watchlist"
)

var (
	personName string
	date       string
	emails     []string
	format     string
	outDir     string
	quiet      bool
	listPath   string
)

var rootCmd = &cobra.Command{
	Use:           "mentionctl",
	Short:         "Generate news mention reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if quiet {
			level = slog.LevelWarn
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate one report and print it or write it to --out",
	Example: `  mentionctl report --name "Jane Doe" --date 2024-01-01
  mentionctl report --name "Jane Doe" --format pdf --out ./reports --email press@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if format == "" {
			format = cfg.Pipeline.ExportFormat
		}
		f, ok := report.ParseFormat(format)
		if !ok {
			return errors.New("--format must be txt or pdf")
		}
		if f == report.FormatPDF && outDir == "" {
			return errors.New("--out is required for pdf output")
		}

		w, err := models.ParseSearchWindow(personName, date, time.Now(), cfg.Pipeline.DefaultDaysAgo)
		if err != nil {
			return fmt.Errorf("invalid --name or --date: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, closer, err := newService(ctx, cfg, len(emails) > 0)
		if err != nil {
			return err
		}
		defer closer.Close()

		res, err := svc.Generate(ctx, pipeline.Request{
			Window:     w,
			Recipients: emails,
			Format:     f,
			Trigger:    models.TriggerCLI,
		}, logProgress)
		if err != nil {
			slog.Debug("generate failed", "err", err)
			return errors.New(pipeline.UserMessage(err))
		}
		if res.EmailError != "" {
			slog.Warn("email delivery failed", "err", res.EmailError)
		}

		if outDir == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), report.RenderText(res.Report))
			return err
		}
		return writeReport(res.Report, f)
	},
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Run one scheduled pass over the watchlist now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listPath == "" {
			listPath = cfg.Worker.WatchlistPath
		}
		wl, err := watchlist.Load(listPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, closer, err := newService(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer closer.Close()

		s := watchlist.Run(ctx, svc, wl, time.Now(), cfg.Pipeline.DefaultDaysAgo)
		fmt.Fprintf(cmd.OutOrStdout(), "reports=%d empty=%d failed=%d emailed=%d\n", s.Reports, s.Empty, s.Failed, s.Emailed)
		if s.Failed > 0 {
			return fmt.Errorf("%d report(s) failed", s.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")

	reportCmd.Flags().StringVarP(&personName, "name", "n", "", "Full name to search for")
	reportCmd.Flags().StringVarP(&date, "date", "d", "", "Day to search (YYYY-MM-DD), defaults to yesterday")
	reportCmd.Flags().StringSliceVarP(&emails, "email", "e", nil, "Email the report to these addresses")
	reportCmd.Flags().StringVarP(&format, "format", "f", "", "Export format: txt or pdf")
	reportCmd.Flags().StringVarP(&outDir, "out", "o", "", "Write the report file into this directory")
	_ = reportCmd.MarkFlagRequired("name")

	watchlistCmd.Flags().StringVar(&listPath, "file", "", "Watchlist YAML (defaults to WATCHLIST_PATH)")

	rootCmd.AddCommand(reportCmd, watchlistCmd)
}

func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newService wires the pipeline. Run history is left to the server and
// worker.
func newService(ctx context.Context, cfg config.Config, needMail bool) (*pipeline.Service, io.Closer, error) {
	p, closer, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := &pipeline.Service{Pipeline: p}
	if needMail {
		d, err := mailer.NewSMTPDistributor(cfg.SMTP)
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("email requested: %w", err)
		}
		svc.Mailer = d
	}
	return svc, closer, nil
}

func logProgress(p pipeline.Progress) {
	if p.Stage == pipeline.StageArticle {
		slog.Info("article", "done", p.Done, "total", p.Total, "ok", p.OK, "url", p.URL)
		return
	}
	slog.Info(p.Message, "stage", p.Stage)
}

func writeReport(r *models.Report, f report.Format) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	path := filepath.Join(outDir, report.Filename(r, string(f)))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.Render(file, r, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	slog.Info("report written", "path", path, "articles", len(r.Articles))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
