package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"PressWatch/internal/app"
	"PressWatch/internal/config"
	"PressWatch/internal/logging"
)

func build(ctx context.Context, cmd *cli.Command) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build app: %w", err)
	}
	return application, logger, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, _, err := build(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Serve(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func crawl(ctx context.Context, cmd *cli.Command) error {
	application, logger, err := build(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.CrawlOnce(ctx, cmd.String("group"), cmd.String("source"))
	for _, f := range report.FailedSources {
		logger.Warn("source failed", "source", f.SourceID, "error", f.Err)
	}
	if err != nil {
		return err
	}
	logger.Info("crawl finished",
		"group", report.GroupID,
		"candidates", report.CandidateCount,
		"new", report.New,
		"saved", report.Saved,
		"summarized", report.Summarized,
		"store_failures", report.StoreFailures,
	)
	return nil
}

func notify(ctx context.Context, cmd *cli.Command) error {
	application, logger, err := build(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.NotifyOnce(ctx, cmd.String("group"))
	if err != nil {
		return err
	}
	logger.Info("notification finished",
		"group", report.GroupID,
		"notified", len(report.Notified),
		"skipped", report.Skipped,
		"delivery_failures", report.DeliveryFailures,
	)
	return nil
}

func main() {
	groupFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "group",
			Aliases:  []string{"g"},
			Usage:    "Group id",
			Required: true,
		}
	}

	cmd := &cli.Command{
		Name:  "presswatch",
		Usage: "Watches news listings, stores new items, summarizes them and notifies subscribers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("PRESSWATCH_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the scheduled crawl and notification jobs",
				Action: serve,
			},
			{
				Name:  "crawl",
				Usage: "Crawl a group (or one of its sources) once",
				Flags: []cli.Flag{
					groupFlag(),
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Crawl and save only this source"},
				},
				Action: crawl,
			},
			{
				Name:   "notify",
				Usage:  "Run the notification gate for a group once",
				Flags:  []cli.Flag{groupFlag()},
				Action: notify,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
