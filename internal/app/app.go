package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"PressWatch/internal/api"
	"PressWatch/internal/config"
	"PressWatch/internal/domain"
	"PressWatch/internal/infrastructure/fetch"
	"PressWatch/internal/infrastructure/llm"
	"PressWatch/internal/infrastructure/natsbus"
	"PressWatch/internal/infrastructure/parser"
	"PressWatch/internal/infrastructure/scheduler"
	"PressWatch/internal/infrastructure/storage"
	"PressWatch/internal/infrastructure/telegram"
	"PressWatch/internal/logging"
	"PressWatch/internal/metrics"
	"PressWatch/internal/ports"
	"PressWatch/internal/scanner"
	"PressWatch/internal/usecase"
)

const defaultShutdownTimeout = 10 * time.Second

type store interface {
	ports.ItemRepository
	ports.WatermarkRepository
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     store
	closers   []func() error
	pipeline  *usecase.Pipeline
	notify    *usecase.NotificationService
	scheduler *usecase.Scheduler
	registry  *prometheus.Registry
}

// New builds the application. Close must be called to release the store and the NATS connection.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	fetcher := fetch.NewHTTPFetcher(nil, fetch.Options{
		Timeout:           cfg.Crawl.Timeout,
		UserAgent:         cfg.Crawl.UserAgent,
		RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		Burst:             cfg.Crawl.Burst,
	})

	registry := scanner.NewRegistry()
	registry.Register(parser.NewListScanner(fetcher, baseLogger.With("component", "scanner.list")))

	crawler := parser.NewStrategySource(registry, parser.StrategyOptions{
		Concurrency:   cfg.Crawl.Concurrency,
		SourceTimeout: cfg.Crawl.SourceTimeout,
		Metrics:       m,
	}, baseLogger.With("component", "crawler"))

	var summarizer ports.Summarizer
	if cfg.OpenAI.Enabled() {
		summarizer = llm.NewChatGPTSummarizer(cfg.OpenAI)
	} else {
		baseLogger.Warn("openai api key not set; summaries stay pending")
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Crawler:          crawler,
		Catalog:          cfg,
		Items:            a.store,
		Fetcher:          fetcher,
		Summarizer:       summarizer,
		WriteConcurrency: cfg.Crawl.Concurrency,
		BodyLimit:        cfg.OpenAI.BodyLimit,
		Metrics:          m,
		Logger:           baseLogger.With("component", "pipeline"),
	})

	notifiers, err := a.buildNotifiers()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.notify = usecase.NewNotificationService(usecase.NotificationDeps{
		Items:      a.store,
		Watermarks: a.store,
		Notifiers:  notifiers,
		MaxPerRun:  cfg.Notify.MaxPerRun,
		Metrics:    m,
		Logger:     baseLogger.With("component", "notify"),
	})

	cronLogger := baseLogger.With("component", "scheduler")
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location(), cronLogger),
		a.pipeline,
		a.notify,
		func() []domain.Group { return cfg.Groups },
		cronLogger,
	)

	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.store = storage.NewMemoryRepository()
		return nil
	}

	repo, err := storage.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return fmt.Errorf("migrate store: %w", err)
	}
	a.store = repo
	a.closers = append(a.closers, repo.Close)
	return nil
}

func (a *Application) buildNotifiers() ([]ports.Notifier, error) {
	var out []ports.Notifier

	tg := a.cfg.Notifications.Telegram
	if tg.Enabled() {
		out = append(out, telegram.NewNotifier(tg.APIBase, tg.BotToken, tg.ChatID))
	}

	bus := a.cfg.Notifications.NATS
	if bus.URL != "" {
		notifier, conn, err := natsbus.Connect(bus.URL, bus.Subject)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		out = append(out, notifier)
		a.closers = append(a.closers, func() error {
			return conn.Drain()
		})
	}

	if len(out) == 0 {
		a.logger.Warn("no notifier configured; notification runs only advance the watermark")
	}
	return out, nil
}

// Serve runs the HTTP API and the cron jobs until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	handler := api.NewHandler(api.Deps{
		Items:         a.store,
		Ingest:        a.pipeline,
		Notifications: a.notify,
		FreshWindow:   a.cfg.Notify.FreshWindow,
		Logger:        a.logger.With("component", "api"),
	})
	router := api.NewRouter(handler, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownTimeout := a.cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.scheduler.Start(gCtx, usecase.ScheduleSpec{
			Crawl:  a.cfg.Scheduler.CrawlCron,
			Notify: a.cfg.Scheduler.NotifyCron,
		})
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.scheduler.Stop(shutCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// CrawlOnce runs a single ingest. An empty sourceID crawls the whole group.
func (a *Application) CrawlOnce(ctx context.Context, groupID, sourceID string) (usecase.IngestReport, error) {
	if sourceID != "" {
		return a.pipeline.CrawlAndSave(ctx, groupID, sourceID)
	}
	return a.pipeline.RunGroup(ctx, groupID)
}

// NotifyOnce runs the notification gate for one group.
func (a *Application) NotifyOnce(ctx context.Context, groupID string) (usecase.NotifyReport, error) {
	return a.notify.Run(ctx, groupID)
}

// Close releases external connections in reverse order of acquisition.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
