package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"NewsIngest/internal/config"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/enrich"
	"NewsIngest/internal/httpapi"
	"NewsIngest/internal/infrastructure/cache"
	"NewsIngest/internal/infrastructure/ml"
	"NewsIngest/internal/infrastructure/newsapi"
	"NewsIngest/internal/infrastructure/scheduler"
	"NewsIngest/internal/infrastructure/storage"
	"NewsIngest/internal/infrastructure/telegram"
	"NewsIngest/internal/logging"
	"NewsIngest/internal/normalize"
	"NewsIngest/internal/ports"
	"NewsIngest/internal/quality"
	"NewsIngest/internal/ratelimit"
	"NewsIngest/internal/sentiment"
	"NewsIngest/internal/source"
	"NewsIngest/internal/usecase"
)

// Options tweak wiring per command.
type Options struct {
	// DryRun keeps everything in memory and skips Redis and notifications.
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	repo     ports.ArticleRepository
	postgres *storage.PostgresRepository
	client   *newsapi.Client
	pipeline *usecase.Pipeline
	closers  []func()
}

// New builds the application. Storage is opened eagerly; the upstream
// client is only contacted when a run starts.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	if err := a.openStorage(ctx, opts.DryRun); err != nil {
		return nil, err
	}

	var seen ports.SeenCache
	if cfg.Redis.Addr != "" && !opts.DryRun {
		rc := cache.NewRedisSeen(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SeenTTL)
		if err := rc.Ping(ctx); err != nil {
			baseLogger.Warn("redis unavailable, duplicate checks fall back to storage", "addr", cfg.Redis.Addr, "error", err)
		}
		seen = rc
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	var scorer ports.SentimentScorer = sentiment.NewVaderScorer()
	if cfg.Sentiment.Scorer == "remote" {
		scorer = ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey)
	}

	gate := ratelimit.NewGate(cfg.NewsAPI.RateLimit)
	a.client = newsapi.NewClient(newsapi.Options{
		BaseURL:        cfg.NewsAPI.BaseURL,
		APIKey:         cfg.NewsAPI.APIKey,
		Language:       cfg.NewsAPI.Language,
		Country:        cfg.NewsAPI.Country,
		MaxRetries:     cfg.NewsAPI.MaxRetries,
		RetryDelay:     cfg.NewsAPI.RetryDelay,
		MaxRetryDelay:  cfg.NewsAPI.MaxRetryDelay,
		RequestTimeout: cfg.NewsAPI.RequestTimeout,
		FetchTimeout:   cfg.NewsAPI.FetchTimeout,
	}, gate, &http.Client{Timeout: cfg.NewsAPI.RequestTimeout}, baseLogger.With("component", "newsapi"))

	registry := source.NewRegistry(baseLogger.With("component", "source"))
	registry.Register(a.client, domain.TargetCategory, domain.TargetTopic)

	planner := source.NewPlanner(source.PlanConfig{
		Categories:     cfg.Ingestion.Categories,
		Topics:         cfg.Ingestion.Topics,
		MaxPerCategory: cfg.Ingestion.MaxPerCategory,
		MaxPerTopic:    cfg.Ingestion.MaxPerTopic,
	}, baseLogger.With("component", "planner"))

	var notifier ports.Notifier
	tg := cfg.Notifications.Telegram
	if tg.BotToken != "" && tg.ChatID != "" && !opts.DryRun {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	v := cfg.Validation
	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Planner: planner,
		Fetcher: registry,
		Normalizer: normalize.New(normalize.Options{
			MinTitleLength:       v.MinTitleLength,
			MaxTitleLength:       v.MaxTitleLength,
			MinDescriptionLength: v.MinDescriptionLength,
			MaxDescriptionLength: v.MaxDescriptionLength,
			RejectMalformedDates: v.DatePolicy == config.DatePolicyReject,
		}),
		Enricher: enrich.New(scorer, enrich.Options{
			PositiveThreshold:   cfg.Sentiment.PositiveThreshold,
			NegativeThreshold:   cfg.Sentiment.NegativeThreshold,
			ConfidenceThreshold: cfg.Sentiment.ConfidenceThreshold,
			MaxKeywords:         cfg.Sentiment.MaxKeywords,
		}, baseLogger.With("component", "enrich")),
		Gate: quality.NewGate(a.repo, seen, quality.Options{
			Floor:                cfg.Quality.Floor,
			MinTitleLength:       v.MinTitleLength,
			MaxTitleLength:       v.MaxTitleLength,
			MinDescriptionLength: v.MinDescriptionLength,
			MaxDescriptionLength: v.MaxDescriptionLength,
		}, baseLogger.With("component", "quality")),
		Repository: a.repo,
		Cache:      seen,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		Workers:           cfg.Ingestion.Workers,
		MaxArticlesPerRun: cfg.Ingestion.MaxArticlesPerRun,
	})

	return a, nil
}

func (a *Application) openStorage(ctx context.Context, dryRun bool) error {
	if dryRun {
		a.logger.Info("dry run: using in-memory repository")
		a.repo = storage.NewMemoryRepository()
		return nil
	}

	pool, err := storage.Connect(ctx, a.cfg.Database.DSN, a.cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.postgres = storage.NewPostgresRepository(pool)
	a.repo = a.postgres
	return nil
}

// Repository exposes storage to read-only and administrative commands.
func (a *Application) Repository() ports.ArticleRepository { return a.repo }

// Migrate applies the schema; it is a no-op for in-memory storage.
func (a *Application) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		return nil
	}
	return a.postgres.Migrate(ctx)
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) (usecase.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// Serve runs the pipeline on the configured interval and serves the read API
// until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	server := httpapi.NewServer(a.cfg.HTTP.Addr, a.repo, a.client, a.logger.With("component", "http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()
		return sched.Stop(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases storage and cache connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
