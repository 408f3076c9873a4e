package ports

import (
	"context"
	"time"

	"NewsIngest/internal/domain"
)

// NewsFetcher pulls raw records for a single fetch target.
type NewsFetcher interface {
	Fetch(ctx context.Context, target domain.FetchTarget, maxItems int) ([]domain.RawRecord, error)
}

// FetchPlanner decides which targets a run requests, and how many items each.
type FetchPlanner interface {
	Plan(ctx context.Context) []domain.FetchTarget
}

// SentimentScorer turns text into polarity and confidence.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (domain.SentimentScore, error)
}

// ArticleReader serves read-only consumers.
type ArticleReader interface {
	Query(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	Stats(ctx context.Context) (domain.Stats, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Trending(ctx context.Context, window time.Duration, limit int) ([]domain.TrendingTopic, error)
	Ping(ctx context.Context) error
}

// ArticleRepository persists articles and quality runs.
type ArticleRepository interface {
	ArticleReader
	Exists(ctx context.Context, url string) (bool, error)
	Upsert(ctx context.Context, article domain.Article) (domain.UpsertResult, error)
	UpsertBatch(ctx context.Context, articles []domain.Article) ([]domain.UpsertResult, error)
	RecordRun(ctx context.Context, run *domain.QualityRun) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SeenCache is a best-effort fast path for URLs already stored.
type SeenCache interface {
	Seen(ctx context.Context, url string) (bool, error)
	MarkSeen(ctx context.Context, urls ...string) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
