package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/metrics"
	"NewsIngest/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const topSourcesLimit = 10

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "url", "title", "description", "source", "source_url", "image_url", "query",
	"published_at", "published_fallback", "sentiment_score", "sentiment_label", "confidence",
	"keywords", "category", "category_confidence", "quality_score", "readability", "processing_ms",
	"ingested_at", "updated_at",
}

// Identity and content columns are written once; a conflicting url only
// refreshes enrichment.
const upsertArticleSQL = `INSERT INTO articles (
        url, title, description, source, source_url, image_url, query,
        published_at, published_fallback, sentiment_score, sentiment_label, confidence,
        keywords, category, category_confidence, quality_score, readability, processing_ms, ingested_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    ON CONFLICT (url) DO UPDATE
    SET sentiment_score = EXCLUDED.sentiment_score,
        sentiment_label = EXCLUDED.sentiment_label,
        confidence = EXCLUDED.confidence,
        keywords = EXCLUDED.keywords,
        category = EXCLUDED.category,
        category_confidence = EXCLUDED.category_confidence,
        quality_score = EXCLUDED.quality_score,
        readability = EXCLUDED.readability,
        updated_at = NOW()
    RETURNING (xmax = 0) AS inserted`

const insertRunSQL = `INSERT INTO quality_runs (
        run_id, started_at, ended_at, total, valid, duplicate, rejected, reject_reasons,
        batches_attempted, batches_failed, mean_processing_ms, status, error)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    ON CONFLICT (run_id) DO NOTHING`

// PostgresRepository persists articles and quality runs into Postgres.
type PostgresRepository struct {
	db DB
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a pgx pool (or any DB implementation).
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Connect opens and pings a pgx pool.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate creates tables and indexes if they are missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Exists reports whether url is already stored.
func (r *PostgresRepository) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, storageErr("exists", err)
	}
	return exists, nil
}

// Upsert writes one article atomically.
func (r *PostgresRepository) Upsert(ctx context.Context, article domain.Article) (domain.UpsertResult, error) {
	res, err := upsert(ctx, r.db, article)
	if err != nil {
		return 0, storageErr("upsert", err)
	}
	return res, nil
}

// UpsertBatch writes all articles in one transaction; any failure rolls back
// the whole batch.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, articles []domain.Article) ([]domain.UpsertResult, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin batch", err)
	}

	results := make([]domain.UpsertResult, 0, len(articles))
	for _, article := range articles {
		res, err := upsert(ctx, tx, article)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, storageErr("upsert batch", fmt.Errorf("article %s: %w", article.URL, err))
		}
		results = append(results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit batch", err)
	}
	return results, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsert(ctx context.Context, q queryRower, a domain.Article) (domain.UpsertResult, error) {
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	label := a.SentimentLabel
	if label == "" {
		label = domain.SentimentNeutral
	}
	category := a.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	ingested := a.IngestedAt
	if ingested.IsZero() {
		ingested = time.Now().UTC()
	}

	var inserted bool
	err := q.QueryRow(ctx, upsertArticleSQL,
		a.URL,
		a.Title,
		a.Description,
		a.Source,
		a.SourceURL,
		a.ImageURL,
		a.Query,
		a.PublishedAt,
		a.PublishedFallback,
		a.SentimentScore,
		string(label),
		a.Confidence,
		keywords,
		category,
		a.CategoryConfidence,
		a.QualityScore,
		a.Readability,
		durationMillis(a.ProcessingTime),
		ingested,
	).Scan(&inserted)
	if err != nil {
		return 0, err
	}
	if inserted {
		return domain.Inserted, nil
	}
	return domain.Updated, nil
}

// RecordRun appends a closed run. Recording the same run twice is a no-op.
func (r *PostgresRepository) RecordRun(ctx context.Context, run *domain.QualityRun) error {
	if !run.Closed() {
		return domain.ErrRunNotClosed
	}
	s := run.Summary()

	reasons, err := json.Marshal(s.RejectReasons)
	if err != nil {
		return storageErr("record run", fmt.Errorf("marshal reasons: %w", err))
	}

	_, err = r.db.Exec(ctx, insertRunSQL,
		s.RunID,
		s.StartedAt,
		s.EndedAt,
		s.Total,
		s.Valid,
		s.Duplicate,
		s.Rejected,
		string(reasons),
		s.BatchesAttempted,
		s.BatchesFailed,
		durationMillis(s.MeanProcessing),
		string(s.Status),
		s.Error,
	)
	if err != nil {
		return storageErr("record run", err)
	}
	return nil
}

// Query returns articles newest first; ties keep insertion order.
func (r *PostgresRepository) Query(ctx context.Context, f domain.ArticleFilter) ([]domain.Article, error) {
	q := psql.Select(articleColumns...).From("articles")

	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Sentiment != "" {
		q = q.Where(sq.Eq{"sentiment_label": string(f.Sentiment)})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source": f.Source})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(sq.Or{sq.ILike{"title": pattern}, sq.ILike{"description": pattern}})
	}
	if f.MinQuality > 0 {
		q = q.Where(sq.GtOrEq{"quality_score": f.MinQuality})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"published_at": f.Since})
	}

	q = q.OrderBy("published_at DESC", "id ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, storageErr("query", fmt.Errorf("build query: %w", err))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, storageErr("query", fmt.Errorf("scan article: %w", err))
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query", fmt.Errorf("rows iteration: %w", err))
	}
	return articles, nil
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		a            domain.Article
		label        string
		processingMS float64
	)
	err := row.Scan(
		&a.ID, &a.URL, &a.Title, &a.Description, &a.Source, &a.SourceURL, &a.ImageURL, &a.Query,
		&a.PublishedAt, &a.PublishedFallback, &a.SentimentScore, &label, &a.Confidence,
		&a.Keywords, &a.Category, &a.CategoryConfidence, &a.QualityScore, &a.Readability, &processingMS,
		&a.IngestedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Article{}, err
	}
	a.SentimentLabel = domain.SentimentLabel(label)
	a.ProcessingTime = time.Duration(processingMS * float64(time.Millisecond))
	return a, nil
}

// Stats aggregates the stored articles.
func (r *PostgresRepository) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{
		BySentiment:    map[domain.SentimentLabel]int{},
		ByCategory:     map[string]int{},
		QualityBuckets: map[domain.QualityBucket]int{},
	}

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(sentiment_score), 0), COALESCE(AVG(quality_score), 0),
            COALESCE(AVG(readability), 0) FROM articles`,
	).Scan(&total, &stats.AvgSentiment, &stats.AvgQuality, &stats.AvgReadability)
	if err != nil {
		return domain.Stats{}, storageErr("stats", err)
	}
	stats.Total = int(total)

	if err := r.countBy(ctx, "sentiment_label", func(k string, n int) {
		stats.BySentiment[domain.SentimentLabel(k)] = n
	}); err != nil {
		return domain.Stats{}, err
	}
	if err := r.countBy(ctx, "category", func(k string, n int) {
		stats.ByCategory[k] = n
	}); err != nil {
		return domain.Stats{}, err
	}

	bucket := `CASE WHEN quality_score >= 0.9 THEN 'excellent'
        WHEN quality_score >= 0.7 THEN 'good'
        WHEN quality_score >= 0.5 THEN 'fair'
        ELSE 'poor' END`
	if err := r.countBy(ctx, bucket, func(k string, n int) {
		stats.QualityBuckets[domain.QualityBucket(k)] = n
	}); err != nil {
		return domain.Stats{}, err
	}

	top, err := r.topSources(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.TopSources = top

	return stats, nil
}

func (r *PostgresRepository) countBy(ctx context.Context, expr string, fn func(string, int)) error {
	query, args, err := psql.Select(expr+" AS k", "COUNT(*)").From("articles").GroupBy("k").ToSql()
	if err != nil {
		return storageErr("stats", fmt.Errorf("build query: %w", err))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return storageErr("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return storageErr("stats", fmt.Errorf("scan count: %w", err))
		}
		fn(key, int(n))
	}
	if err := rows.Err(); err != nil {
		return storageErr("stats", fmt.Errorf("rows iteration: %w", err))
	}
	return nil
}

func (r *PostgresRepository) topSources(ctx context.Context) ([]domain.SourceCount, error) {
	query, args, err := psql.
		Select("source", "COUNT(*) AS n", "COALESCE(AVG(sentiment_score), 0)").
		From("articles").
		Where(sq.NotEq{"source": ""}).
		GroupBy("source").
		OrderBy("n DESC", "source ASC").
		Limit(topSourcesLimit).
		ToSql()
	if err != nil {
		return nil, storageErr("top sources", fmt.Errorf("build query: %w", err))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("top sources", err)
	}
	defer rows.Close()

	var out []domain.SourceCount
	for rows.Next() {
		var (
			sc domain.SourceCount
			n  int64
		)
		if err := rows.Scan(&sc.Source, &n, &sc.AvgSentiment); err != nil {
			return nil, storageErr("top sources", fmt.Errorf("scan source: %w", err))
		}
		sc.Count = int(n)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("top sources", fmt.Errorf("rows iteration: %w", err))
	}
	return out, nil
}

// RecentRuns returns the latest runs, newest first.
func (r *PostgresRepository) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := psql.
		Select("run_id::text", "started_at", "ended_at", "total", "valid", "duplicate", "rejected",
			"reject_reasons", "batches_attempted", "batches_failed", "mean_processing_ms", "status", "error").
		From("quality_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("recent runs", fmt.Errorf("build query: %w", err))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("recent runs", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var (
			s       domain.RunSummary
			reasons []byte
			meanMS  float64
			status  string
		)
		if err := rows.Scan(&s.RunID, &s.StartedAt, &s.EndedAt, &s.Total, &s.Valid, &s.Duplicate, &s.Rejected,
			&reasons, &s.BatchesAttempted, &s.BatchesFailed, &meanMS, &status, &s.Error); err != nil {
			return nil, storageErr("recent runs", fmt.Errorf("scan run: %w", err))
		}
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &s.RejectReasons); err != nil {
				return nil, storageErr("recent runs", fmt.Errorf("decode reasons: %w", err))
			}
		}
		s.MeanProcessing = time.Duration(meanMS * float64(time.Millisecond))
		s.Status = domain.RunStatus(status)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent runs", fmt.Errorf("rows iteration: %w", err))
	}
	return runs, nil
}

// Trending ranks keywords of articles published within window.
func (r *PostgresRepository) Trending(ctx context.Context, window time.Duration, limit int) ([]domain.TrendingTopic, error) {
	now := time.Now().UTC()
	query, args, err := psql.
		Select("source", "published_at", "sentiment_score", "keywords").
		From("articles").
		Where(sq.GtOrEq{"published_at": now.Add(-window)}).
		ToSql()
	if err != nil {
		return nil, storageErr("trending", fmt.Errorf("build query: %w", err))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("trending", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.Source, &a.PublishedAt, &a.SentimentScore, &a.Keywords); err != nil {
			return nil, storageErr("trending", fmt.Errorf("scan article: %w", err))
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("trending", fmt.Errorf("rows iteration: %w", err))
	}
	return domain.DetectTrending(articles, now, window, limit), nil
}

// Prune deletes articles published before olderThan. It is administrative
// and never called by the pipeline.
func (r *PostgresRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM articles WHERE published_at < $1`, olderThan)
	if err != nil {
		return 0, storageErr("prune", err)
	}
	return tag.RowsAffected(), nil
}

func storageErr(op string, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	metrics.RecordStorageError(op)
	return &domain.StorageError{Op: op, Err: err}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
