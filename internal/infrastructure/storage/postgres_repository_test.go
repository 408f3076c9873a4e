package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngest/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

// upsertArgCount matches the placeholders in upsertArticleSQL.
const upsertArgCount = 19

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleArticle(url string) domain.Article {
	return domain.Article{
		URL:            url,
		Title:          "Sample title for storage",
		Description:    "Sample description long enough to store.",
		Source:         "Wire",
		PublishedAt:    time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		SentimentScore: 0.4,
		SentimentLabel: domain.SentimentPositive,
		Confidence:     0.7,
		Keywords:       []string{"sample", "storage"},
		Category:       "technology",
		QualityScore:   0.8,
		Readability:    0.62,
	}
}

func TestUpsertInsertedThenUpdated(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO articles").
		WithArgs("https://x.example/1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"positive", pgxmock.AnyArg(), []string{"sample", "storage"}, "technology", pgxmock.AnyArg(),
			pgxmock.AnyArg(), 0.62, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(anyArgs(upsertArgCount)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))

	res, err := repo.Upsert(ctx, sampleArticle("https://x.example/1"))
	require.NoError(t, err)
	assert.Equal(t, domain.Inserted, res)

	res, err = repo.Upsert(ctx, sampleArticle("https://x.example/1"))
	require.NoError(t, err)
	assert.Equal(t, domain.Updated, res)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchCommits(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(anyArgs(upsertArgCount)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(anyArgs(upsertArgCount)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	results, err := repo.UpsertBatch(context.Background(), []domain.Article{
		sampleArticle("https://x.example/1"),
		sampleArticle("https://x.example/2"),
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.UpsertResult{domain.Inserted, domain.Updated}, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(anyArgs(upsertArgCount)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(anyArgs(upsertArgCount)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	results, err := repo.UpsertBatch(context.Background(), []domain.Article{
		sampleArticle("https://x.example/1"),
		sampleArticle("https://x.example/2"),
	})
	assert.Nil(t, results)

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upsert batch", se.Op)
	assert.Contains(t, err.Error(), "https://x.example/2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("https://x.example/1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("https://x.example/2").
		WillReturnError(errors.New("conn reset"))

	ok, err := repo.Exists(context.Background(), "https://x.example/1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Exists(context.Background(), "https://x.example/2")
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "exists", se.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRun(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	run := domain.NewQualityRun("6f1c2d4e-0000-4000-8000-000000000001", time.Now())
	require.ErrorIs(t, repo.RecordRun(ctx, run), domain.ErrRunNotClosed)

	require.NoError(t, run.RecordAccepted("https://x.example/1", time.Millisecond))
	require.NoError(t, run.RecordRejected(domain.RejectTooShort, time.Millisecond))
	run.Close(time.Now(), nil)

	mock.ExpectExec("INSERT INTO quality_runs").
		WithArgs(run.ID(), pgxmock.AnyArg(), pgxmock.AnyArg(), 2, 1, 0, 1, `{"too_short":1}`,
			0, 0, pgxmock.AnyArg(), "success", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.RecordRun(ctx, run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	published := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(articleColumns).
		AddRow(int64(7), "https://x.example/7", "Title", "Desc", "Wire", "", "", "ai",
			published, false, 0.5, "positive", 0.9,
			[]string{"ai"}, "technology", 1.0, 0.85, 0.7, 2.5,
			published, published)

	mock.ExpectQuery(`FROM articles WHERE category = \$1 AND sentiment_label = \$2 AND \(title ILIKE \$3 OR description ILIKE \$4\) AND quality_score >= \$5 ORDER BY published_at DESC, id ASC LIMIT 5`).
		WithArgs("technology", "positive", "%ai%", "%ai%", 0.5).
		WillReturnRows(rows)

	articles, err := repo.Query(context.Background(), domain.ArticleFilter{
		Category:   "technology",
		Sentiment:  domain.SentimentPositive,
		Search:     "ai",
		MinQuality: 0.5,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(7), articles[0].ID)
	assert.Equal(t, domain.SentimentPositive, articles[0].SentimentLabel)
	assert.Equal(t, 2500*time.Microsecond, articles[0].ProcessingTime)
	assert.InDelta(t, 0.7, articles[0].Readability, 1e-9)
	assert.Equal(t, []string{"ai"}, articles[0].Keywords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(sentiment_score\), 0\)`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg_sent", "avg_q", "avg_read"}).AddRow(int64(3), 0.2, 0.75, 0.6))
	mock.ExpectQuery(`SELECT sentiment_label AS k, COUNT\(\*\) FROM articles GROUP BY k`).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count"}).
			AddRow("positive", int64(2)).AddRow("neutral", int64(1)))
	mock.ExpectQuery(`SELECT category AS k`).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count"}).AddRow("technology", int64(3)))
	mock.ExpectQuery(`SELECT CASE WHEN quality_score`).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count"}).
			AddRow("good", int64(2)).AddRow("fair", int64(1)))
	mock.ExpectQuery(`SELECT source, COUNT\(\*\) AS n`).
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"source", "n", "avg"}).AddRow("Wire", int64(3), 0.2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 0.75, stats.AvgQuality, 1e-9)
	assert.InDelta(t, 0.6, stats.AvgReadability, 1e-9)
	assert.Equal(t, 2, stats.BySentiment[domain.SentimentPositive])
	assert.Equal(t, 3, stats.ByCategory["technology"])
	assert.Equal(t, 2, stats.QualityBuckets[domain.QualityGood])
	require.Len(t, stats.TopSources, 1)
	assert.Equal(t, domain.SourceCount{Source: "Wire", Count: 3, AvgSentiment: 0.2}, stats.TopSources[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentRuns(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM quality_runs ORDER BY started_at DESC LIMIT 2`).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "started_at", "ended_at", "total", "valid", "duplicate",
			"rejected", "reject_reasons", "batches_attempted", "batches_failed", "mean_processing_ms", "status", "error"}).
			AddRow("run-1", started, started.Add(time.Minute), 4, 2, 1, 1, []byte(`{"too_short":1}`), 3, 1, 1.5, "partial", ""))

	runs, err := repo.RecentRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].RejectReasons["too_short"])
	assert.Equal(t, 1500*time.Microsecond, runs[0].MeanProcessing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrending(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT source, published_at, sentiment_score, keywords FROM articles WHERE published_at >= \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"source", "published_at", "sentiment_score", "keywords"}).
			AddRow("Wire", now.Add(-10*time.Minute), 0.5, []string{"ai", "chips"}).
			AddRow("Daily", now.Add(-5*time.Hour), 0.3, []string{"ai"}).
			AddRow("Wire", now.Add(-6*time.Hour), 0.1, []string{"chips"}))

	topics, err := repo.Trending(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "ai", topics[0].Keyword)
	assert.Equal(t, 2, topics[0].SourceDiversity)
	assert.Equal(t, "chips", topics[1].Keyword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendingQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM articles WHERE published_at`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errors.New("conn reset"))

	_, err := repo.Trending(context.Background(), time.Hour, 10)
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "trending", se.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneAndMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS articles").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("DELETE FROM articles").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, repo.Migrate(context.Background()))
	n, err := repo.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
