package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/enrich"
	"NewsIngest/internal/infrastructure/storage"
	"NewsIngest/internal/logging"
	"NewsIngest/internal/normalize"
	"NewsIngest/internal/quality"
)

type staticPlanner []domain.FetchTarget

func (p staticPlanner) Plan(context.Context) []domain.FetchTarget { return p }

type stubFetcher struct {
	mu      sync.Mutex
	batches map[string][]domain.RawRecord
	errs    map[string]error
	calls   []string
	limits  []int
	hook    func(target domain.FetchTarget)
}

func (f *stubFetcher) Fetch(_ context.Context, target domain.FetchTarget, maxItems int) ([]domain.RawRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target.String())
	f.limits = append(f.limits, maxItems)
	f.mu.Unlock()

	if f.hook != nil {
		f.hook(target)
	}
	if err := f.errs[target.String()]; err != nil {
		return nil, err
	}
	return f.batches[target.String()], nil
}

type fixedScorer struct{}

func (fixedScorer) Score(context.Context, string) (domain.SentimentScore, error) {
	return domain.SentimentScore{Polarity: 0.4, Confidence: 0.8}, nil
}

type recordingNotifier struct {
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return nil
}

func str(s string) *string { return &s }

func record(url string) domain.RawRecord {
	return domain.RawRecord{
		Title:       str("Markets rally as central bank holds rates steady"),
		Description: str("Investors welcomed the decision, pushing major indexes to weekly gains."),
		URL:         str(url),
		PublishedAt: str(time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)),
		SourceName:  str("Example Wire"),
	}
}

func shortTitle(url string) domain.RawRecord {
	r := record(url)
	r.Title = str("Tiny")
	return r
}

var (
	techTarget  = domain.FetchTarget{Kind: domain.TargetCategory, Value: "technology", Limit: 5}
	topicTarget = domain.FetchTarget{Kind: domain.TargetTopic, Value: "climate", Limit: 5}
)

type fixture struct {
	pipeline *Pipeline
	repo     *storage.MemoryRepository
	fetcher  *stubFetcher
	notifier *recordingNotifier
}

func newFixture(plan staticPlanner, fetcher *stubFetcher, opts PipelineOptions) *fixture {
	logger := logging.Discard()
	repo := storage.NewMemoryRepository()
	notifier := &recordingNotifier{}

	lengths := normalize.Options{
		MinTitleLength:       10,
		MaxTitleLength:       200,
		MinDescriptionLength: 20,
		MaxDescriptionLength: 500,
	}
	p := NewPipeline(PipelineDeps{
		Planner:    plan,
		Fetcher:    fetcher,
		Normalizer: normalize.New(lengths),
		Enricher: enrich.New(fixedScorer{}, enrich.Options{
			PositiveThreshold:   0.1,
			NegativeThreshold:   -0.1,
			ConfidenceThreshold: 0.5,
			MaxKeywords:         10,
		}, logger),
		Gate: quality.NewGate(repo, nil, quality.Options{
			Floor:                0.5,
			MinTitleLength:       lengths.MinTitleLength,
			MaxTitleLength:       lengths.MaxTitleLength,
			MinDescriptionLength: lengths.MinDescriptionLength,
			MaxDescriptionLength: lengths.MaxDescriptionLength,
		}, logger),
		Repository: repo,
		Notifier:   notifier,
		Logger:     logger,
	}, opts)

	seq := 0
	p.newID = func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}
	return &fixture{pipeline: p, repo: repo, fetcher: fetcher, notifier: notifier}
}

func TestRunClassifiesAndStores(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{batches: map[string][]domain.RawRecord{
		techTarget.String(): {
			record("https://x.example/1"),
			shortTitle("https://x.example/2"),
			record("https://x.example/3"),
		},
		topicTarget.String(): {
			record("https://x.example/1"),
			record("https://x.example/4"),
		},
	}}
	fx := newFixture(staticPlanner{techTarget, topicTarget}, fetcher, PipelineOptions{Workers: 3})

	report, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, domain.RunSuccess, s.Status)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Valid)
	assert.Equal(t, 1, s.Duplicate)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, s.Total, s.Valid+s.Duplicate+s.Rejected)
	assert.Equal(t, map[string]int{"too_short": 1}, s.RejectReasons)
	assert.Equal(t, 3, report.Inserted)
	assert.Zero(t, report.Updated)

	stored, err := fx.repo.Query(context.Background(), domain.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, a := range stored {
		assert.Equal(t, domain.SentimentPositive, a.SentimentLabel)
		assert.GreaterOrEqual(t, a.QualityScore, 0.5)
		assert.Greater(t, a.Readability, 0.0)
	}

	runs, err := fx.repo.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)

	require.Len(t, fx.notifier.digests, 1)
	assert.Contains(t, fx.notifier.digests[0], "Status: success")
	assert.Contains(t, fx.notifier.digests[0], "- too_short: 1")
}

func TestRunTwiceCountsDuplicates(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{batches: map[string][]domain.RawRecord{
		techTarget.String(): {record("https://x.example/1"), record("https://x.example/2")},
	}}
	fx := newFixture(staticPlanner{techTarget}, fetcher, PipelineOptions{Workers: 2})

	_, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)
	report, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.Duplicate)
	assert.Zero(t, report.Summary.Valid)
	assert.Zero(t, report.Inserted)

	runs, err := fx.repo.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunFetchFailures(t *testing.T) {
	t.Parallel()

	apiErr := &domain.ApiError{Target: "topic:climate", StatusCode: 503, Attempts: 4, Err: errors.New("unavailable")}

	tests := map[string]struct {
		errs   map[string]error
		status domain.RunStatus
	}{
		"one batch fails": {
			errs:   map[string]error{topicTarget.String(): apiErr},
			status: domain.RunPartial,
		},
		"every batch fails": {
			errs:   map[string]error{topicTarget.String(): apiErr, techTarget.String(): apiErr},
			status: domain.RunFailed,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fetcher := &stubFetcher{
				batches: map[string][]domain.RawRecord{techTarget.String(): {record("https://x.example/1")}},
				errs:    tc.errs,
			}
			fx := newFixture(staticPlanner{techTarget, topicTarget}, fetcher, PipelineOptions{Workers: 1})

			report, err := fx.pipeline.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.status, report.Summary.Status)
			assert.Equal(t, 2, report.Summary.BatchesAttempted)
		})
	}
}

func TestRunStorageFailureAbortsAndAudits(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{batches: map[string][]domain.RawRecord{
		techTarget.String():  {record("https://x.example/1"), shortTitle("https://x.example/2")},
		topicTarget.String(): {record("https://x.example/3")},
	}}
	fx := newFixture(staticPlanner{techTarget, topicTarget}, fetcher, PipelineOptions{Workers: 2})
	fx.repo.FailUpsert = errors.New("disk full")

	report, err := fx.pipeline.Run(context.Background())
	require.Error(t, err)

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.RunFailed, report.Summary.Status)
	assert.Zero(t, report.Summary.Total)
	assert.Equal(t, []string{techTarget.String()}, fetcher.calls)

	runs, err := fx.repo.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
	assert.True(t, strings.Contains(runs[0].Error, "disk full"))
}

func TestRunCancellationDiscardsInFlightBatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &stubFetcher{
		batches: map[string][]domain.RawRecord{
			techTarget.String():  {record("https://x.example/1")},
			topicTarget.String(): {record("https://x.example/2"), record("https://x.example/3")},
		},
		hook: func(target domain.FetchTarget) {
			if target == topicTarget {
				cancel()
			}
		},
	}
	fx := newFixture(staticPlanner{techTarget, topicTarget}, fetcher, PipelineOptions{Workers: 2})

	report, err := fx.pipeline.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, domain.RunPartial, report.Summary.Status)
	assert.Equal(t, 1, report.Summary.Total)
	assert.Equal(t, 1, report.Inserted)

	stored, err := fx.repo.Query(context.Background(), domain.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://x.example/1", stored[0].URL)

	runs, err := fx.repo.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunPartial, runs[0].Status)
}

func TestRunRespectsPerRunCap(t *testing.T) {
	t.Parallel()

	third := domain.FetchTarget{Kind: domain.TargetTopic, Value: "space", Limit: 5}
	first := domain.FetchTarget{Kind: domain.TargetCategory, Value: "technology", Limit: 2}
	second := domain.FetchTarget{Kind: domain.TargetTopic, Value: "climate", Limit: 2}

	fetcher := &stubFetcher{batches: map[string][]domain.RawRecord{
		first.String():  {record("https://x.example/1"), record("https://x.example/2")},
		second.String(): {record("https://x.example/3"), record("https://x.example/4")},
		third.String():  {record("https://x.example/5")},
	}}
	fx := newFixture(staticPlanner{first, second, third}, fetcher, PipelineOptions{Workers: 2, MaxArticlesPerRun: 3})

	report, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, []int{2, 1}, fetcher.limits)
	assert.Len(t, fetcher.calls, 2)
}

func TestRunDigestOrdersReasons(t *testing.T) {
	t.Parallel()

	digest := buildRunDigest(RunReport{
		Summary: domain.RunSummary{
			RunID:         "abc",
			Status:        domain.RunPartial,
			Total:         4,
			Rejected:      3,
			Valid:         1,
			RejectReasons: map[string]int{"too_long": 1, "too_short": 2},
		},
		Inserted: 1,
	})

	assert.Contains(t, digest, "`abc`")
	assert.Less(t, strings.Index(digest, "too_short"), strings.Index(digest, "too_long"))
	assert.NotContains(t, digest, "Error:")
}
