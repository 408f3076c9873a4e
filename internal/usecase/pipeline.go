package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/enrich"
	"NewsIngest/internal/metrics"
	"NewsIngest/internal/normalize"
	"NewsIngest/internal/ports"
	"NewsIngest/internal/quality"
)

const defaultPersistTimeout = 10 * time.Second

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Planner    ports.FetchPlanner
	Fetcher    ports.NewsFetcher
	Normalizer *normalize.Normalizer
	Enricher   *enrich.Enricher
	Gate       *quality.Gate
	Repository ports.ArticleRepository
	Cache      ports.SeenCache
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// PipelineOptions bounds a single run.
type PipelineOptions struct {
	Workers           int
	MaxArticlesPerRun int
	// PersistTimeout bounds the final run write, which survives cancellation.
	PersistTimeout time.Duration
}

// RunReport is what one invocation hands back to its caller.
type RunReport struct {
	Summary  domain.RunSummary
	Inserted int
	Updated  int
}

// Pipeline implements the article-ingestion workflow.
type Pipeline struct {
	planner    ports.FetchPlanner
	fetcher    ports.NewsFetcher
	normalizer *normalize.Normalizer
	enricher   *enrich.Enricher
	gate       *quality.Gate
	repository ports.ArticleRepository
	cache      ports.SeenCache
	notifier   ports.Notifier
	logger     *slog.Logger
	opts       PipelineOptions

	now   func() time.Time
	newID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		planner:    deps.Planner,
		fetcher:    deps.Fetcher,
		normalizer: deps.Normalizer,
		enricher:   deps.Enricher,
		gate:       deps.Gate,
		repository: deps.Repository,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// candidate is one fetched record after the concurrent stage.
type candidate struct {
	article domain.Article
	reason  domain.RejectReason
	took    time.Duration
}

// Run executes one pipeline invocation. The run record is always written,
// even when ctx is cancelled or a storage failure aborts the run; the
// returned error is the cause that stopped the run early, if any.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	started := p.now().UTC()
	run := domain.NewQualityRun(p.newID(), started)
	logger := p.logger.With("run_id", run.ID())
	logger.Info("run started")

	var report RunReport
	cause := p.process(ctx, run, &report, logger)

	run.Close(p.now().UTC(), cause)
	report.Summary = run.Summary()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.PersistTimeout)
	defer cancel()

	var recordErr error
	if p.repository != nil {
		if err := p.repository.RecordRun(persistCtx, run); err != nil {
			logger.Error("record run failed", "error", err)
			recordErr = fmt.Errorf("record run: %w", err)
		}
	}

	took := report.Summary.EndedAt.Sub(started)
	metrics.RecordRun(run.Status(), took)
	logger.Info("run finished",
		"status", run.Status(),
		"total", run.Total(),
		"valid", run.Valid(),
		"duplicate", run.Duplicates(),
		"rejected", run.Rejected(),
		"inserted", report.Inserted,
		"updated", report.Updated,
		"duration", took,
	)

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(persistCtx, buildRunDigest(report)); err != nil {
			logger.Warn("publish run digest failed", "error", err)
		}
	}

	return report, errors.Join(cause, recordErr)
}

func (p *Pipeline) process(ctx context.Context, run *domain.QualityRun, report *RunReport, logger *slog.Logger) error {
	if p.planner == nil || p.fetcher == nil {
		return nil
	}

	remaining := p.opts.MaxArticlesPerRun
	for _, target := range p.planner.Plan(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.opts.MaxArticlesPerRun > 0 && remaining <= 0 {
			logger.Info("per-run article cap reached", "max", p.opts.MaxArticlesPerRun)
			return nil
		}

		limit := target.Limit
		if p.opts.MaxArticlesPerRun > 0 {
			limit = min(limit, remaining)
		}

		records, err := p.fetcher.Fetch(ctx, target, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			run.RecordBatch(true)
			logger.Warn("fetch batch failed", "target", target.String(), "error", err)
			continue
		}
		run.RecordBatch(false)
		if len(records) > limit {
			records = records[:limit]
		}
		remaining -= len(records)

		if err := p.processBatch(ctx, run, records, report); err != nil {
			return err
		}
		logger.Debug("batch committed", "target", target.String(), "records", len(records))
	}
	return nil
}

// processBatch runs one fetched batch through to the repository. On any
// failure the run counters are rolled back to the batch start and nothing
// from the batch is written.
func (p *Pipeline) processBatch(ctx context.Context, run *domain.QualityRun, records []domain.RawRecord, report *RunReport) error {
	if len(records) == 0 {
		return nil
	}
	cp := run.Checkpoint()

	candidates, err := p.prepare(ctx, records)
	if err != nil {
		run.Rollback(cp)
		return err
	}

	accepted := make([]domain.Article, 0, len(candidates))
	for _, c := range candidates {
		if c.reason != "" {
			if err := p.gate.Reject(run, c.reason, c.took); err != nil {
				run.Rollback(cp)
				return err
			}
			continue
		}

		c.article.ProcessingTime = c.took
		article, decision, err := p.gate.Evaluate(ctx, run, c.article)
		if err != nil {
			run.Rollback(cp)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if decision.Outcome == domain.OutcomeAccepted {
			accepted = append(accepted, article)
		}
	}

	if err := ctx.Err(); err != nil {
		run.Rollback(cp)
		return err
	}
	if len(accepted) == 0 || p.repository == nil {
		return nil
	}

	results, err := p.repository.UpsertBatch(ctx, accepted)
	if err != nil {
		run.Rollback(cp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	for _, r := range results {
		if r == domain.Inserted {
			report.Inserted++
		} else {
			report.Updated++
		}
	}

	if p.cache != nil {
		urls := make([]string, len(accepted))
		for i, a := range accepted {
			urls[i] = a.URL
		}
		if err := p.cache.MarkSeen(ctx, urls...); err != nil {
			p.logger.Warn("seen cache update failed", "run_id", run.ID(), "error", err)
		}
	}
	return nil
}

// prepare normalizes and enriches records on a bounded worker group. The
// result keeps fetch order.
func (p *Pipeline) prepare(ctx context.Context, records []domain.RawRecord) ([]candidate, error) {
	out := make([]candidate, len(records))
	now := p.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			article, reason := p.normalizer.Normalize(rec, now)
			if reason == "" && p.enricher != nil {
				article = p.enricher.Enrich(gctx, article)
			}
			out[i] = candidate{article: article, reason: reason, took: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
