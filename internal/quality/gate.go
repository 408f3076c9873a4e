// Package quality decides whether an enriched article is kept and keeps the
// run's counters in step with every decision.
package quality

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/metrics"
	"NewsIngest/internal/ports"
)

// ExistenceChecker is the slice of the repository the gate needs.
type ExistenceChecker interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// Options configures scoring.
type Options struct {
	Floor                float64
	MinTitleLength       int
	MaxTitleLength       int
	MinDescriptionLength int
	MaxDescriptionLength int
}

// Gate evaluates articles serially; it is not safe for concurrent use with
// the same run.
type Gate struct {
	repo   ExistenceChecker
	cache  ports.SeenCache
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewGate wires the duplicate sources. cache may be nil.
func NewGate(repo ExistenceChecker, cache ports.SeenCache, opts Options, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{repo: repo, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// Evaluate classifies a and records the outcome in run. The returned article
// carries its quality score. Repository failures are returned as
// *domain.StorageError and leave run untouched.
func (g *Gate) Evaluate(ctx context.Context, run *domain.QualityRun, a domain.Article) (domain.Article, domain.Decision, error) {
	if run.Closed() {
		return a, domain.Decision{}, domain.ErrRunClosed
	}

	dup, err := g.isDuplicate(ctx, run, a.URL)
	if err != nil {
		return a, domain.Decision{}, err
	}
	if dup {
		d := domain.Duplicate()
		return a, d, g.record(run, a, d)
	}

	a.QualityScore = g.Score(a, g.now())
	d := domain.Accepted()
	if a.QualityScore < g.opts.Floor {
		d = domain.Rejected(domain.RejectLowQuality)
	}
	return a, d, g.record(run, a, d)
}

// Reject records an article that never reached scoring, such as one the
// normalizer turned away.
func (g *Gate) Reject(run *domain.QualityRun, reason domain.RejectReason, took time.Duration) error {
	d := domain.Rejected(reason)
	metrics.RecordDecision(d, took)
	return run.RecordRejected(reason, took)
}

func (g *Gate) record(run *domain.QualityRun, a domain.Article, d domain.Decision) error {
	metrics.RecordDecision(d, a.ProcessingTime)
	switch d.Outcome {
	case domain.OutcomeAccepted:
		return run.RecordAccepted(a.URL, a.ProcessingTime)
	case domain.OutcomeDuplicate:
		g.logger.Debug("duplicate article", "url", a.URL)
		return run.RecordDuplicate(a.ProcessingTime)
	default:
		g.logger.Debug("article rejected", "url", a.URL, "reason", d.Reason, "score", a.QualityScore)
		return run.RecordRejected(d.Reason, a.ProcessingTime)
	}
}

// isDuplicate checks the run, then the cache, then the repository; the first
// hit wins. Cache failures are logged and skipped.
func (g *Gate) isDuplicate(ctx context.Context, run *domain.QualityRun, url string) (bool, error) {
	if run.Seen(url) {
		return true, nil
	}

	if g.cache != nil {
		seen, err := g.cache.Seen(ctx, url)
		if err != nil {
			g.logger.Warn("seen cache lookup failed", "url", url, "error", err)
		} else if seen {
			return true, nil
		}
	}

	if g.repo == nil {
		return false, nil
	}
	exists, err := g.repo.Exists(ctx, url)
	if err != nil {
		var se *domain.StorageError
		if errors.As(err, &se) {
			return false, err
		}
		return false, &domain.StorageError{Op: "exists", Err: err}
	}
	return exists, nil
}
