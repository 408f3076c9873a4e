// Package enrich attaches sentiment, keywords, a category and a readability
// score to normalized articles.
package enrich

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Options carries the labeling thresholds and keyword budget.
type Options struct {
	PositiveThreshold   float64
	NegativeThreshold   float64
	ConfidenceThreshold float64
	MaxKeywords         int
}

// Enricher never fails: scorer errors degrade to a neutral, zero-confidence result.
type Enricher struct {
	scorer ports.SentimentScorer
	opts   Options
	logger *slog.Logger
}

func New(scorer ports.SentimentScorer, opts Options, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{scorer: scorer, opts: opts, logger: logger}
}

// Enrich returns a copy of a with enrichment fields set.
func (e *Enricher) Enrich(ctx context.Context, a domain.Article) domain.Article {
	text := strings.TrimSpace(a.Title + " " + a.Description)

	var score domain.SentimentScore
	if e.scorer != nil {
		s, err := e.scorer.Score(ctx, text)
		if err != nil {
			e.logger.Warn("sentiment scoring failed, using neutral", "url", a.URL, "error", err)
		} else {
			score = s
		}
	}
	score.Polarity = clamp(score.Polarity, -1, 1)
	score.Confidence = clamp(score.Confidence, 0, 1)

	a.SentimentScore = score.Polarity
	a.Confidence = score.Confidence
	a.SentimentLabel = Label(score, e.opts)
	a.Keywords = ExtractKeywords(text, e.opts.MaxKeywords)
	a.Category, a.CategoryConfidence = Categorize(a.Title, a.Description, a.Category)
	a.Readability = Readability(text)
	return a
}

// Label applies the thresholds inclusively. A confidence below the
// threshold always yields neutral, whatever the polarity.
func Label(s domain.SentimentScore, o Options) domain.SentimentLabel {
	switch {
	case s.Confidence < o.ConfidenceThreshold:
		return domain.SentimentNeutral
	case s.Polarity >= o.PositiveThreshold:
		return domain.SentimentPositive
	case s.Polarity <= o.NegativeThreshold:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
