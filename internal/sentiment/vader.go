package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// VaderScorer scores text locally with the VADER lexicon.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ ports.SentimentScorer = (*VaderScorer)(nil)

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound score as polarity. Confidence grows with the
// polarity magnitude and with the share of non-neutral tokens.
func (v *VaderScorer) Score(_ context.Context, text string) (domain.SentimentScore, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentScore{}, nil
	}

	s := v.analyzer.PolarityScores(text)
	subjectivity := 1 - s.Neutral
	confidence := math.Min(1, math.Abs(s.Compound)+subjectivity*0.5)

	return domain.SentimentScore{
		Polarity:   clamp(s.Compound, -1, 1),
		Confidence: clamp(confidence, 0, 1),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
