package quality

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"NewsIngest/internal/domain"
)

const (
	weightCompleteness = 0.4
	weightLength       = 0.3
	weightConfidence   = 0.3

	penaltyUppercase  = 0.2
	penaltyPunctuated = 0.1
	penaltySimilar    = 0.1
	penaltyFuture     = 0.1
	penaltyFallback   = 0.05
	penaltyStale      = 0.05

	maxPunctuationRatio = 0.15
	maxSimilarity       = 0.8
)

// Score computes the quality score in [0,1] for a.
func (g *Gate) Score(a domain.Article, now time.Time) float64 {
	score := weightCompleteness*completeness(a) +
		weightLength*g.lengthFit(a) +
		weightConfidence*clamp01(a.Confidence)

	score -= penalties(a, now)
	return clamp01(score)
}

func completeness(a domain.Article) float64 {
	present := 0
	for _, field := range []string{a.Title, a.URL, a.Description} {
		if strings.TrimSpace(field) != "" {
			present++
		}
	}
	if knownSource(a.Source) {
		present++
	}
	return float64(present) / 4
}

func knownSource(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "null", "none":
		return false
	}
	return true
}

func (g *Gate) lengthFit(a domain.Article) float64 {
	title := fit(utf8.RuneCountInString(a.Title), g.opts.MinTitleLength, g.opts.MaxTitleLength)
	desc := fit(utf8.RuneCountInString(a.Description), g.opts.MinDescriptionLength, g.opts.MaxDescriptionLength)
	return (title + desc) / 2
}

// fit is 1 inside [lo,hi] and decays proportionally outside it.
func fit(l, lo, hi int) float64 {
	switch {
	case l == 0:
		return 0
	case l < lo:
		return float64(l) / float64(lo)
	case hi > 0 && l > hi:
		return float64(hi) / float64(l)
	default:
		return 1
	}
}

func penalties(a domain.Article, now time.Time) float64 {
	var p float64

	if shouting(a.Title) {
		p += penaltyUppercase
	}
	if punctuationRatio(a.Title) > maxPunctuationRatio {
		p += penaltyPunctuated
	}
	if similarity(a.Title, a.Description) > maxSimilarity {
		p += penaltySimilar
	}

	switch {
	case a.PublishedFallback:
		p += penaltyFallback
	case a.PublishedAt.After(now.Add(24 * time.Hour)):
		p += penaltyFuture
	case a.PublishedAt.Before(now.AddDate(-1, 0, 0)):
		p += penaltyStale
	}
	return p
}

func shouting(title string) bool {
	if utf8.RuneCountInString(title) <= 20 {
		return false
	}
	letters := false
	for _, r := range title {
		if unicode.IsLetter(r) {
			letters = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters
}

func punctuationRatio(title string) float64 {
	n := utf8.RuneCountInString(title)
	if n == 0 {
		return 0
	}
	marks := 0
	for _, r := range title {
		if strings.ContainsRune("!?.,;:", r) {
			marks++
		}
	}
	return float64(marks) / float64(n)
}

// similarity is the share of title words that also occur in the description.
func similarity(title, description string) float64 {
	tw := wordSet(title)
	if len(tw) == 0 || description == "" {
		return 0
	}
	dw := wordSet(description)
	shared := 0
	for w := range tw {
		if _, ok := dw[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(tw))
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
