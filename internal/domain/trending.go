package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultTrendingLimit caps trending reports when the caller gives no limit.
const DefaultTrendingLimit = 20

// TrendingTopic is one keyword ranked by recent momentum.
type TrendingTopic struct {
	Keyword              string  `json:"keyword"`
	TotalMentions        int     `json:"total_mentions"`
	Velocity             float64 `json:"trend_velocity"`
	SourceDiversity      int     `json:"source_diversity"`
	AvgSentiment         float64 `json:"avg_sentiment"`
	SentimentConsistency float64 `json:"sentiment_consistency"`
	Score                float64 `json:"trending_score"`
	TimePeriods          int     `json:"time_periods"`
}

type keywordTrend struct {
	hours      map[int]int
	sentiments map[int]float64
	sources    map[string]struct{}
}

// DetectTrending buckets article keywords by hours before now, over window.
// A keyword must appear in at least two hourly buckets to rank. The score
// weighs mentions, velocity (recent half against older half of its
// buckets), source spread and how steady its hourly sentiment is.
func DetectTrending(articles []Article, now time.Time, window time.Duration, limit int) []TrendingTopic {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	trends := map[string]*keywordTrend{}
	for _, a := range articles {
		age := now.Sub(a.PublishedAt)
		if age > window {
			continue
		}
		hour := max(0, int(age/time.Hour))

		seen := map[string]bool{}
		for _, kw := range a.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true

			t, ok := trends[kw]
			if !ok {
				t = &keywordTrend{hours: map[int]int{}, sentiments: map[int]float64{}, sources: map[string]struct{}{}}
				trends[kw] = t
			}
			t.hours[hour]++
			t.sentiments[hour] += a.SentimentScore
			if a.Source != "" {
				t.sources[a.Source] = struct{}{}
			}
		}
	}

	var out []TrendingTopic
	for kw, t := range trends {
		if len(t.hours) < 2 {
			continue
		}
		out = append(out, t.topic(kw))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t *keywordTrend) topic(keyword string) TrendingTopic {
	hours := make([]int, 0, len(t.hours))
	for h := range t.hours {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	counts := make([]float64, len(hours))
	means := make([]float64, len(hours))
	total := 0
	for i, h := range hours {
		n := t.hours[h]
		counts[i] = float64(n)
		means[i] = t.sentiments[h] / float64(n)
		total += n
	}

	half := len(counts) / 2
	velocity := mean(counts[:half]) - mean(counts[half:])

	avg := mean(means)
	var variance float64
	for _, m := range means {
		variance += (m - avg) * (m - avg)
	}
	std := math.Sqrt(variance / float64(len(means)))

	score := float64(total)*0.4 + velocity*0.3 + float64(len(t.sources))*0.2 + (1-std)*0.1

	return TrendingTopic{
		Keyword:              keyword,
		TotalMentions:        total,
		Velocity:             round(velocity, 2),
		SourceDiversity:      len(t.sources),
		AvgSentiment:         round(avg, 3),
		SentimentConsistency: round(1-std, 3),
		Score:                round(score, 2),
		TimePeriods:          len(hours),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
