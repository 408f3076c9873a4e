package storage

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// MemoryRepository keeps everything in process. It backs dry runs and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	seq      int64
	articles map[string]*domain.Article
	runs     []domain.RunSummary
	runIDs   map[string]struct{}

	// FailUpsert, when set, makes batch writes fail after partial progress.
	FailUpsert error
}

var _ ports.ArticleRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		articles: map[string]*domain.Article{},
		runIDs:   map[string]struct{}{},
	}
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Exists(_ context.Context, url string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.articles[url]
	return ok, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, a domain.Article) (domain.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertLocked(a, time.Now().UTC()), nil
}

// UpsertBatch applies all articles or none.
func (r *MemoryRepository) UpsertBatch(_ context.Context, articles []domain.Article) ([]domain.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpsert != nil {
		return nil, &domain.StorageError{Op: "upsert batch", Err: r.FailUpsert}
	}

	now := time.Now().UTC()
	results := make([]domain.UpsertResult, 0, len(articles))
	for _, a := range articles {
		results = append(results, r.upsertLocked(a, now))
	}
	return results, nil
}

func (r *MemoryRepository) upsertLocked(a domain.Article, now time.Time) domain.UpsertResult {
	if existing, ok := r.articles[a.URL]; ok {
		existing.SentimentScore = a.SentimentScore
		existing.SentimentLabel = a.SentimentLabel
		existing.Confidence = a.Confidence
		existing.Keywords = slices.Clone(a.Keywords)
		existing.Category = a.Category
		existing.CategoryConfidence = a.CategoryConfidence
		existing.QualityScore = a.QualityScore
		existing.Readability = a.Readability
		existing.UpdatedAt = now
		return domain.Updated
	}

	r.seq++
	stored := a
	stored.ID = r.seq
	stored.Keywords = slices.Clone(a.Keywords)
	if stored.IngestedAt.IsZero() {
		stored.IngestedAt = now
	}
	stored.UpdatedAt = now
	r.articles[a.URL] = &stored
	return domain.Inserted
}

func (r *MemoryRepository) RecordRun(_ context.Context, run *domain.QualityRun) error {
	if !run.Closed() {
		return domain.ErrRunNotClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runIDs[run.ID()]; ok {
		return nil
	}
	r.runIDs[run.ID()] = struct{}{}
	r.runs = append(r.runs, run.Summary())
	return nil
}

func (r *MemoryRepository) Query(_ context.Context, f domain.ArticleFilter) ([]domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var out []domain.Article
	for _, a := range r.articles {
		switch {
		case f.Category != "" && a.Category != f.Category:
			continue
		case f.Sentiment != "" && a.SentimentLabel != f.Sentiment:
			continue
		case f.Source != "" && a.Source != f.Source:
			continue
		case f.MinQuality > 0 && a.QualityScore < f.MinQuality:
			continue
		case !f.Since.IsZero() && a.PublishedAt.Before(f.Since):
			continue
		case search != "" && !strings.Contains(strings.ToLower(a.Title), search) &&
			!strings.Contains(strings.ToLower(a.Description), search):
			continue
		}
		cp := *a
		cp.Keywords = slices.Clone(a.Keywords)
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Stats(context.Context) (domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.Stats{
		Total:          len(r.articles),
		BySentiment:    map[domain.SentimentLabel]int{},
		ByCategory:     map[string]int{},
		QualityBuckets: map[domain.QualityBucket]int{},
	}
	type agg struct {
		n   int
		sum float64
	}
	sources := map[string]*agg{}
	var sentSum, qualSum, readSum float64
	for _, a := range r.articles {
		stats.BySentiment[a.SentimentLabel]++
		stats.ByCategory[a.Category]++
		stats.QualityBuckets[domain.BucketFor(a.QualityScore)]++
		sentSum += a.SentimentScore
		qualSum += a.QualityScore
		readSum += a.Readability
		if a.Source != "" {
			s, ok := sources[a.Source]
			if !ok {
				s = &agg{}
				sources[a.Source] = s
			}
			s.n++
			s.sum += a.SentimentScore
		}
	}
	if stats.Total > 0 {
		stats.AvgSentiment = sentSum / float64(stats.Total)
		stats.AvgQuality = qualSum / float64(stats.Total)
		stats.AvgReadability = readSum / float64(stats.Total)
	}

	for name, s := range sources {
		stats.TopSources = append(stats.TopSources, domain.SourceCount{
			Source: name, Count: s.n, AvgSentiment: s.sum / float64(s.n),
		})
	}
	sort.Slice(stats.TopSources, func(i, j int) bool {
		if stats.TopSources[i].Count != stats.TopSources[j].Count {
			return stats.TopSources[i].Count > stats.TopSources[j].Count
		}
		return stats.TopSources[i].Source < stats.TopSources[j].Source
	})
	if len(stats.TopSources) > topSourcesLimit {
		stats.TopSources = stats.TopSources[:topSourcesLimit]
	}
	return stats, nil
}

func (r *MemoryRepository) RecentRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	out := make([]domain.RunSummary, 0, min(limit, len(r.runs)))
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

func (r *MemoryRepository) Trending(_ context.Context, window time.Duration, limit int) ([]domain.TrendingTopic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	articles := make([]domain.Article, 0, len(r.articles))
	for _, a := range r.articles {
		articles = append(articles, *a)
	}
	return domain.DetectTrending(articles, time.Now().UTC(), window, limit), nil
}

func (r *MemoryRepository) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for url, a := range r.articles {
		if a.PublishedAt.Before(olderThan) {
			delete(r.articles, url)
			n++
		}
	}
	return n, nil
}
