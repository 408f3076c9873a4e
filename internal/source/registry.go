package source

import (
	"context"
	"fmt"
	"log/slog"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Registry maps target kinds to the fetcher that serves them.
type Registry struct {
	fetchers map[domain.TargetKind]ports.NewsFetcher
	logger   *slog.Logger
}

var _ ports.NewsFetcher = (*Registry)(nil)

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{fetchers: map[domain.TargetKind]ports.NewsFetcher{}, logger: logger}
}

// Register adds or replaces the fetcher for kinds.
func (r *Registry) Register(f ports.NewsFetcher, kinds ...domain.TargetKind) {
	for _, k := range kinds {
		r.fetchers[k] = f
	}
}

// Resolve returns the fetcher for kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.TargetKind) (ports.NewsFetcher, error) {
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for %s targets", kind)
}

// Fetch routes target to its fetcher.
func (r *Registry) Fetch(ctx context.Context, target domain.FetchTarget, maxItems int) ([]domain.RawRecord, error) {
	f, err := r.Resolve(target.Kind)
	if err != nil {
		return nil, err
	}

	records, err := f.Fetch(ctx, target, maxItems)
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Debug("target fetched", "target", target.String(), "count", len(records))
	}
	return records, nil
}
