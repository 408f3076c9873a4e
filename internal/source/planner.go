// Package source decides what a run fetches and which fetcher serves it.
package source

import (
	"context"
	"log/slog"
	"strings"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// PlanConfig lists the configured sections and searches with their caps.
type PlanConfig struct {
	Categories     []string
	Topics         []string
	MaxPerCategory int
	MaxPerTopic    int
}

// Planner builds the fetch plan: category headlines first, then topic searches.
type Planner struct {
	cfg    PlanConfig
	logger *slog.Logger
}

var _ ports.FetchPlanner = (*Planner)(nil)

func NewPlanner(cfg PlanConfig, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{cfg: cfg, logger: logger}
}

// Plan skips blank and repeated entries. Unknown categories are dropped with
// a warning because the upstream rejects them.
func (p *Planner) Plan(context.Context) []domain.FetchTarget {
	targets := make([]domain.FetchTarget, 0, len(p.cfg.Categories)+len(p.cfg.Topics))
	seen := map[string]struct{}{}

	add := func(kind domain.TargetKind, value string, limit int) {
		value = strings.TrimSpace(value)
		if value == "" || limit <= 0 {
			return
		}
		t := domain.FetchTarget{Kind: kind, Value: value, Limit: limit}
		if _, ok := seen[t.String()]; ok {
			return
		}
		seen[t.String()] = struct{}{}
		targets = append(targets, t)
	}

	for _, c := range p.cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !domain.IsFeedCategory(c) {
			p.logger.Warn("skip unknown category", "category", c)
			continue
		}
		add(domain.TargetCategory, c, p.cfg.MaxPerCategory)
	}
	for _, topic := range p.cfg.Topics {
		add(domain.TargetTopic, topic, p.cfg.MaxPerTopic)
	}

	p.logger.Debug("fetch plan ready", "targets", len(targets))
	return targets
}
