package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/usecase"
)

func TestPrintReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printReport(&buf, usecase.RunReport{
		Summary: domain.RunSummary{
			RunID:         "r1",
			StartedAt:     start,
			EndedAt:       start.Add(1500 * time.Millisecond),
			Total:         3,
			Valid:         1,
			Rejected:      2,
			RejectReasons: map[string]int{"too_short": 1, "missing_url": 1},
			Status:        domain.RunSuccess,
		},
		Inserted: 1,
	})

	out := buf.String()
	assert.Contains(t, out, "run r1: success")
	assert.Contains(t, out, "took 1.5s")
	assert.Less(t, strings.Index(out, "missing_url"), strings.Index(out, "too_short"))
	assert.NotContains(t, out, "error:")
}

func TestPrintRunsAndArticles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printRuns(&buf, []domain.RunSummary{{RunID: "r1", Status: domain.RunPartial, BatchesAttempted: 4, BatchesFailed: 1}})
	assert.Contains(t, buf.String(), "3/4")

	buf.Reset()
	printArticles(&buf, []domain.Article{{Title: strings.Repeat("a", 100), Category: "science"}})
	assert.Contains(t, buf.String(), strings.Repeat("a", 79)+"…")
}

func TestRootRegistersCommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "serve", "query", "stats", "runs", "trending", "prune", "migrate"})
}

func TestPrintTrending(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printTrending(&buf, nil)
	assert.Equal(t, "no trending topics yet\n", buf.String())

	buf.Reset()
	printTrending(&buf, []domain.TrendingTopic{{Keyword: "ai", Score: 2, TotalMentions: 3, Velocity: 1, TimePeriods: 2}})
	out := buf.String()
	assert.Contains(t, out, "KEYWORD")
	assert.Contains(t, out, "ai")
	assert.Contains(t, out, "+1.00")
}
