package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/usecase"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, r usecase.RunReport) {
	s := r.Summary
	fmt.Fprintf(w, "run %s: %s\n", s.RunID, s.Status)
	fmt.Fprintf(w, "  total %d  valid %d  duplicate %d  rejected %d\n", s.Total, s.Valid, s.Duplicate, s.Rejected)
	fmt.Fprintf(w, "  stored %d new, %d updated\n", r.Inserted, r.Updated)
	fmt.Fprintf(w, "  batches %d attempted, %d failed\n", s.BatchesAttempted, s.BatchesFailed)
	fmt.Fprintf(w, "  mean processing %s, took %s\n", s.MeanProcessing, s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond))
	for _, reason := range sortedKeys(s.RejectReasons) {
		fmt.Fprintf(w, "  rejected %-15s %d\n", reason, s.RejectReasons[reason])
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	}
}

func printArticles(w io.Writer, articles []domain.Article) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED\tCATEGORY\tSENTIMENT\tQUALITY\tSOURCE\tTITLE")
	for _, a := range articles {
		fmt.Fprintf(tw, "%s\t%s\t%s (%.2f)\t%.2f\t%s\t%s\n",
			a.PublishedAt.Format(time.DateTime), a.Category, a.SentimentLabel, a.SentimentScore,
			a.QualityScore, a.Source, truncate(a.Title, 80))
	}
	_ = tw.Flush()
}

func printStats(w io.Writer, s domain.Stats) {
	fmt.Fprintf(w, "articles: %d\n", s.Total)
	fmt.Fprintf(w, "mean sentiment: %.3f  mean quality: %.3f  mean readability: %.3f\n",
		s.AvgSentiment, s.AvgQuality, s.AvgReadability)

	fmt.Fprintln(w, "sentiment:")
	for _, label := range []domain.SentimentLabel{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative} {
		fmt.Fprintf(w, "  %-10s %d\n", label, s.BySentiment[label])
	}

	fmt.Fprintln(w, "categories:")
	for _, c := range sortedKeys(s.ByCategory) {
		fmt.Fprintf(w, "  %-14s %d\n", c, s.ByCategory[c])
	}

	fmt.Fprintln(w, "quality:")
	for _, b := range []domain.QualityBucket{domain.QualityExcellent, domain.QualityGood, domain.QualityFair, domain.QualityPoor} {
		fmt.Fprintf(w, "  %-10s %d\n", b, s.QualityBuckets[b])
	}

	if len(s.TopSources) > 0 {
		fmt.Fprintln(w, "top sources:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, src := range s.TopSources {
			fmt.Fprintf(tw, "  %s\t%d\t%+.3f\n", src.Source, src.Count, src.AvgSentiment)
		}
		_ = tw.Flush()
	}
}

func printRuns(w io.Writer, runs []domain.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tSTATUS\tTOTAL\tVALID\tDUP\tREJECTED\tBATCHES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d/%d\n",
			r.StartedAt.Format(time.DateTime), r.RunID, r.Status, r.Total, r.Valid, r.Duplicate, r.Rejected,
			r.BatchesAttempted-r.BatchesFailed, r.BatchesAttempted)
	}
	_ = tw.Flush()
}

func printTrending(w io.Writer, topics []domain.TrendingTopic) {
	if len(topics) == 0 {
		fmt.Fprintln(w, "no trending topics yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tSCORE\tMENTIONS\tVELOCITY\tSOURCES\tSENTIMENT\tHOURS")
	for _, t := range topics {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%+.2f\t%d\t%+.3f\t%d\n",
			t.Keyword, t.Score, t.TotalMentions, t.Velocity, t.SourceDiversity, t.AvgSentiment, t.TimePeriods)
	}
	_ = tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
