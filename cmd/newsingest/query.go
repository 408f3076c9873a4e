package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"NewsIngest/internal/app"
	"NewsIngest/internal/domain"
)

func newQueryCmd(g *globals) *cobra.Command {
	var (
		f         domain.ArticleFilter
		sentiment string
		sinceDays int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored articles, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sentiment != "" {
				f.Sentiment = domain.SentimentLabel(sentiment)
				if !f.Sentiment.Valid() {
					return fmt.Errorf("unknown sentiment %q", sentiment)
				}
			}
			if sinceDays > 0 {
				f.Since = time.Now().UTC().AddDate(0, 0, -sinceDays)
			}

			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.Repository().Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd.OutOrStdout(), articles)
			}
			printArticles(cmd.OutOrStdout(), articles)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.Category, "category", "", "category filter")
	fl.StringVar(&sentiment, "sentiment", "", "positive, neutral or negative")
	fl.StringVar(&f.Source, "source", "", "source name filter")
	fl.StringVar(&f.Search, "search", "", "text search in title and description")
	fl.Float64Var(&f.MinQuality, "min-quality", 0, "minimum quality score")
	fl.IntVar(&sinceDays, "since-days", 0, "only articles published in the last N days")
	fl.IntVar(&f.Limit, "limit", 20, "maximum rows")
	fl.IntVar(&f.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate article statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Repository().Stats(cmd.Context())
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newRunsCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent quality runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Repository().RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs")
	return cmd
}

func newTrendingCmd(g *globals) *cobra.Command {
	var (
		hours int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Rank keywords trending over the recent window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive, got %d", hours)
			}

			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			topics, err := a.Repository().Trending(cmd.Context(), time.Duration(hours)*time.Hour, limit)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd.OutOrStdout(), topics)
			}
			printTrending(cmd.OutOrStdout(), topics)
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "window size in hours")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultTrendingLimit, "number of topics")
	return cmd
}
