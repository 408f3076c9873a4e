package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"NewsIngest/internal/app"
	"NewsIngest/internal/config"
	"NewsIngest/internal/logging"
)

type globals struct {
	cfg    config.Config
	logger *slog.Logger
	asJSON bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	var verbose bool

	root := &cobra.Command{
		Use:   "newsingest",
		Short: "News ingestion pipeline",
		Long: `newsingest fetches headlines and topic searches from a news API,
cleans and enriches them, filters them through a quality gate and stores
them in Postgres.

Example usage:
  newsingest migrate             # Create tables
  newsingest run                 # One ingestion run
  newsingest run --dry-run       # Run against an in-memory store
  newsingest serve               # Scheduled runs plus the read API
  newsingest query --category technology --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			g.cfg = config.Load()
			if verbose {
				g.cfg.Logging.Level = "debug"
			}
			if err := g.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			g.logger = logging.New(g.cfg.Logging.Level, g.cfg.Logging.Format)
			slog.SetDefault(g.logger)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&g.asJSON, "json", false, "output as JSON")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newQueryCmd(g),
		newStatsCmd(g),
		newRunsCmd(g),
		newTrendingCmd(g),
		newPruneCmd(g),
		newMigrateCmd(g),
	)
	return root
}

func (g *globals) open(cmd *cobra.Command, opts app.Options) (*app.Application, error) {
	return app.New(cmd.Context(), g.cfg, g.logger, opts)
}
