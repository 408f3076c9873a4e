package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"NewsIngest/internal/app"
)

func newPruneCmd(g *globals) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete articles published more than N days ago",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return errors.New("--days must be at least 1")
			}
			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			n, err := a.Repository().Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			g.logger.Info("pruned articles", "deleted", n, "older_than", cutoff.Format(time.DateOnly))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d articles\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "age threshold in days")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}
			g.logger.Info("schema is up to date")
			return nil
		},
	}
}
