package main

import (
	"github.com/spf13/cobra"

	"NewsIngest/internal/app"
)

func newRunCmd(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer a.Close()

			report, runErr := a.RunOnce(cmd.Context())
			if g.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report.Summary); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "use in-memory storage and skip cache and notifications")
	return cmd
}

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on an interval and serve the read API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}
